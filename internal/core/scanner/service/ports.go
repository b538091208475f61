package service

// wellKnownPorts 没有指纹命中时按端口推断服务名
var wellKnownPorts = map[int]string{
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "domain",
	80:    "http",
	110:   "pop3",
	111:   "rpcbind",
	135:   "msrpc",
	139:   "netbios-ssn",
	143:   "imap",
	161:   "snmp",
	389:   "ldap",
	443:   "https",
	445:   "microsoft-ds",
	465:   "smtps",
	587:   "submission",
	636:   "ldaps",
	873:   "rsync",
	993:   "imaps",
	995:   "pop3s",
	1080:  "socks",
	1433:  "ms-sql-s",
	1521:  "oracle",
	2049:  "nfs",
	2375:  "docker",
	3306:  "mysql",
	3389:  "ms-wbt-server",
	5432:  "postgresql",
	5672:  "amqp",
	5900:  "vnc",
	5984:  "couchdb",
	6379:  "redis",
	8000:  "http-alt",
	8080:  "http-proxy",
	8123:  "clickhouse",
	8443:  "https-alt",
	8888:  "http-alt",
	9000:  "clickhouse",
	9200:  "elasticsearch",
	11211: "memcached",
	27017: "mongodb",
}

// httpPorts 主动发送 HEAD 请求的端口
var httpPorts = map[int]bool{80: true, 8000: true, 8080: true, 8888: true}

// tlsWrapPorts 先完成 TLS 握手再发送 HEAD 请求的端口
var tlsWrapPorts = map[int]bool{443: true, 8443: true}

// ServiceByPort 端口对应的常见服务名，未知返回空串
func ServiceByPort(port int) string {
	return wellKnownPorts[port]
}
