package exposure

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// sysDescr MIB-II 系统描述
const sysDescrOID = "1.3.6.1.2.1.1.1.0"

// SNMPChecker 默认团体名 public 可读 (UDP)
// UDP 下团体名错误与丢包表现一致，未收到响应时只记为未暴露
type SNMPChecker struct {
	Community string
}

func NewSNMPChecker() *SNMPChecker {
	return &SNMPChecker{Community: "public"}
}

func (c *SNMPChecker) Name() string {
	return "snmp"
}

func (c *SNMPChecker) Ports() []int {
	return []int{161}
}

func (c *SNMPChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	params := &gosnmp.GoSNMP{
		Target:    host,
		Port:      uint16(port),
		Community: c.Community,
		Version:   gosnmp.Version2c,
		Timeout:   remaining(ctx, defaultCheckTimeout),
		Retries:   0,
		Transport: "udp",
		Context:   ctx,
	}
	if err := params.Connect(); err != nil {
		return false, "", classify(err)
	}
	defer params.Conn.Close()

	result, err := params.Get([]string{sysDescrOID})
	if err != nil {
		return false, "no response to community " + c.Community, nil
	}
	if result == nil || result.Error != gosnmp.NoError || len(result.Variables) == 0 {
		return false, "community " + c.Community + " rejected", nil
	}

	return true, fmt.Sprintf("community %q readable, sysDescr: %s", c.Community, describe(result.Variables[0])), nil
}

func describe(pdu gosnmp.SnmpPDU) string {
	var s string
	switch v := pdu.Value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}
