package exposure

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"neoscanner/internal/core/lib/network/dialer"
	"neoscanner/internal/core/model"
)

const (
	DefaultTimeout = 3 * time.Second
	parallelChecks = 4
)

// serviceAliases 服务识别结果到检查名的映射
var serviceAliases = map[string]string{
	"ftp":          "ftp",
	"ssh":          "ssh",
	"telnet":       "telnet",
	"redis":        "redis",
	"mongodb":      "mongodb",
	"mongo":        "mongodb",
	"mysql":        "mysql",
	"postgres":     "postgres",
	"postgresql":   "postgres",
	"mssql":        "mssql",
	"ms-sql-s":     "mssql",
	"clickhouse":   "clickhouse",
	"smb":          "smb",
	"microsoft-ds": "smb",
	"snmp":         "snmp",
}

// Registry 检查器集合
type Registry struct {
	checkers map[string]Checker
	byPort   map[int][]Checker
	timeout  time.Duration
}

// All 全部内置检查器，TCP 协议检查经由 d 建连 (nil 为直连)
// mysql/postgres/mssql/smb/snmp 由驱动自行拨号，不经过 d
func All(d dialer.Dialer) []Checker {
	return []Checker{
		NewFTPChecker(d),
		NewSSHChecker(d),
		NewTelnetChecker(d),
		NewRedisChecker(d),
		NewMongoChecker(d),
		NewMySQLChecker(),
		NewPostgresChecker(),
		NewMSSQLChecker(),
		NewClickHouseChecker(d),
		NewSMBChecker(),
		NewSNMPChecker(),
	}
}

// NewRegistry 按名称启用检查器，enabled 为空表示全部启用
func NewRegistry(timeout time.Duration, enabled []string, checkers ...Checker) *Registry {
	if len(checkers) == 0 {
		checkers = All(nil)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	allow := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allow[strings.ToLower(strings.TrimSpace(name))] = true
	}

	r := &Registry{
		checkers: make(map[string]Checker),
		byPort:   make(map[int][]Checker),
		timeout:  timeout,
	}
	for _, c := range checkers {
		if len(allow) > 0 && !allow[c.Name()] {
			continue
		}
		r.checkers[c.Name()] = c
		for _, p := range c.Ports() {
			r.byPort[p] = append(r.byPort[p], c)
		}
	}
	return r
}

// Names 已启用的检查名，按字母序
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// For 按服务名挑选检查器，服务名未知时按端口挑选
func (r *Registry) For(service string, port int) []Checker {
	if name, ok := serviceAliases[strings.ToLower(service)]; ok {
		if c, ok := r.checkers[name]; ok {
			return []Checker{c}
		}
		return nil
	}
	return r.byPort[port]
}

// job 单个检查任务
type job struct {
	checker Checker
	service string
	port    int
}

// Run 对一个 IP 上的开放服务执行检查
// services 为该 IP 的识别结果；requested 中包含 161 时额外做 UDP SNMP 检查
// 结果按 (port, check) 排序
func (r *Registry) Run(ctx context.Context, ip string, services []model.ServiceFingerprint, requested model.PortSpec) []model.ExposureResult {
	var jobs []job
	seen := make(map[string]bool)
	add := func(c Checker, service string, port int) {
		key := c.Name() + "/" + service + "/" + strconv.Itoa(port)
		if seen[key] {
			return
		}
		seen[key] = true
		jobs = append(jobs, job{checker: c, service: service, port: port})
	}

	for _, fp := range services {
		if fp.IP != "" && fp.IP != ip {
			continue
		}
		service := fp.LikelyService()
		for _, c := range r.For(service, fp.Port) {
			// SNMP 走 UDP，不跟随 TCP 端口
			if c.Name() == "snmp" {
				continue
			}
			add(c, service, fp.Port)
		}
	}
	if snmp, ok := r.checkers["snmp"]; ok && requested.Contains(161) {
		add(snmp, "snmp", 161)
	}

	results := make([]model.ExposureResult, len(jobs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelChecks)
	for i, j := range jobs {
		g.Go(func() error {
			res := r.check(gctx, ip, j)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Port != results[b].Port {
			return results[a].Port < results[b].Port
		}
		return results[a].Check < results[b].Check
	})
	return results
}

func (r *Registry) check(ctx context.Context, ip string, j job) model.ExposureResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := model.ExposureResult{IP: ip, Port: j.port, Service: j.service, Check: j.checker.Name()}
	exposed, detail, err := j.checker.Check(ctx, ip, j.port)
	res.Exposed = exposed
	res.Detail = detail
	if err != nil {
		res.Error = classify(err).Error()
	}
	return res
}
