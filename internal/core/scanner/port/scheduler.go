/**
 * TCP Connect 端口探测调度
 * @author: sun977
 * @date: 2026.01.22
 * @description: 每个 (ip, port) 一次 TCP Connect，不重试。结果按槽位下标写入，
 *               输出顺序固定为 (ip 升序, port 升序)，与完成顺序无关
 */
package port

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"neoscanner/internal/core/lib/network/dialer"
	"neoscanner/internal/core/lib/network/qos"
	"neoscanner/internal/core/model"
	"neoscanner/internal/pkg/logger"
)

const (
	DefaultWorkers      = 100
	DefaultProbeTimeout = 2 * time.Second
)

// Options 调度参数
type Options struct {
	Workers      int               // 并发探测上限
	ProbeTimeout time.Duration     // 单次探测超时
	Adaptive     bool              // 探测超时时自动收缩并发
	Dialer       dialer.Dialer     // 为空时直连
	RTT          *qos.RttEstimator // 可选，记录建连耗时
}

// Scheduler 端口探测调度器，不持有跨扫描状态，可被多次 Run 复用
type Scheduler struct {
	workers  int
	timeout  time.Duration
	adaptive bool
	dialer   dialer.Dialer
	rtt      *qos.RttEstimator
}

func NewScheduler(opts Options) *Scheduler {
	s := &Scheduler{
		workers:  opts.Workers,
		timeout:  opts.ProbeTimeout,
		adaptive: opts.Adaptive,
		dialer:   opts.Dialer,
		rtt:      opts.RTT,
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.timeout <= 0 {
		s.timeout = DefaultProbeTimeout
	}
	if s.dialer == nil {
		s.dialer = dialer.NewDirectDialer()
	}
	return s
}

// slot 单个探测槽位
type slot struct {
	result   model.ProbeResult
	finished bool // 探测在扫描时限内正常结束
}

// Run 探测 ips × ports，ips 需已按升序排好（ResolveTarget 的输出满足）
// ctx 的截止时间即扫描总时限：已完成的探测保留，被取消或未开始的记为 filtered，partial 返回 true
func (s *Scheduler) Run(ctx context.Context, ips []string, ports model.PortSpec) ([]model.ProbeResult, bool) {
	total := len(ips) * len(ports)
	if total == 0 {
		return []model.ProbeResult{}, false
	}

	slots := make([]slot, total)
	for i, ip := range ips {
		for j, p := range ports {
			slots[i*len(ports)+j].result = model.ProbeResult{IP: ip, Port: p, State: model.StateFiltered}
		}
	}

	workers := s.workers
	if workers > total {
		workers = total
	}
	var limiter *qos.AdaptiveLimiter
	if s.adaptive {
		// 初始即为上限，AIMD 只会在 [1, workers] 内调整
		limiter = qos.NewAdaptiveLimiter(workers, 1, workers)
	} else {
		limiter = qos.NewFixedLimiter(workers)
	}

	var wg sync.WaitGroup
	for idx := range slots {
		if err := limiter.Acquire(ctx); err != nil {
			break
		}
		wg.Add(1)
		go func(sl *slot) {
			defer wg.Done()
			defer limiter.Release()

			state, latency, cancelled := s.probe(ctx, sl.result.IP, sl.result.Port)
			if cancelled {
				return
			}
			sl.result.State = state
			sl.result.LatencyMs = float64(latency.Microseconds()) / 1000
			sl.finished = true

			switch state {
			case model.StateTimeout:
				limiter.OnFailure()
			case model.StateOpen:
				if s.rtt != nil {
					s.rtt.Update(latency)
				}
				limiter.OnSuccess()
			default:
				limiter.OnSuccess()
			}
		}(&slots[idx])
	}
	wg.Wait()

	results := make([]model.ProbeResult, total)
	partial := false
	for i := range slots {
		results[i] = slots[i].result
		if !slots[i].finished {
			partial = true
		}
	}

	logger.WithFields(map[string]interface{}{
		"ips":     len(ips),
		"ports":   len(ports),
		"workers": limiter.CurrentLimit(),
		"partial": partial,
	}).Debug("port probes finished")

	return results, partial
}

// probe 单次 TCP Connect；cancelled 表示扫描时限先于探测结束
func (s *Scheduler) probe(ctx context.Context, ip string, port int) (model.ProbeState, time.Duration, bool) {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	conn, err := s.dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	latency := time.Since(start)
	if err == nil {
		conn.Close()
		return model.StateOpen, latency, false
	}

	if ctx.Err() != nil {
		return model.StateFiltered, latency, true
	}
	return classify(err, probeCtx), latency, false
}

// classify 将建连错误映射为探测状态
func classify(err error, probeCtx context.Context) model.ProbeState {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.StateClosed
	}
	if errors.Is(probeCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return model.StateTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.StateTimeout
	}
	// 主机不可达、网络不可达、连接被重置等
	return model.StateFiltered
}
