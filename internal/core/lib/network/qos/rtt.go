package qos

import (
	"sync"
	"time"
)

const (
	defaultInitialRTO = 1 * time.Second
	minRTO            = 100 * time.Millisecond
	maxRTO            = 10 * time.Second
	alpha             = 0.125 // RFC 6298
	beta              = 0.25  // RFC 6298
)

// RttEstimator RFC 6298 RTO 估算
// 扫描中用建连耗时喂给它，服务识别据此缩短 Banner 被动读取窗口
type RttEstimator struct {
	srtt    time.Duration
	rttvar  time.Duration
	rto     time.Duration
	samples int
	mu      sync.RWMutex
}

// NewRttEstimator 创建 RTT 估算器
func NewRttEstimator() *RttEstimator {
	return &RttEstimator{rto: defaultInitialRTO}
}

// Update 加入一次测量值
func (e *RttEstimator) Update(rtt time.Duration) {
	if rtt <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.samples == 0 {
		e.srtt = rtt
		e.rttvar = rtt / 2
	} else {
		delta := e.srtt - rtt
		if delta < 0 {
			delta = -delta
		}
		e.rttvar = time.Duration((1-beta)*float64(e.rttvar) + beta*float64(delta))
		e.srtt = time.Duration((1-alpha)*float64(e.srtt) + alpha*float64(rtt))
	}
	e.samples++

	e.rto = e.srtt + 4*e.rttvar
	if e.rto < minRTO {
		e.rto = minRTO
	} else if e.rto > maxRTO {
		e.rto = maxRTO
	}
}

// Timeout 当前建议超时
func (e *RttEstimator) Timeout() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rto
}

// Window 返回 [floor, ceil] 范围内的等待窗口，没有样本时返回 ceil
func (e *RttEstimator) Window(floor, ceil time.Duration) time.Duration {
	e.mu.RLock()
	samples, rto := e.samples, e.rto
	e.mu.RUnlock()

	if samples == 0 {
		return ceil
	}
	if rto < floor {
		return floor
	}
	if rto > ceil {
		return ceil
	}
	return rto
}
