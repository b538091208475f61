package qos

import (
	"context"
	"sync"
	"sync/atomic"
)

// AdaptiveLimiter 单次扫描的并发令牌池，带 AIMD 拥塞控制
// - 成功：每累计 currentLimit 次成功，上限 +1
// - 失败（探测超时）：上限乘以 0.7
// min == max 时退化为固定大小的信号量
// 每次扫描创建一个实例，不跨扫描共享
type AdaptiveLimiter struct {
	sem             chan struct{} // 令牌通道，容量为 maxLimit
	reductionNeeded int32         // 缩容时借出未还、需要在 Release 时销毁的令牌数

	currentLimit int
	minLimit     int
	maxLimit     int
	successCount int
	mu           sync.Mutex
}

// NewAdaptiveLimiter 创建自适应限流器
func NewAdaptiveLimiter(initial, min, max int) *AdaptiveLimiter {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}

	l := &AdaptiveLimiter{
		sem:          make(chan struct{}, max),
		currentLimit: initial,
		minLimit:     min,
		maxLimit:     max,
	}
	for i := 0; i < initial; i++ {
		l.sem <- struct{}{}
	}
	return l
}

// NewFixedLimiter 固定并发数的限流器
func NewFixedLimiter(n int) *AdaptiveLimiter {
	return NewAdaptiveLimiter(n, n, n)
}

// Acquire 获取令牌，阻塞直到有令牌或 ctx 结束
func (l *AdaptiveLimiter) Acquire(ctx context.Context) error {
	// ctx 已结束时不再与令牌竞争
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-l.sem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 归还令牌；有缩容债务时销毁令牌
func (l *AdaptiveLimiter) Release() {
	for {
		debt := atomic.LoadInt32(&l.reductionNeeded)
		if debt <= 0 {
			break
		}
		if atomic.CompareAndSwapInt32(&l.reductionNeeded, debt, debt-1) {
			return
		}
	}

	select {
	case l.sem <- struct{}{}:
	default:
	}
}

// OnSuccess 一次成功的探测
func (l *AdaptiveLimiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.successCount++
	if l.successCount >= l.currentLimit {
		l.successCount = 0
		l.increaseLimit(1)
	}
}

// OnFailure 一次超时的探测
func (l *AdaptiveLimiter) OnFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newLimit := int(float64(l.currentLimit) * 0.7)
	decrease := l.currentLimit - newLimit
	if decrease < 1 {
		decrease = 1
	}
	l.decreaseLimit(decrease)
	l.successCount = 0
}

func (l *AdaptiveLimiter) increaseLimit(n int) {
	target := l.currentLimit + n
	if target > l.maxLimit {
		target = l.maxLimit
	}
	diff := target - l.currentLimit
	if diff <= 0 {
		return
	}

	l.currentLimit = target
	for i := 0; i < diff; i++ {
		// 先抵消尚未偿还的缩容债务
		if atomic.LoadInt32(&l.reductionNeeded) > 0 {
			atomic.AddInt32(&l.reductionNeeded, -1)
			continue
		}
		select {
		case l.sem <- struct{}{}:
		default:
		}
	}
}

func (l *AdaptiveLimiter) decreaseLimit(n int) {
	target := l.currentLimit - n
	if target < l.minLimit {
		target = l.minLimit
	}
	diff := l.currentLimit - target
	if diff <= 0 {
		return
	}

	l.currentLimit = target

	// 先取走空闲令牌，取不到的记为债务
	removed := 0
	for i := 0; i < diff; i++ {
		select {
		case <-l.sem:
			removed++
		default:
		}
	}
	if remaining := diff - removed; remaining > 0 {
		atomic.AddInt32(&l.reductionNeeded, int32(remaining))
	}
}

// CurrentLimit 当前并发上限
func (l *AdaptiveLimiter) CurrentLimit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLimit
}
