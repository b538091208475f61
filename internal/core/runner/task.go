package runner

import (
	"context"
	"sync"
	"time"

	"neoscanner/internal/core/model"
)

// ScanTask 单次扫描的句柄，ctx 的截止时间即扫描总时限
type ScanTask struct {
	Task     *model.Task
	deadline time.Time
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.RWMutex
	status model.TaskStatus
	report *model.ScanReport
	err    error
}

func newScanTask(task *model.Task, deadline time.Time, cancel context.CancelFunc) *ScanTask {
	return &ScanTask{
		Task:     task,
		deadline: deadline,
		cancel:   cancel,
		done:     make(chan struct{}),
		status:   model.TaskStatusPending,
	}
}

// ID 任务 ID
func (t *ScanTask) ID() string {
	return t.Task.ID
}

// Deadline 扫描截止时间
func (t *ScanTask) Deadline() time.Time {
	return t.deadline
}

// Done 任务结束时关闭
func (t *ScanTask) Done() <-chan struct{} {
	return t.done
}

// Status 当前生命周期状态
func (t *ScanTask) Status() model.TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Cancel 取消扫描，已完成的探测仍会写入报告
func (t *ScanTask) Cancel() {
	t.cancel()
}

// Wait 等待任务结束，ctx 先结束时返回 ctx.Err()，任务本身不受影响
func (t *ScanTask) Wait(ctx context.Context) (*model.ScanReport, error) {
	select {
	case <-t.done:
		t.mu.RLock()
		defer t.mu.RUnlock()
		return t.report, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *ScanTask) setStatus(s model.TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

func (t *ScanTask) finish(status model.TaskStatus, report *model.ScanReport, err error) {
	t.mu.Lock()
	t.status = status
	t.report = report
	t.err = err
	t.mu.Unlock()
	t.cancel()
	close(t.done)
}
