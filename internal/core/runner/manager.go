/**
 * 扫描任务管理
 * @author: sun977
 * @date: 2025.11.07
 * @description: 按任务类型分发 Runner，每个任务一个带截止时间的 context，
 * 调用方通过 ScanTask 等待、取消或查询状态
 */
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"neoscanner/internal/config"
	"neoscanner/internal/core/model"
	"neoscanner/internal/pkg/logger"
)

const DefaultScanDeadline = 30 * time.Second

// RunnerManager 管理所有的 Runner
type RunnerManager struct {
	runners  map[model.TaskType]Runner
	deadline time.Duration
	mu       sync.RWMutex
}

// NewRunnerManager 构建扫描组件并注册端口、漏洞、SSL 三种 Runner
func NewRunnerManager(cfg *config.Config) (*RunnerManager, error) {
	engines, err := NewEngines(cfg)
	if err != nil {
		return nil, err
	}

	m := NewEmptyManager(cfg.Scanner.ScanDeadline)
	m.Register(NewPortRunner(engines))
	m.Register(NewVulnRunner(engines))
	m.Register(NewSSLRunner(engines))
	return m, nil
}

// NewEmptyManager 创建未注册任何 Runner 的管理器
func NewEmptyManager(deadline time.Duration) *RunnerManager {
	if deadline <= 0 {
		deadline = DefaultScanDeadline
	}
	return &RunnerManager{
		runners:  make(map[model.TaskType]Runner),
		deadline: deadline,
	}
}

// Register 注册一个 Runner
func (m *RunnerManager) Register(runner Runner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runners[runner.Name()] = runner
}

// Get 获取指定类型的 Runner
func (m *RunnerManager) Get(taskType model.TaskType) (Runner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if runner, ok := m.runners[taskType]; ok {
		return runner, nil
	}
	return nil, fmt.Errorf("no runner found for task type: %s", taskType)
}

// Submit 异步执行任务
// 任务 context 派生自 ctx，截止时间为 task.Timeout（为 0 时使用配置的扫描总时限）
func (m *RunnerManager) Submit(ctx context.Context, task *model.Task) *ScanTask {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	// 请求超时不能超过全局扫描时限
	timeout := task.Timeout
	if timeout <= 0 || timeout > m.deadline {
		timeout = m.deadline
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	deadline, _ := tctx.Deadline()
	st := newScanTask(task, deadline, cancel)

	runner, err := m.Get(task.Type)
	if err != nil {
		st.finish(model.TaskStatusFailed, nil, err)
		return st
	}

	go m.run(tctx, st, runner)
	return st
}

// Execute 同步执行任务，等价于 Submit 后 Wait
func (m *RunnerManager) Execute(ctx context.Context, task *model.Task) (*model.ScanReport, error) {
	return m.Submit(ctx, task).Wait(ctx)
}

func (m *RunnerManager) run(ctx context.Context, st *ScanTask, runner Runner) {
	task := st.Task
	st.setStatus(model.TaskStatusRunning)
	logger.LogScanOperation(task.ID, string(task.Type), task.Target, string(model.TaskStatusRunning), "", 0, nil)

	start := time.Now()
	report, err := runner.Run(ctx, task)
	duration := time.Since(start)

	status := model.TaskStatusCompleted
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		status = model.TaskStatusCancelled
	case err != nil:
		status = model.TaskStatusFailed
	case errors.Is(ctx.Err(), context.Canceled):
		// 主动取消时保留已完成的部分结果
		status = model.TaskStatusCancelled
	}

	if err != nil {
		logger.LogScanOperation(task.ID, string(task.Type), task.Target, string(status), err.Error(), duration, nil)
	} else {
		logger.LogScanOperation(task.ID, string(task.Type), task.Target, string(report.Status),
			fmt.Sprintf("%d open, %d findings, risk %s", report.OpenPorts(), len(report.Vulnerabilities), report.RiskLevel),
			duration, map[string]interface{}{"ips": len(report.IPs)})
	}

	st.finish(status, report, err)
}
