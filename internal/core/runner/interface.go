package runner

import (
	"context"

	"neoscanner/internal/core/model"
)

// Runner 定义了扫描执行器的通用接口
type Runner interface {
	// Name 返回 Runner 的名称 (对应 TaskType)
	Name() model.TaskType

	// Run 执行具体的扫描任务
	// ctx: 截止时间即扫描总时限，到期后返回部分结果而不是错误
	// 返回: 单个目标的扫描报告；只有目标解析与端口表达式错误会返回 error
	Run(ctx context.Context, task *model.Task) (*model.ScanReport, error)
}
