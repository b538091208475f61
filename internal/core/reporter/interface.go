/**
 * 结果输出接口定义
 * @author: Sun977
 * @date: 2026.01.21
 * @description: 定义扫描报告的通用输出接口，解耦 Console/JSON/CSV 输出
 */

package reporter

import (
	"context"
	"errors"

	"neoscanner/internal/core/model"
)

// TabularData 是一个可以被渲染为表格的数据接口
type TabularData interface {
	Title() string
	Headers() []string
	Rows() [][]string
}

// Reporter 定义报告输出的行为
type Reporter interface {
	// Report 输出一份扫描报告
	Report(ctx context.Context, report *model.ScanReport) error
}

// MultiReporter 支持同时向多个目标输出 (e.g., Console + File)
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

// Report 依次调用所有 Reporter，单个失败不影响其余输出
func (m *MultiReporter) Report(ctx context.Context, report *model.ScanReport) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
