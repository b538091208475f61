package scan

import (
	"time"

	"neoscanner/internal/core/model"
)

// ScanRecord 扫描历史记录
type ScanRecord struct {
	ID          string            `json:"id"`
	Target      string            `json:"target"`
	ScanType    model.TaskType    `json:"scan_type"`
	Status      model.TaskStatus  `json:"status"`
	Results     *model.ScanReport `json:"results,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// NewScanRecord 由已结束的任务构造历史记录
func NewScanRecord(task *model.Task, status model.TaskStatus, report *model.ScanReport, err error, completedAt time.Time) *ScanRecord {
	rec := &ScanRecord{
		ID:          task.ID,
		Target:      task.Target,
		ScanType:    task.Type,
		Status:      status,
		Results:     report,
		CreatedAt:   task.CreatedAt,
		CompletedAt: &completedAt,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}
