package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"neoscanner/internal/core/model"
)

// JsonReporter 将完整报告写入 JSON 文件
type JsonReporter struct {
	FilePath string
}

func NewJsonReporter(filePath string) *JsonReporter {
	return &JsonReporter{FilePath: filePath}
}

func (r *JsonReporter) Report(ctx context.Context, report *model.ScanReport) error {
	return SaveJsonResult(r.FilePath, report)
}

// SaveJsonResult 以缩进格式保存报告
func SaveJsonResult(path string, report *model.ScanReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write json output: %w", err)
	}
	return nil
}
