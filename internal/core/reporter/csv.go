package reporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"neoscanner/internal/core/model"
)

// CsvReporter 负责将报告主表导出为 CSV 文件
type CsvReporter struct {
	FilePath string
}

func NewCsvReporter(filePath string) *CsvReporter {
	return &CsvReporter{
		FilePath: filePath,
	}
}

func (r *CsvReporter) Report(ctx context.Context, report *model.ScanReport) error {
	return SaveCsvResult(r.FilePath, report)
}

// SaveCsvResult 一次性将报告主表保存为 CSV
func SaveCsvResult(path string, report *model.ScanReport) error {
	if report == nil {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	return WriteCsv(f, PrimaryTable(report))
}

// WriteCsv 写入表头和数据行
func WriteCsv(w io.Writer, data TabularData) error {
	// 写入 UTF-8 BOM，防止 Excel 打开乱码
	if _, err := io.WriteString(w, "\xEF\xBB\xBF"); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(data.Headers()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(data.Rows()); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}
