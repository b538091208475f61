package reporter

import (
	"context"
	"fmt"
	"time"

	"neoscanner/internal/core/model"

	"github.com/pterm/pterm" // 引入 pterm 库用于控制台输出
)

// ConsoleReporter 控制台输出
type ConsoleReporter struct{}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

func (r *ConsoleReporter) Report(ctx context.Context, report *model.ScanReport) error {
	// 如果结果为空，不输出
	if report == nil {
		return nil
	}

	var sections []TabularData
	switch report.Kind {
	case model.TaskTypeSSLScan:
		sections = append(sections, TLSTable(report))
	case model.TaskTypeVulnScan:
		sections = append(sections, OpenPortTable(report), TLSTable(report), ExposureTable(report), VulnTable(report))
	default:
		sections = append(sections, OpenPortTable(report))
	}

	printed := false
	for _, s := range sections {
		if len(s.Rows()) == 0 {
			continue
		}
		pterm.DefaultSection.Println(s.Title())
		if err := r.printTable(s); err != nil {
			return err
		}
		printed = true
	}
	if !printed {
		pterm.Warning.Println("No results found.")
	}

	r.printSummary(report)
	return nil
}

func (r *ConsoleReporter) printSummary(report *model.ScanReport) {
	summary := fmt.Sprintf("target=%s ips=%d open=%d findings=%d risk=%s status=%s duration=%s",
		report.Target, len(report.IPs), report.OpenPorts(), len(report.Vulnerabilities),
		report.RiskLevel, report.Status, report.Duration().Round(time.Millisecond))
	if report.Status == model.ReportPartial {
		pterm.Warning.Println(summary)
		return
	}
	pterm.Success.Println(summary)
}

func (r *ConsoleReporter) printTable(data TabularData) error {
	return r.printTableFromData(data.Headers(), data.Rows())
}

func (r *ConsoleReporter) printTableFromData(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	// 使用 pterm 渲染表格
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)

	err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false). // 简洁风格
		WithData(tableData).
		Render()

	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
