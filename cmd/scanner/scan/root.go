package scan

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neoscanner/internal/config"
	"neoscanner/internal/core/model"
	"neoscanner/internal/core/options"
	"neoscanner/internal/core/reporter"
	"neoscanner/internal/core/runner"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var globalOutputOptions options.OutputOptions

// NewScanCmd 创建 scan 父命令，configPath 指向根命令的 --config
func NewScanCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "执行单次扫描任务",
		Long: `在本机直接执行一次扫描并输出结果表格，可选保存为 JSON/CSV。
请使用具体的子命令。`,
	}

	pFlags := cmd.PersistentFlags()
	pFlags.StringVar(&globalOutputOptions.OutputJson, "outputJson", "", "指定保存json文件路径[以.json结尾] (alias: --oj)")
	pFlags.StringVar(&globalOutputOptions.OutputCsv, "outputCsv", "", "指定保存csv文件路径[以.csv结尾] (alias: --oc)")

	// 注册别名 (Hidden flags) 方便用户使用简短命令
	pFlags.StringVar(&globalOutputOptions.OutputJson, "oj", "", "outputJson 简写")
	pFlags.Lookup("oj").Hidden = true
	pFlags.StringVar(&globalOutputOptions.OutputCsv, "oc", "", "outputCsv 简写")
	pFlags.Lookup("oc").Hidden = true

	cmd.AddCommand(NewPortScanCmd(configPath))
	cmd.AddCommand(NewVulnScanCmd(configPath))
	cmd.AddCommand(NewSSLScanCmd(configPath))

	return cmd
}

// runTask 加载配置、执行任务并输出结果，Ctrl+C 时保留已完成的部分结果
func runTask(configPath string, task *model.Task, output options.OutputOptions) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := runner.NewRunnerManager(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Scanning %s (%s)...", task.Target, task.Type))
	// 中断只取消扫描本身，等待 Runner 返回已完成的部分
	st := manager.Submit(ctx, task)
	report, err := st.Wait(context.Background())
	if err == nil && report == nil {
		err = fmt.Errorf("scan %s returned no report", task.ID)
	}
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return err
	}
	if spinner != nil {
		spinner.Success(fmt.Sprintf("Scan %s finished in %s", report.ID, report.Duration().Round(time.Millisecond)))
	}
	if st.Status() == model.TaskStatusCancelled {
		pterm.Warning.Println("Scan interrupted, showing partial results")
	}

	reporters := []reporter.Reporter{reporter.NewConsoleReporter()}
	if output.OutputJson != "" {
		reporters = append(reporters, reporter.NewJsonReporter(output.OutputJson))
	}
	if output.OutputCsv != "" {
		reporters = append(reporters, reporter.NewCsvReporter(output.OutputCsv))
	}
	if err := reporter.NewMultiReporter(reporters...).Report(context.Background(), report); err != nil {
		return err
	}

	for _, path := range []string{output.OutputJson, output.OutputCsv} {
		if path != "" {
			pterm.Success.Printfln("Results saved to %s", path)
		}
	}
	return nil
}
