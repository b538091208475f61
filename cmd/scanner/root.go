/*
 * @author: Sun977
 * @date: 2026.01.21
 * @description: Cobra Root Command 定义
 */

package main

import (
	"fmt"
	"io"
	"os"

	"neoscanner/cmd/scanner/scan"
	"neoscanner/internal/config"
	"neoscanner/internal/pkg/logger"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "NeoScan-Scanner",
	Short: "NeoScan-Scanner 网络安全扫描服务",
	Long: `NeoScan-Scanner 对外提供端口扫描、漏洞检查与 TLS 检查。
可以作为 HTTP 服务运行，也可以作为独立的 CLI 扫描工具运行.

示例:
  1.启动服务模式
	NeoScan-Scanner server --config ./configs/config.yaml
  2.单机运行扫描
	NeoScan-Scanner scan port -t 192.168.1.1 -p 22,80,443
	NeoScan-Scanner scan vuln -t example.com --oj result.json
	NeoScan-Scanner scan ssl -t example.com -p 8443 --oc result.csv
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env 只补充缺失的环境变量
		if err := config.NewEnvLoader().Load(); err != nil {
			return err
		}
		// server 模式的日志由配置文件初始化，这里只透传 --log-level
		if cmd.Name() == serverCmd.Name() {
			if logLevel != "" {
				os.Setenv(config.EnvPrefix+"_LOG_LEVEL", logLevel)
			}
			return nil
		}
		initCLILogger(cmd)
		return nil
	},
}

func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] Scanner crashed unexpectedly: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	// 全局 Flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (debug, info, warn, error)")

	// 注册子命令
	rootCmd.AddCommand(scan.NewScanCmd(&cfgFile))
}

// initCLILogger 初始化 CLI 模式下的日志
// 默认只输出 Fatal，扫描结果由 pterm 输出
func initCLILogger(cmd *cobra.Command) {
	flag := cmd.Flags().Lookup("log-level")
	level := "fatal"
	if flag != nil && flag.Changed {
		level = flag.Value.String()
	}

	switch level {
	case "debug":
		pterm.EnableDebugMessages()
	case "info":
		pterm.DisableDebugMessages()
	default:
		pterm.DisableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(io.Discard)
	}

	logConfig := &config.LogConfig{
		Level:  level,
		Format: "text",
		Output: "stderr",
		Caller: false,
	}

	if _, err := logger.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
	}
}
