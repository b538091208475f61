package scan

import (
	"neoscanner/internal/core/options"

	"github.com/spf13/cobra"
)

// NewPortScanCmd 端口扫描 + 服务识别
func NewPortScanCmd(configPath *string) *cobra.Command {
	opts := options.NewPortScanOptions()

	cmd := &cobra.Command{
		Use:   "port",
		Short: "端口扫描与服务识别",
		Long: `对目标 (IP/域名/CIDR) 做 TCP Connect 端口扫描，并识别开放端口上的服务。

示例:
  NeoScan-Scanner scan port -t 192.168.1.0/28 -p 22,80,443
  NeoScan-Scanner scan port -t example.com -p 1-1000 --oj result.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 注入全局输出参数
			opts.Output = globalOutputOptions
			if err := opts.Validate(); err != nil {
				return err
			}
			return runTask(*configPath, opts.ToTask(), opts.Output)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", opts.Target, "扫描目标 (IP/Domain/CIDR)")
	flags.StringVarP(&opts.Port, "port", "p", opts.Port, "端口范围 (e.g. 80,443,1-1000)")
	flags.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "扫描总时限 (e.g. 30s)，默认使用配置")

	cmd.MarkFlagRequired("target")

	return cmd
}
