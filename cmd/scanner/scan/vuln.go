package scan

import (
	"neoscanner/internal/core/options"

	"github.com/spf13/cobra"
)

// NewVulnScanCmd 端口扫描 + 服务识别 + TLS + 暴露面检查 + 漏洞规则
func NewVulnScanCmd(configPath *string) *cobra.Command {
	opts := options.NewVulnScanOptions()

	cmd := &cobra.Command{
		Use:   "vuln",
		Short: "漏洞检查",
		Long: `在端口扫描基础上做 TLS 检查、暴露面检查，并按规则匹配已知漏洞，输出风险等级。

示例:
  NeoScan-Scanner scan vuln -t 10.0.0.5 -p 21,22,80,443,6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
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
