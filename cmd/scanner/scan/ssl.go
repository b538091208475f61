package scan

import (
	"neoscanner/internal/core/options"

	"github.com/spf13/cobra"
)

// NewSSLScanCmd 单端口 TLS 检查
func NewSSLScanCmd(configPath *string) *cobra.Command {
	opts := options.NewSSLScanOptions()

	cmd := &cobra.Command{
		Use:   "ssl",
		Short: "TLS 证书与协议检查",
		Long: `对目标端口做 TLS 握手，检查证书链、有效期、主机名、协议版本与加密套件。

示例:
  NeoScan-Scanner scan ssl -t example.com
  NeoScan-Scanner scan ssl -t 10.0.0.5 -p 8443 --oc tls.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Output = globalOutputOptions
			if err := opts.Validate(); err != nil {
				return err
			}
			return runTask(*configPath, opts.ToTask(), opts.Output)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", opts.Target, "扫描目标 (域名/IP，可写成 host:port)")
	flags.IntVarP(&opts.Port, "port", "p", opts.Port, "TLS 端口，默认使用配置 (443)")
	flags.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "扫描总时限 (e.g. 10s)，默认使用配置")

	cmd.MarkFlagRequired("target")

	return cmd
}
