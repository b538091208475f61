/*
 * @author: Sun977
 * @date: 2026.01.21
 * @description: Server 模式子命令
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neoscanner/internal/app/scanner"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动扫描 HTTP 服务",
	Long: `以守护进程方式启动扫描服务，对外提供 /scan/ports、/scan/vulnerabilities、/scan/ssl 等接口。

配置优先级: 环境变量 > 配置文件 > 默认值。

示例:
  NeoScan-Scanner server --config ./configs/config.yaml
  NEOSCAN_SERVER_PORT=9000 NeoScan-Scanner server`,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer() {
	app, err := scanner.NewApp(cfgFile)
	if err != nil {
		log.Fatalf("Failed to create scanner app: %v", err)
	}

	errCh := app.Start()

	// 等待中断信号或监听失败
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Println("Shutting down NeoScan scanner...")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Stop(ctx); err != nil {
		log.Fatal("Scanner forced to shutdown: ", err)
	}

	log.Println("NeoScan scanner exiting")
}
