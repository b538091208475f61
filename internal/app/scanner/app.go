/**
 * 扫描服务应用程序核心逻辑
 * @author: sun977
 * @date: 2025.10.21
 * @description: 负责加载配置、初始化日志与各模块、启动与停止 HTTP 服务，
 *               并在配置文件变更时热更新日志级别与 CORS 来源
 */

package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"neoscanner/internal/app/scanner/router"
	"neoscanner/internal/app/scanner/setup"
	"neoscanner/internal/config"
	"neoscanner/internal/pkg/logger"
)

// App 扫描服务应用程序结构体
type App struct {
	router     *router.Router
	httpServer *http.Server
	config     *config.Config
	configFile string
	logger     *logger.LoggerManager
	watcher    *config.ConfigWatcher
}

// NewApp 创建新的应用程序实例，configPath 为空时按默认目录查找配置文件
func NewApp(configPath string) (*App, error) {
	// 加载配置
	cfg, configFile, err := config.LoadConfigWithPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化日志管理器
	loggerManager, err := logger.InitLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	logger.LoggerInstance = loggerManager

	logger.Info("NeoScan scanner initializing...")

	coreModule, err := setup.SetupCore(cfg)
	if err != nil {
		return nil, err
	}
	serverModule := setup.SetupServer(cfg, coreModule)

	return &App{
		router:     serverModule.Router,
		httpServer: serverModule.HTTPServer,
		config:     cfg,
		configFile: configFile,
		logger:     loggerManager,
	}, nil
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// GetConfig 获取配置实例
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetHTTPServer 获取HTTP服务器实例
func (a *App) GetHTTPServer() *http.Server {
	return a.httpServer
}

// Start 启动 HTTP 服务，监听失败通过返回的 channel 通知调用方
func (a *App) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		var err error
		if a.config.Server.TLS.Enabled {
			err = a.httpServer.ListenAndServeTLS(a.config.Server.TLS.CertFile, a.config.Server.TLS.KeyFile)
		} else {
			err = a.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start HTTP server: ", err)
			errCh <- err
		}
		close(errCh)
	}()

	a.startConfigWatcher()

	logger.LogSystemEvent("scanner", "started", "NeoScan scanner started", logger.InfoLevel, map[string]interface{}{
		"address": a.httpServer.Addr,
		"tls":     a.config.Server.TLS.Enabled,
		"mode":    a.config.Server.Mode,
	})
	return errCh
}

// Stop 停止 HTTP 服务并释放中间件资源
func (a *App) Stop(ctx context.Context) error {
	logger.Info("Stopping NeoScan scanner...")

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			logger.Warn("Failed to stop config watcher: ", err)
		}
	}

	err := a.httpServer.Shutdown(ctx)
	a.router.Close()
	if err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	logger.Info("NeoScan scanner stopped successfully")
	return nil
}

// startConfigWatcher 有配置文件时监听变更
func (a *App) startConfigWatcher() {
	if a.configFile == "" {
		return
	}

	watcher, err := config.WatchConfig(a.configFile, a.config, a.onConfigChange)
	if err != nil {
		logger.LogSystemEvent("config", "watch_failed", "配置热重载未启用", logger.WarnLevel, map[string]interface{}{
			"file":  a.configFile,
			"error": err.Error(),
		})
		return
	}
	watcher.SetLogger(a.logger.GetLogger())
	a.watcher = watcher
}

// onConfigChange 只应用运行期可变的配置项
func (a *App) onConfigChange(oldConfig, newConfig *config.Config) error {
	if err := config.ValidateConfigChange(oldConfig, newConfig); err != nil {
		return err
	}
	if err := a.logger.UpdateConfig(newConfig.Log); err != nil {
		return err
	}
	if newConfig.Middleware != nil && newConfig.Middleware.CORS != nil {
		a.router.UpdateCORSOrigins(newConfig.Middleware.CORS.AllowOrigins)
	}
	a.config = newConfig
	return nil
}
