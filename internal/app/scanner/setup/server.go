package setup

import (
	"crypto/tls"
	"net/http"

	"neoscanner/internal/app/scanner/router"
	"neoscanner/internal/config"
)

// SetupServer 初始化路由与 HTTP 服务器
func SetupServer(cfg *config.Config, core *CoreModule) *ServerModule {
	r := router.NewRouter(cfg, core.ScanService)

	httpServer := &http.Server{
		Addr:           cfg.Server.Address(),
		Handler:        r.GetEngine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	if cfg.Server.TLS.Enabled {
		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &ServerModule{
		Router:     r,
		HTTPServer: httpServer,
	}
}
