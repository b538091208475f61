package setup

import (
	"net/http"

	"neoscanner/internal/app/scanner/router"
	"neoscanner/internal/core/runner"
	historyRepo "neoscanner/internal/repo/redis"
	scanService "neoscanner/internal/service/scan"
)

// CoreModule 核心扫描模块
type CoreModule struct {
	RunnerManager *runner.RunnerManager
	History       historyRepo.HistoryStore
	ScanService   scanService.ScanService
}

// ServerModule 服务器模块
type ServerModule struct {
	Router     *router.Router
	HTTPServer *http.Server
}
