package setup

import (
	"fmt"

	"neoscanner/internal/config"
	"neoscanner/internal/core/runner"
	"neoscanner/internal/pkg/logger"
	historyRepo "neoscanner/internal/repo/redis"
	scanService "neoscanner/internal/service/scan"
)

// SetupCore 初始化扫描引擎、历史存储与扫描服务
// 历史存储不可用时降级为 Noop，不阻止服务启动
func SetupCore(cfg *config.Config) (*CoreModule, error) {
	manager, err := runner.NewRunnerManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init scan engines: %w", err)
	}

	history, err := historyRepo.NewHistoryStore(cfg.History)
	if err != nil {
		logger.LogSystemEvent("history", "init_failed", "扫描历史存储不可用，已禁用", logger.WarnLevel, map[string]interface{}{
			"addr":  cfg.History.Addr,
			"error": err.Error(),
		})
		history = historyRepo.NoopHistoryStore{}
	}

	return &CoreModule{
		RunnerManager: manager,
		History:       history,
		ScanService:   scanService.NewScanService(manager, history),
	}, nil
}
