/**
 * 服务层:扫描服务
 * @author: Sun977
 * @date: 2026.01.26
 * @description: 提交扫描任务并等待结果，任务结束后写入扫描历史
 * @func: 端口扫描、漏洞扫描、SSL 检查、历史查询
 */
package scan

import (
	"context"
	"time"

	"neoscanner/internal/core/model"
	"neoscanner/internal/core/runner"
	scanModel "neoscanner/internal/model/scan"
	"neoscanner/internal/pkg/logger"
	historyRepo "neoscanner/internal/repo/redis"
)

// historySaveTimeout 写入历史记录的超时
const historySaveTimeout = 3 * time.Second

// TaskSubmitter 提交扫描任务，RunnerManager 实现此接口
type TaskSubmitter interface {
	Submit(ctx context.Context, task *model.Task) *runner.ScanTask
}

// ScanService 扫描服务接口定义
type ScanService interface {
	// Scan 执行扫描并等待结果，ctx 结束时扫描随之取消
	Scan(ctx context.Context, task *model.Task) (*model.ScanReport, error)
	GetScan(ctx context.Context, id string) (*scanModel.ScanRecord, error)
	ListScans(ctx context.Context, limit int64) ([]*scanModel.ScanRecord, error)
}

// scanService 扫描服务实现
type scanService struct {
	submitter TaskSubmitter
	history   historyRepo.HistoryStore
}

// NewScanService 创建扫描服务实例，history 为空时不记录历史
func NewScanService(submitter TaskSubmitter, history historyRepo.HistoryStore) ScanService {
	if history == nil {
		history = historyRepo.NoopHistoryStore{}
	}
	return &scanService{
		submitter: submitter,
		history:   history,
	}
}

func (s *scanService) Scan(ctx context.Context, task *model.Task) (*model.ScanReport, error) {
	st := s.submitter.Submit(ctx, task)

	report, err := st.Wait(ctx)
	select {
	case <-st.Done():
		s.record(st)
	default:
		// 调用方先退出，任务 context 派生自 ctx，很快会结束
		go func() {
			<-st.Done()
			s.record(st)
		}()
	}
	return report, err
}

// record 写入历史记录，失败只记日志
func (s *scanService) record(st *runner.ScanTask) {
	report, err := st.Wait(context.Background())
	rec := scanModel.NewScanRecord(st.Task, st.Status(), report, err, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), historySaveTimeout)
	defer cancel()
	if saveErr := s.history.Save(ctx, rec); saveErr != nil {
		logger.LogSystemEvent("history", "save_failed", saveErr.Error(), logger.WarnLevel, map[string]interface{}{
			"scan_id": rec.ID,
		})
	}
}

func (s *scanService) GetScan(ctx context.Context, id string) (*scanModel.ScanRecord, error) {
	return s.history.Get(ctx, id)
}

func (s *scanService) ListScans(ctx context.Context, limit int64) ([]*scanModel.ScanRecord, error) {
	return s.history.List(ctx, limit)
}
