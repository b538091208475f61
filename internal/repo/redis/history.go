/**
 * 仓库层:扫描历史数据访问
 * @author: sun977
 * @date: 2026.01.26
 * @description: 扫描历史存储在 Redis，记录为 JSON 字符串，按创建时间维护一个有序集合用于列表查询
 * @func: 单纯数据访问，不包含业务逻辑
 */
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"neoscanner/internal/config"
	scanModel "neoscanner/internal/model/scan"
)

const (
	recentKey = "scans:recent"

	DefaultHistoryTTL      = 7 * 24 * time.Hour
	DefaultHistoryMaxItems = 1000
	DefaultListLimit       = 20
)

var (
	// ErrRecordNotFound 记录不存在或已过期
	ErrRecordNotFound = errors.New("scan record not found")
	// ErrHistoryDisabled 未启用历史记录
	ErrHistoryDisabled = errors.New("scan history is disabled")
)

// HistoryStore 扫描历史存储接口
type HistoryStore interface {
	Save(ctx context.Context, record *scanModel.ScanRecord) error
	Get(ctx context.Context, id string) (*scanModel.ScanRecord, error)
	List(ctx context.Context, limit int64) ([]*scanModel.ScanRecord, error)
}

// HistoryRepository Redis 扫描历史存储库
type HistoryRepository struct {
	client   *redis.Client
	ttl      time.Duration
	maxItems int64
}

// NewHistoryRepository 创建历史存储库实例
func NewHistoryRepository(client *redis.Client, ttl time.Duration, maxItems int64) *HistoryRepository {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	if maxItems <= 0 {
		maxItems = DefaultHistoryMaxItems
	}
	return &HistoryRepository{
		client:   client,
		ttl:      ttl,
		maxItems: maxItems,
	}
}

// NewRedisConnection 创建 Redis 连接并测试连通性
func NewRedisConnection(cfg *config.HistoryConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// NewHistoryStore 按配置创建历史存储，未启用时返回空实现
func NewHistoryStore(cfg *config.HistoryConfig) (HistoryStore, error) {
	if cfg == nil || !cfg.Enabled {
		return NoopHistoryStore{}, nil
	}
	client, err := NewRedisConnection(cfg)
	if err != nil {
		return nil, err
	}
	return NewHistoryRepository(client, cfg.TTL, cfg.MaxItems), nil
}

// Save 存储扫描记录，超出上限的旧记录从列表中移除
func (r *HistoryRepository) Save(ctx context.Context, record *scanModel.ScanRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal scan record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.getRecordKey(record.ID), data, r.ttl)
	pipe.ZAdd(ctx, recentKey, redis.Z{
		Score:  float64(record.CreatedAt.UnixNano()),
		Member: record.ID,
	})
	// 仅保留最新 maxItems 条
	pipe.ZRemRangeByRank(ctx, recentKey, 0, -r.maxItems-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store scan record: %w", err)
	}
	return nil
}

// Get 获取单条扫描记录
func (r *HistoryRepository) Get(ctx context.Context, id string) (*scanModel.ScanRecord, error) {
	data, err := r.client.Get(ctx, r.getRecordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get scan record: %w", err)
	}

	var record scanModel.ScanRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan record: %w", err)
	}
	return &record, nil
}

// List 按创建时间倒序返回最近的记录，已过期的记录会被跳过并从有序集合中清理
func (r *HistoryRepository) List(ctx context.Context, limit int64) ([]*scanModel.ScanRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ids, err := r.client.ZRevRange(ctx, recentKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scan records: %w", err)
	}
	records := make([]*scanModel.ScanRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.getRecordKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load scan records: %w", err)
	}

	var expired []interface{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var record scanModel.ScanRecord
		if err := json.Unmarshal([]byte(s), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scan record: %w", err)
		}
		records = append(records, &record)
	}
	if len(expired) > 0 {
		r.client.ZRem(ctx, recentKey, expired...)
	}
	return records, nil
}

// getRecordKey 生成记录键[KEY:scan:{id}]
func (r *HistoryRepository) getRecordKey(id string) string {
	return "scan:" + id
}

// NoopHistoryStore 未启用历史记录时使用
type NoopHistoryStore struct{}

func (NoopHistoryStore) Save(context.Context, *scanModel.ScanRecord) error { return nil }

func (NoopHistoryStore) Get(context.Context, string) (*scanModel.ScanRecord, error) {
	return nil, ErrHistoryDisabled
}

func (NoopHistoryStore) List(context.Context, int64) ([]*scanModel.ScanRecord, error) {
	return nil, ErrHistoryDisabled
}
