package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoscanner/internal/core/model"
	scanModel "neoscanner/internal/model/scan"
)

// testClient 连接本地 Redis 的测试库，不可用时跳过
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("NEOSCAN_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	client.FlushDB(context.Background())
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func newRecord(created time.Time) *scanModel.ScanRecord {
	task := model.NewTask(model.TaskTypePortScan, "127.0.0.1", "22")
	task.ID = uuid.NewString()
	task.CreatedAt = created
	report := &model.ScanReport{ID: task.ID, Kind: task.Type, Target: task.Target, Status: model.ReportCompleted}
	return scanModel.NewScanRecord(task, model.TaskStatusCompleted, report, nil, created.Add(time.Second))
}

func TestHistoryRepository_SaveGetList(t *testing.T) {
	repo := NewHistoryRepository(testClient(t), time.Minute, 2)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	r1, r2, r3 := newRecord(base), newRecord(base.Add(time.Minute)), newRecord(base.Add(2*time.Minute))
	for _, r := range []*scanModel.ScanRecord{r1, r2, r3} {
		require.NoError(t, repo.Save(ctx, r))
	}

	got, err := repo.Get(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, r2.Target, got.Target)
	assert.Equal(t, model.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Results)
	assert.Equal(t, model.ReportCompleted, got.Results.Status)

	// 上限为 2，最旧的记录不再出现在列表中
	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r3.ID, list[0].ID)
	assert.Equal(t, r2.ID, list[1].ID)
}

func TestHistoryRepository_NotFound(t *testing.T) {
	repo := NewHistoryRepository(testClient(t), time.Minute, 10)
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestNoopHistoryStore(t *testing.T) {
	store, err := NewHistoryStore(nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, store.Save(ctx, newRecord(time.Now())))
	_, err = store.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = store.List(ctx, 5)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}
