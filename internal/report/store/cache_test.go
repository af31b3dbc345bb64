package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Put(ctx context.Context, r *models.Report) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRepository) Get(ctx context.Context, ownerID, reportID string) (*models.Report, error) {
	args := m.Called(ctx, ownerID, reportID)
	r, _ := args.Get(0).(*models.Report)
	return r, args.Error(1)
}

func (m *mockRepository) LatestByOrder(ctx context.Context, ownerID, orderID string) (*models.Report, error) {
	args := m.Called(ctx, ownerID, orderID)
	r, _ := args.Get(0).(*models.Report)
	return r, args.Error(1)
}

func (m *mockRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Report, error) {
	args := m.Called(ctx, ownerID, limit)
	r, _ := args.Get(0).([]models.Report)
	return r, args.Error(1)
}

const cacheTTL = 10 * time.Minute

func TestCachedStore_GetHit(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := &mockRepository{}
	cached := sampleReport(models.StatusCompleted)
	data, _ := json.Marshal(cached)

	redisMock.ExpectGet(cacheKey("u1", cached.ReportID)).SetVal(string(data))

	c := NewCachedStore(repo, rdb, cacheTTL, logger.NewTestLogger(t))
	got, err := c.Get(context.Background(), "u1", cached.ReportID)
	require.NoError(t, err)
	assert.Equal(t, cached.Summary, got.Summary)

	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedStore_GetMissCachesTerminal(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := &mockRepository{}
	stored := sampleReport(models.StatusCompleted)
	data, _ := json.Marshal(stored)
	key := cacheKey("u1", stored.ReportID)

	redisMock.ExpectGet(key).RedisNil()
	repo.On("Get", mock.Anything, "u1", stored.ReportID).Return(stored, nil)
	redisMock.ExpectSet(key, data, cacheTTL).SetVal("OK")

	c := NewCachedStore(repo, rdb, cacheTTL, logger.NewTestLogger(t))
	got, err := c.Get(context.Background(), "u1", stored.ReportID)
	require.NoError(t, err)
	assert.Equal(t, stored.ReportID, got.ReportID)

	repo.AssertExpectations(t)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedStore_GetMissSkipsGenerating(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := &mockRepository{}
	stored := sampleReport(models.StatusGenerating)

	redisMock.ExpectGet(cacheKey("u1", stored.ReportID)).RedisNil()
	repo.On("Get", mock.Anything, "u1", stored.ReportID).Return(stored, nil)

	c := NewCachedStore(repo, rdb, cacheTTL, logger.NewTestLogger(t))
	_, err := c.Get(context.Background(), "u1", stored.ReportID)
	require.NoError(t, err)

	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedStore_PutWritesThroughTerminal(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := &mockRepository{}
	report := sampleReport(models.StatusCompleted)
	data, _ := json.Marshal(report)

	repo.On("Put", mock.Anything, report).Return(nil)
	redisMock.ExpectSet(cacheKey("u1", report.ReportID), data, cacheTTL).SetVal("OK")

	c := NewCachedStore(repo, rdb, cacheTTL, logger.NewTestLogger(t))
	require.NoError(t, c.Put(context.Background(), report))

	repo.AssertExpectations(t)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedStore_PutErrorSkipsCache(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := &mockRepository{}
	report := sampleReport(models.StatusCompleted)

	repo.On("Put", mock.Anything, report).Return(assert.AnError)

	c := NewCachedStore(repo, rdb, cacheTTL, logger.NewTestLogger(t))
	assert.ErrorIs(t, c.Put(context.Background(), report), assert.AnError)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedStore_ReadErrorFallsBack(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := &mockRepository{}
	stored := sampleReport(models.StatusGenerating)

	redisMock.ExpectGet(cacheKey("u1", stored.ReportID)).SetErr(assert.AnError)
	repo.On("Get", mock.Anything, "u1", stored.ReportID).Return(stored, nil)

	c := NewCachedStore(repo, rdb, cacheTTL, logger.NewTestLogger(t))
	got, err := c.Get(context.Background(), "u1", stored.ReportID)
	require.NoError(t, err)
	assert.Equal(t, stored.ReportID, got.ReportID)
}
