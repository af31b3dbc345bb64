package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/common/metrics"
	"health-report-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedStore is a read-through cache in front of a Repository. Only
// completed and failed documents are cached; they never change again.
type CachedStore struct {
	next   Repository
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(next Repository, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "report-cache"}),
	}
}

func cacheKey(ownerID, reportID string) string {
	return fmt.Sprintf("report:%s:%s", ownerID, reportID)
}

func (c *CachedStore) Put(ctx context.Context, report *models.Report) error {
	if err := c.next.Put(ctx, report); err != nil {
		return err
	}
	if report.Status.IsTerminal() {
		c.remember(ctx, report)
	}
	return nil
}

func (c *CachedStore) Get(ctx context.Context, ownerID, reportID string) (*models.Report, error) {
	key := cacheKey(ownerID, reportID)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var r models.Report
		if jsonErr := json.Unmarshal([]byte(val), &r); jsonErr == nil {
			metrics.ReportCacheLookups.WithLabelValues("hit").Inc()
			return &r, nil
		}
		metrics.ReportCacheLookups.WithLabelValues("error").Inc()
	case stderrors.Is(err, redis.Nil):
		metrics.ReportCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.ReportCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Report cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	report, err := c.next.Get(ctx, ownerID, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status.IsTerminal() {
		c.remember(ctx, report)
	}
	return report, nil
}

func (c *CachedStore) LatestByOrder(ctx context.Context, ownerID, orderID string) (*models.Report, error) {
	return c.next.LatestByOrder(ctx, ownerID, orderID)
}

func (c *CachedStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Report, error) {
	return c.next.ListByOwner(ctx, ownerID, limit)
}

func (c *CachedStore) remember(ctx context.Context, report *models.Report) {
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	key := cacheKey(report.OwnerID, report.ReportID)
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Report cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
