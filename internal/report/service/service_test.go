package service

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/lifecycle"
	"health-report-workers/internal/report/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// memoryRepository keeps every put so tests can inspect the write history.
type memoryRepository struct {
	mu      sync.Mutex
	docs    map[string]models.Report
	history []models.Report
	putErrs []error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{docs: map[string]models.Report{}}
}

func (m *memoryRepository) Put(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.putErrs) > 0 {
		err := m.putErrs[0]
		m.putErrs = m.putErrs[1:]
		if err != nil {
			return err
		}
	}
	key := r.OwnerID + "/" + r.ReportID
	if existing, ok := m.docs[key]; ok && existing.Status.IsTerminal() {
		return lifecycle.ErrReportTerminal
	}
	m.docs[key] = *r
	m.history = append(m.history, *r)
	return nil
}

func (m *memoryRepository) Get(_ context.Context, ownerID, reportID string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.docs[ownerID+"/"+reportID]
	if !ok {
		return nil, errors.NewReportNotFoundError(ownerID, reportID)
	}
	return &r, nil
}

func (m *memoryRepository) LatestByOrder(ctx context.Context, ownerID, orderID string) (*models.Report, error) {
	all, _ := m.ListByOwner(ctx, ownerID, 0)
	for i := range all {
		if all[i].OrderID == orderID {
			return &all[i], nil
		}
	}
	return nil, errors.NewReportNotFoundError(ownerID, "order:"+orderID)
}

func (m *memoryRepository) ListByOwner(_ context.Context, ownerID string, limit int) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Report{}
	for _, r := range m.docs {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubGuard struct {
	acquired bool
	err      error
}

func (g stubGuard) Acquire(context.Context, string, string) (lock.Lease, bool, error) {
	return nil, g.acquired, g.err
}

const narrativeText = `# Overview
Your answers point to poor sleep and moderate stress.

Energy is low in the afternoon.

## Key Recommendations
1. Keep a consistent bedtime every night
2. Walk for twenty minutes after lunch

## Conclusion
Small, steady changes will help.
`

func intake() *models.IntakeRecord {
	return &models.IntakeRecord{
		Age:         "44",
		SleepEnergy: models.CategoryAnswers{{Key: "sleep_quality_rating", Value: "often"}},
	}
}

func validRequest() GenerateRequest {
	return GenerateRequest{
		OwnerID:      "u1",
		OrderID:      "o1",
		OrderStatus:  models.OrderConfirmed,
		Intake:       intake(),
		SubjectName:  "Ana",
		SubjectEmail: "ana@example.com",
	}
}

var clock = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *memoryRepository, gen generatorFunc, guard lock.Guard) *Service {
	if guard == nil {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		guard = lock.NewRedisGuard(rdb, time.Minute)
	}
	return New(Dependencies{
		Generator: gen,
		Store:     repo,
		Guard:     guard,
		Now:       func() time.Time { return clock },
		ListLimit: 10,
	}, logger.NewTestLogger(t))
}

func TestGenerate_Completes(t *testing.T) {
	repo := newMemoryRepository()
	var prompt string
	svc := newTestService(t, repo, func(_ context.Context, p string) (string, error) {
		prompt = p
		return narrativeText, nil
	}, nil)

	report, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, report.Status)
	assert.Equal(t, narrativeText, report.FullContent)
	assert.Equal(t, []string{"Keep a consistent bedtime every night", "Walk for twenty minutes after lunch"}, report.Recommendations)
	assert.Equal(t, "Small, steady changes will help.", report.Conclusions)
	assert.Contains(t, prompt, "Name: Ana")

	require.Len(t, repo.history, 2)
	assert.Equal(t, models.StatusGenerating, repo.history[0].Status)
	assert.Equal(t, lifecycle.PlaceholderTitle, repo.history[0].Title)
	assert.Equal(t, models.StatusCompleted, repo.history[1].Status)
	assert.Equal(t, repo.history[0].ReportID, repo.history[1].ReportID)
}

func TestGenerate_GeneratorFailureSettlesFailed(t *testing.T) {
	tests := []struct {
		name      string
		gen       generatorFunc
		wantError string
	}{
		{
			name: "transport error",
			gen: func(context.Context, string) (string, error) {
				return "", errors.NewGenerationTransportError(stderrors.New("status 502"))
			},
			wantError: "Narrative generation failed: status 502",
		},
		{
			name:      "whitespace narrative",
			gen:       func(context.Context, string) (string, error) { return "  \n\t", nil },
			wantError: "Narrative generator returned empty text",
		},
		{
			name:      "plain error",
			gen:       func(context.Context, string) (string, error) { return "", stderrors.New("connection refused") },
			wantError: "connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			report, err := newTestService(t, repo, tt.gen, nil).Generate(context.Background(), validRequest())

			require.NoError(t, err, "generator failures are absorbed into the report")
			assert.Equal(t, models.StatusFailed, report.Status)
			assert.Equal(t, tt.wantError, report.Error)
			assert.Empty(t, report.Recommendations)
			require.Len(t, repo.history, 2)
			assert.Equal(t, repo.history[0].ReportID, report.ReportID)
		})
	}
}

func TestGenerate_RejectedBeforePersistence(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*GenerateRequest)
		guard    lock.Guard
		wantCode errors.ErrorCode
	}{
		{"missing owner", func(r *GenerateRequest) { r.OwnerID = " " }, nil, errors.ErrCodeInvalidIntake},
		{"missing intake", func(r *GenerateRequest) { r.Intake = nil }, nil, errors.ErrCodeInvalidIntake},
		{"missing subject", func(r *GenerateRequest) { r.SubjectName = "" }, nil, errors.ErrCodeInvalidIntake},
		{"cancelled order", func(r *GenerateRequest) { r.OrderStatus = models.OrderCancelled }, nil, errors.ErrCodeOrderNotEligible},
		{"unknown order status", func(r *GenerateRequest) { r.OrderStatus = "shipped" }, nil, errors.ErrCodeInvalidIntake},
		{"in flight", func(*GenerateRequest) {}, stubGuard{acquired: false}, errors.ErrCodeGenerationInFlight},
		{"lock unavailable", func(*GenerateRequest) {}, stubGuard{err: stderrors.New("dial tcp")}, errors.ErrCodeExternalService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			called := false
			svc := newTestService(t, repo, func(context.Context, string) (string, error) {
				called = true
				return narrativeText, nil
			}, tt.guard)

			req := validRequest()
			tt.mutate(&req)
			report, err := svc.Generate(context.Background(), req)

			assert.Nil(t, report)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
			assert.False(t, called)
			assert.Empty(t, repo.history)
		})
	}
}

func TestGenerate_EmptyOrderStatusAllowed(t *testing.T) {
	req := validRequest()
	req.OrderStatus = ""

	report, err := newTestService(t, newMemoryRepository(), func(context.Context, string) (string, error) {
		return narrativeText, nil
	}, nil).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, report.Status)
}

func TestGenerate_ConcurrentAttemptRejected(t *testing.T) {
	repo := newMemoryRepository()
	entered := make(chan struct{})
	release := make(chan struct{})
	svc := newTestService(t, repo, func(context.Context, string) (string, error) {
		close(entered)
		<-release
		return narrativeText, nil
	}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(context.Background(), validRequest())
		done <- err
	}()
	<-entered

	_, err := svc.Generate(context.Background(), validRequest())
	assert.True(t, errors.HasCode(err, errors.ErrCodeGenerationInFlight))

	close(release)
	require.NoError(t, <-done)
}

func TestGenerate_CancellationLeavesGenerating(t *testing.T) {
	repo := newMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	svc := newTestService(t, repo, func(ctx context.Context, _ string) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}, nil)

	report, err := svc.Generate(ctx, validRequest())
	require.Error(t, err)
	assert.True(t, errors.IsGenerationFailure(err))
	require.NotNil(t, report)
	assert.Equal(t, models.StatusGenerating, report.Status)
	require.Len(t, repo.history, 1)
}

func TestGenerate_FinalizeStoreErrorFallsBackToFailed(t *testing.T) {
	repo := newMemoryRepository()
	repo.putErrs = []error{nil, errors.NewReportStoreFailedError("put", stderrors.New("disk full"))}

	report, err := newTestService(t, repo, func(context.Context, string) (string, error) {
		return narrativeText, nil
	}, nil).Generate(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, report.Status)
	assert.True(t, strings.HasPrefix(report.Error, "Failed to save report: Report store operation failed"))
}

func TestGenerate_BeginStoreError(t *testing.T) {
	repo := newMemoryRepository()
	repo.putErrs = []error{errors.NewReportStoreFailedError("put", stderrors.New("down"))}

	report, err := newTestService(t, repo, func(context.Context, string) (string, error) {
		return narrativeText, nil
	}, nil).Generate(context.Background(), validRequest())

	assert.Nil(t, report)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportStoreFailed))
}

func TestReadSide(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(t, repo, func(context.Context, string) (string, error) {
		return narrativeText, nil
	}, nil)

	report, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), "u1", report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, report.ReportID, got.ReportID)

	latest, err := svc.LatestForOrder(context.Background(), "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, report.ReportID, latest.ReportID)

	_, err = svc.LatestForOrder(context.Background(), "u1", "o9")
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportNotFound))

	previews, err := svc.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, lifecycle.CompletedTitle, previews[0].Title)
	assert.True(t, strings.HasSuffix(previews[0].Summary, "..."))

	_, err = svc.Search(context.Background(), "u1", "sleep", 5)
	assert.True(t, errors.HasCode(err, errors.ErrCodeResourceNotFound))
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Narrative generator returned empty text", FailureMessage(errors.NewEmptyNarrativeError()))
	assert.Equal(t, "boom", FailureMessage(stderrors.New("boom")))
}
