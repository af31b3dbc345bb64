package camunda

import (
	"context"
	"sync"
	"time"

	"health-report-workers/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// HandlerFunc is the job callback signature the Zeebe client expects.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// JobRecorder receives one observation per handled job.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// Pool opens job workers and closes them together on shutdown.
type Pool struct {
	client   zbc.Client
	logger   *zap.Logger
	recorder JobRecorder
	mu       sync.Mutex
	workers  map[string]worker.JobWorker
}

func NewPool(client zbc.Client, logger *zap.Logger) *Pool {
	return &Pool{
		client:  client,
		logger:  logger,
		workers: make(map[string]worker.JobWorker),
	}
}

// WithRecorder makes every handler started afterwards report to r.
func (p *Pool) WithRecorder(r JobRecorder) *Pool {
	p.recorder = r
	return p
}

func (p *Pool) instrument(taskType string, handler HandlerFunc) HandlerFunc {
	if p.recorder == nil {
		return handler
	}
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		handler(client, job)
		ctx := context.Background()
		p.recorder.RecordJobProcessed(ctx, taskType, "handled")
		p.recorder.RecordJobDuration(ctx, taskType, time.Since(start), "handled")
	}
}

// Start opens a worker for taskType unless it is disabled or already running.
func (p *Pool) Start(taskType string, wcfg config.WorkerConfig, handler HandlerFunc) bool {
	if !wcfg.Enabled {
		p.logger.Info("worker disabled", zap.String("taskType", taskType))
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.workers[taskType]; exists {
		p.logger.Warn("worker already started", zap.String("taskType", taskType))
		return false
	}

	jobWorker := p.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(p.instrument(taskType, handler))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Name(taskType + "-worker").
		Open()
	p.workers[taskType] = jobWorker

	p.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return true
}

func (p *Pool) Running() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.workers))
	for taskType := range p.workers {
		types = append(types, taskType)
	}
	return types
}

// Close stops every worker and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for taskType, w := range p.workers {
		p.logger.Info("stopping worker", zap.String("taskType", taskType))
		w.Close()
		w.AwaitClose()
		delete(p.workers, taskType)
	}
}
