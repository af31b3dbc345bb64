package indexreport

import (
	"context"
	"fmt"
	"time"

	"health-report-workers/internal/common/config"
	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/common/metrics"
	"health-report-workers/internal/common/validation"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/risk"
	"health-report-workers/internal/report/search"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "index-health-report"

type ReportReader interface {
	Get(ctx context.Context, ownerID, reportID string) (*models.Report, error)
}

type Indexer interface {
	IndexReport(ctx context.Context, report *models.Report) (search.Document, error)
}

type Handler struct {
	config  *Config
	logger  logger.Logger
	reports ReportReader
	index   Indexer
	errors  *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig *config.Config
	Reports   ReportReader
	Index     Indexer
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Reports == nil || opts.Index == nil {
		return nil, fmt.Errorf("%s requires a report reader and an index", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.With(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:  workerConfig,
		logger:  log,
		reports: opts.Reports,
		index:   opts.Index,
		errors:  errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
			return
		}
	}

	code := string(errors.Normalize(err).Code)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errors.HandleJobError(context.WithoutCancel(ctx), client, job, err)
}

// Execute indexes a completed report. Reports that did not complete are
// skipped and reported as not indexed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	report, err := h.reports.Get(ctx, input.UserID, input.ReportID)
	if err != nil {
		return nil, err
	}

	if report.Status != models.StatusCompleted {
		h.logger.Info("Skipping index for unsettled or failed report", map[string]interface{}{
			"reportId": report.ReportID,
			"status":   report.Status,
		})
		return &Output{RiskLevels: []risk.Assessment{}}, nil
	}

	doc, err := h.index.IndexReport(ctx, report)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Report indexed", map[string]interface{}{
		"reportId":   report.ReportID,
		"riskLevels": len(doc.RiskLevels),
		"urgent":     doc.Urgent,
	})
	return &Output{Indexed: true, RiskLevels: doc.RiskLevels, Urgent: doc.Urgent}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewInvalidIntakeError(
			fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
	}

	return &Input{
		UserID:   variables["userId"].(string),
		ReportID: variables["reportId"].(string),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) Enabled() bool {
	return h.config.Enabled
}
