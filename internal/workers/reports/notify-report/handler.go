package notifyreport

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
	"health-report-workers/internal/report/notify"
	"health-report-workers/internal/report/risk"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "notify-health-report"

type ReportReader interface {
	Get(ctx context.Context, ownerID, reportID string) (*models.Report, error)
}

type Notifier interface {
	Notify(ctx context.Context, report *models.Report, urgent bool) (*notify.Result, error)
}

type Handler struct {
	config   *Config
	logger   logger.Logger
	reports  ReportReader
	notifier Notifier
	errors   *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig *config.Config
	Reports   ReportReader
	Notifier  Notifier
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Reports == nil || opts.Notifier == nil {
		return nil, fmt.Errorf("%s requires a report reader and a notifier", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.With(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:   workerConfig,
		logger:   log,
		reports:  opts.Reports,
		notifier: opts.Notifier,
		errors:   errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	report, err := h.reports.Get(ctx, input.UserID, input.ReportID)
	if err != nil {
		return nil, err
	}

	urgent := false
	if input.Urgent != nil {
		urgent = *input.Urgent
	} else if completed, ok := report.State().(models.Completed); ok {
		urgent = risk.RequiresPromptAttention(completed.FullContent, risk.Scan(completed.FullContent, completed.Sections))
	}

	result, err := h.notifier.Notify(ctx, report, urgent)
	if err != nil {
		return nil, err
	}
	return &Output{EmailSent: result.EmailSent, EventID: result.EventID}, nil
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

	input := &Input{
		UserID:   variables["userId"].(string),
		ReportID: variables["reportId"].(string),
	}
	if urgent, ok := variables["reportUrgent"].(bool); ok {
		input.Urgent = &urgent
	}
	return input, nil
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

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(context.WithoutCancel(ctx), client, job, err)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) Enabled() bool {
	return h.config.Enabled
}
