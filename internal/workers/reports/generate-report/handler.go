package generatereport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"health-report-workers/internal/common/config"
	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/common/metrics"
	"health-report-workers/internal/common/validation"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/service"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "generate-health-report"

// ReportGenerator is the slice of the report service this worker drives.
type ReportGenerator interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*models.Report, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	generator ReportGenerator
	errors    *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig *config.Config
	Generator ReportGenerator
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("%s requires a report generator", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.With(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:    workerConfig,
		logger:    log,
		generator: opts.Generator,
		errors:    errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing health report generation", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

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

// Execute generates the report. A report that settled as failed is a normal
// outcome for the process and completes the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	report, err := h.generator.Generate(ctx, service.GenerateRequest{
		OwnerID:      input.UserID,
		OrderID:      input.OrderID,
		OrderStatus:  models.OrderStatus(strings.ToLower(strings.TrimSpace(string(input.OrderStatus)))),
		Intake:       &input.Intake,
		SubjectName:  input.UserName,
		SubjectEmail: input.UserEmail,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		ReportID:            report.ReportID,
		ReportStatus:        report.Status,
		ReportError:         report.Error,
		SectionCount:        len(report.Sections),
		RecommendationCount: len(report.Recommendations),
	}, nil
}

// parseInput validates the variables against the schema, then decodes the
// raw JSON so category answers keep their original order.
func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		stdErr := errors.NewInvalidIntakeError(
			fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
		if fields := invalidFields(result); len(fields) > 0 {
			stdErr = stdErr.WithMetadata("invalidFields", fields)
		}
		return nil, stdErr
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInvalidIntakeError(err.Error())
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.variables())
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
		return
	}

	h.logger.Info("Health report generation finished", map[string]interface{}{
		"jobKey":          job.GetKey(),
		"reportId":        output.ReportID,
		"reportStatus":    output.ReportStatus,
		"recommendations": output.RecommendationCount,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
	h.errors.HandleJobError(context.WithoutCancel(ctx), client, job, err)
}

func extractErrorCode(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return string(errors.ErrCodeInternal)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) Enabled() bool {
	return h.config.Enabled
}
