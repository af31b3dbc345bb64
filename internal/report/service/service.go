// Package service runs the report generation pipeline and serves stored
// reports back to readers.
package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/common/metrics"
	"health-report-workers/internal/common/observability"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/lifecycle"
	"health-report-workers/internal/report/lock"
	"health-report-workers/internal/report/narrative"
	"health-report-workers/internal/report/prompt"
	"health-report-workers/internal/report/search"
	"health-report-workers/internal/report/store"

	"go.opentelemetry.io/otel/attribute"
)

const defaultListLimit = 50

// Searcher is the optional full-text side of the read path.
type Searcher interface {
	Search(ctx context.Context, ownerID, query string, size int) ([]search.Hit, error)
}

type Dependencies struct {
	Composer  *prompt.Composer
	Generator narrative.Generator
	Store     store.Repository
	Guard     lock.Guard
	Searcher  Searcher
	Now       func() time.Time
	ListLimit int
}

type Service struct {
	composer  *prompt.Composer
	generator narrative.Generator
	assembler *lifecycle.Assembler
	reports   store.Repository
	guard     lock.Guard
	searcher  Searcher
	listLimit int
	logger    logger.Logger
}

func New(deps Dependencies, log logger.Logger) *Service {
	composer := deps.Composer
	if composer == nil {
		composer = prompt.NewComposer(nil)
	}
	limit := deps.ListLimit
	if limit <= 0 {
		limit = defaultListLimit
	}
	return &Service{
		composer:  composer,
		generator: deps.Generator,
		assembler: lifecycle.NewAssembler(deps.Store, deps.Now, log),
		reports:   deps.Store,
		guard:     deps.Guard,
		searcher:  deps.Searcher,
		listLimit: limit,
		logger:    log.With(map[string]interface{}{"component": "report-service"}),
	}
}

type GenerateRequest struct {
	OwnerID      string
	OrderID      string
	OrderStatus  models.OrderStatus
	Intake       *models.IntakeRecord
	SubjectName  string
	SubjectEmail string
}

func (r GenerateRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.OwnerID) == "" {
		missing = append(missing, "ownerId")
	}
	if strings.TrimSpace(r.OrderID) == "" {
		missing = append(missing, "orderId")
	}
	if strings.TrimSpace(r.SubjectName) == "" {
		missing = append(missing, "subjectName")
	}
	if r.Intake == nil {
		missing = append(missing, "intake")
	}
	if len(missing) > 0 {
		return errors.NewInvalidIntakeError("missing " + strings.Join(missing, ", "))
	}
	return nil
}

func checkOrder(orderID string, status models.OrderStatus) error {
	if status.AllowsReportGeneration() {
		return nil
	}
	if status == models.OrderCancelled {
		return errors.NewOrderNotEligibleError(orderID, string(status)).WithMetadata("orderStatus", string(status))
	}
	return errors.NewInvalidIntakeError("unknown order status: " + string(status))
}

// Generate runs one attempt end to end. Once the placeholder is stored,
// generator failures settle the report as failed and are not returned as
// errors. A cancelled or expired ctx leaves the placeholder generating.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (report *models.Report, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "report.generate",
		attribute.String("report.owner_id", req.OwnerID),
		attribute.String("report.order_id", req.OrderID),
	)
	defer func() {
		observability.EndSpan(span, err)
		status := "error"
		if report != nil && err == nil {
			status = string(report.Status)
		}
		metrics.ReportGenerations.WithLabelValues(status).Inc()
		metrics.ReportGenerationDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	if err = req.validate(); err != nil {
		return nil, err
	}
	if err = checkOrder(req.OrderID, req.OrderStatus); err != nil {
		return nil, err
	}

	lease, acquired, lockErr := s.guard.Acquire(ctx, req.OwnerID, req.OrderID)
	if lockErr != nil {
		err = errors.NewExternalServiceError("redis", lockErr)
		return nil, err
	}
	if !acquired {
		err = errors.NewGenerationInFlightError(req.OrderID)
		return nil, err
	}
	defer func() {
		if relErr := lease.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logger.Warn("Failed to release generation lock", map[string]interface{}{
				"orderId": req.OrderID,
				"error":   relErr.Error(),
			})
		}
	}()

	promptText, err := s.composer.Compose(req.Intake, req.SubjectName)
	if err != nil {
		return nil, err
	}

	report, err = s.assembler.Begin(ctx, lifecycle.BeginRequest{
		OwnerID:      req.OwnerID,
		OrderID:      req.OrderID,
		SubjectName:  req.SubjectName,
		SubjectEmail: req.SubjectEmail,
	})
	if err != nil {
		return nil, err
	}
	log := logger.ForReport(s.logger, report.ReportID, report.OrderID)
	log.Info("Prompt composed", map[string]interface{}{
		"promptLength":  len(promptText),
		"answeredItems": req.Intake.AnsweredCount(),
	})
	if misfiled := s.composer.Misfiled(req.Intake); len(misfiled) > 0 {
		log.Warn("Intake answers filed under another block", map[string]interface{}{
			"misfiledItems": misfiled,
		})
	}

	text, genErr := s.narrate(ctx, promptText)
	if genErr != nil {
		if ctx.Err() != nil {
			log.Warn("Generation abandoned, report left generating", map[string]interface{}{"error": genErr.Error()})
			err = genErr
			return report, err
		}
		log.Warn("Narrative generation failed", map[string]interface{}{"error": genErr.Error()})
		err = s.assembler.Fail(ctx, report, FailureMessage(genErr))
		return report, err
	}

	finalizeErr := s.assembler.Finalize(ctx, report, text)
	switch {
	case finalizeErr == nil:
		return report, nil
	case stderrors.Is(finalizeErr, lifecycle.ErrReportTerminal):
		err = errors.NewReportAlreadyTerminalError(report.ReportID, string(report.Status))
		return report, err
	}

	log.Error("Failed to store completed report", map[string]interface{}{"error": finalizeErr.Error()})
	if failErr := s.assembler.Fail(ctx, report, "Failed to save report: "+FailureMessage(finalizeErr)); failErr != nil {
		err = finalizeErr
		return report, err
	}
	return report, nil
}

func (s *Service) narrate(ctx context.Context, promptText string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "report.narrative")
	text, err := s.generator.Generate(ctx, promptText)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.NewEmptyNarrativeError()
	}
	if err != nil && ctx.Err() != nil && !errors.IsGenerationFailure(err) {
		err = errors.NewGenerationTimeoutError(ctx.Err())
	}
	observability.EndSpan(span, err)
	return text, err
}

// FailureMessage renders err for the report's error field.
func FailureMessage(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		if stdErr.Details != "" {
			return stdErr.Message + ": " + stdErr.Details
		}
		return stdErr.Message
	}
	return err.Error()
}

func (s *Service) Get(ctx context.Context, ownerID, reportID string) (*models.Report, error) {
	return s.reports.Get(ctx, ownerID, reportID)
}

func (s *Service) LatestForOrder(ctx context.Context, ownerID, orderID string) (*models.Report, error) {
	return s.reports.LatestByOrder(ctx, ownerID, orderID)
}

// List returns previews of the owner's reports, newest first. limit is
// clamped to the configured maximum.
func (s *Service) List(ctx context.Context, ownerID string, limit int) ([]models.ReportPreview, error) {
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	reports, err := s.reports.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}
	previews := make([]models.ReportPreview, 0, len(reports))
	for i := range reports {
		previews = append(previews, reports[i].Preview())
	}
	return previews, nil
}

func (s *Service) Search(ctx context.Context, ownerID, query string, size int) ([]search.Hit, error) {
	if s.searcher == nil {
		return nil, errors.NewResourceNotFoundError("search", "report search is not configured")
	}
	return s.searcher.Search(ctx, ownerID, query, size)
}
