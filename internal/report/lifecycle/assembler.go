// Package lifecycle owns the report state machine: a generating placeholder
// that settles exactly once into completed or failed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/common/metrics"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/parser"
)

const (
	PlaceholderTitle = "Generating Your Personalized Health Analysis Report..."
	CompletedTitle   = "Personalized Health Analysis Report"
)

// ErrReportTerminal is returned when a settled report would be written again.
var ErrReportTerminal = errors.New("report already reached a terminal status")

// Store persists report documents keyed by (OwnerID, ReportID). Put must
// refuse to overwrite a terminal document and return ErrReportTerminal.
type Store interface {
	Put(ctx context.Context, report *models.Report) error
}

type BeginRequest struct {
	OwnerID      string
	OrderID      string
	SubjectName  string
	SubjectEmail string
}

// Outcome is how a generation attempt ended.
type Outcome interface {
	isOutcome()
}

type Completion struct {
	Narrative string
}

type Failure struct {
	Message string
}

func (Completion) isOutcome() {}
func (Failure) isOutcome()    {}

type Assembler struct {
	store  Store
	now    func() time.Time
	logger logger.Logger
}

func NewAssembler(store Store, now func() time.Time, log logger.Logger) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{
		store:  store,
		now:    now,
		logger: log.With(map[string]interface{}{"component": "report-assembler"}),
	}
}

// Begin persists the generating placeholder for a new attempt.
func (a *Assembler) Begin(ctx context.Context, req BeginRequest) (*models.Report, error) {
	now := a.now().UTC()
	report := &models.Report{
		OwnerID:     req.OwnerID,
		ReportID:    fmt.Sprintf("report-%s-%d", req.OrderID, now.UnixMilli()),
		OrderID:     req.OrderID,
		UserName:    req.SubjectName,
		UserEmail:   req.SubjectEmail,
		GeneratedAt: now,
		Title:       PlaceholderTitle,
	}
	report.Apply(models.Generating{}, now)

	if err := a.store.Put(ctx, report); err != nil {
		return nil, err
	}

	logger.ForReport(a.logger, report.ReportID, report.OrderID).Info("Report placeholder stored", map[string]interface{}{
		"ownerId": report.OwnerID,
	})
	return report, nil
}

func (a *Assembler) Finalize(ctx context.Context, report *models.Report, narrative string) error {
	return a.Settle(ctx, report, Completion{Narrative: narrative})
}

func (a *Assembler) Fail(ctx context.Context, report *models.Report, message string) error {
	return a.Settle(ctx, report, Failure{Message: message})
}

// Settle applies outcome to a generating report and stores it. The report
// is left untouched when the store rejects the write.
func (a *Assembler) Settle(ctx context.Context, report *models.Report, outcome Outcome) error {
	if report.Status.IsTerminal() {
		return ErrReportTerminal
	}

	var state models.ReportState
	switch o := outcome.(type) {
	case Completion:
		parsed := parser.Parse(o.Narrative)
		state = models.Completed{
			Title:           CompletedTitle,
			Summary:         parsed.Summary,
			Sections:        parsed.Sections,
			Recommendations: parsed.Recommendations,
			Conclusions:     parsed.Conclusions,
			FullContent:     o.Narrative,
		}
	case Failure:
		state = models.Failed{Error: o.Message}
	default:
		return fmt.Errorf("unknown outcome %T", outcome)
	}

	next := *report
	next.Apply(state, a.now().UTC())
	if err := a.store.Put(ctx, &next); err != nil {
		return err
	}
	*report = next

	log := logger.ForReport(a.logger, report.ReportID, report.OrderID)
	if report.Status == models.StatusCompleted {
		metrics.RecommendationsExtracted.Observe(float64(len(report.Recommendations)))
		log.Info("Report completed", map[string]interface{}{
			"sections":        len(report.Sections),
			"recommendations": len(report.Recommendations),
			"contentLength":   len(report.FullContent),
		})
	} else {
		log.Warn("Report failed", map[string]interface{}{"error": report.Error})
	}
	return nil
}
