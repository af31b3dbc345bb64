// Package api serves stored reports to their owners over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/risk"
	"health-report-workers/internal/report/search"
)

// OwnerHeader carries the authenticated owner id set by the gateway.
const OwnerHeader = "X-User-ID"

type Reports interface {
	Get(ctx context.Context, ownerID, reportID string) (*models.Report, error)
	LatestForOrder(ctx context.Context, ownerID, orderID string) (*models.Report, error)
	List(ctx context.Context, ownerID string, limit int) ([]models.ReportPreview, error)
	Search(ctx context.Context, ownerID, query string, size int) ([]search.Hit, error)
}

type Handler struct {
	reports Reports
	logger  logger.Logger
	now     func() time.Time
}

func NewHandler(reports Reports, log logger.Logger) *Handler {
	return &Handler{
		reports: reports,
		logger:  log.With(map[string]interface{}{"component": "report-api"}),
		now:     time.Now,
	}
}

type envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *errorBody  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type errorBody struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// ReportView is a report with the risk labels read from its narrative.
type ReportView struct {
	*models.Report
	RiskLevels []risk.Assessment `json:"riskLevels"`
	Urgent     bool              `json:"urgent"`
}

// Register mounts the report routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /reports", h.withOwner(h.list))
	mux.HandleFunc("GET /reports/search", h.withOwner(h.search))
	mux.HandleFunc("GET /reports/orders/{orderId}", h.withOwner(h.latestForOrder))
	mux.HandleFunc("GET /reports/{reportId}", h.withOwner(h.get))
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

func (h *Handler) withOwner(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if ownerID == "" {
			h.writeError(w, errors.NewAuthenticationError("missing "+OwnerHeader+" header"))
			return
		}
		next(w, r, ownerID)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, ownerID string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	previews, err := h.reports.List(r.Context(), ownerID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Reports retrieved", previews)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, ownerID string) {
	report, err := h.reports.Get(r.Context(), ownerID, r.PathValue("reportId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Report retrieved", view(report))
}

func (h *Handler) latestForOrder(w http.ResponseWriter, r *http.Request, ownerID string) {
	report, err := h.reports.LatestForOrder(r.Context(), ownerID, r.PathValue("orderId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Report retrieved", view(report))
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, ownerID string) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, errors.NewBusinessRuleError("Search query is required", "q must not be empty"))
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	hits, err := h.reports.Search(r.Context(), ownerID, query, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Search completed", hits)
}

func view(report *models.Report) ReportView {
	v := ReportView{Report: report, RiskLevels: []risk.Assessment{}}
	if report.Status != models.StatusCompleted {
		return v
	}
	if levels := risk.Scan(report.FullContent, report.Sections); levels != nil {
		v.RiskLevels = levels
	}
	v.Urgent = risk.RequiresPromptAttention(report.FullContent, v.RiskLevels)
	return v
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	h.write(w, status, envelope{Success: true, Message: message, Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	stdErr := errors.Normalize(err)
	status := statusFor(stdErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Report request failed", map[string]interface{}{
			"code":  stdErr.Code,
			"error": err.Error(),
		})
	}
	h.write(w, status, envelope{
		Message: stdErr.Message,
		Error:   &errorBody{Code: string(stdErr.Code), Details: stdErr.Details},
	})
}

func (h *Handler) write(w http.ResponseWriter, status int, body envelope) {
	body.Timestamp = h.now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("Failed to write response", map[string]interface{}{"error": err.Error()})
	}
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeReportNotFound, errors.ErrCodeResourceNotFound:
		return http.StatusNotFound
	case errors.ErrCodeAuthentication:
		return http.StatusUnauthorized
	case errors.ErrCodeInvalidIntake, errors.ErrCodeBusinessRule, errors.ErrCodeInputParsingFailed:
		return http.StatusBadRequest
	case errors.ErrCodeSearchQueryFailed, errors.ErrCodeExternalService:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
