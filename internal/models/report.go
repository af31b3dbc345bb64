package models

import (
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state of a report document.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusGenerating, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Report is the stored document for one generation attempt.
type Report struct {
	OwnerID         string    `json:"ownerId"`
	ReportID        string    `json:"reportId"`
	OrderID         string    `json:"orderId"`
	UserName        string    `json:"userName"`
	UserEmail       string    `json:"userEmail"`
	GeneratedAt     time.Time `json:"generatedAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Status          Status    `json:"status"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Sections        []Section `json:"sections"`
	Recommendations []string  `json:"recommendations"`
	Conclusions     string    `json:"conclusions"`
	FullContent     string    `json:"fullContent"`
	Error           string    `json:"error,omitempty"`
}

// ReportState is the closed set of lifecycle variants. Only the types in
// this package implement it.
type ReportState interface {
	Status() Status
	isReportState()
}

type Generating struct{}

type Completed struct {
	Title           string
	Summary         string
	Sections        []Section
	Recommendations []string
	Conclusions     string
	FullContent     string
}

type Failed struct {
	Error string
}

func (Generating) Status() Status { return StatusGenerating }
func (Completed) Status() Status  { return StatusCompleted }
func (Failed) Status() Status     { return StatusFailed }

func (Generating) isReportState() {}
func (Completed) isReportState()  {}
func (Failed) isReportState()     {}

// State projects the document fields onto its lifecycle variant.
func (r *Report) State() ReportState {
	switch r.Status {
	case StatusCompleted:
		return Completed{
			Title:           r.Title,
			Summary:         r.Summary,
			Sections:        r.Sections,
			Recommendations: r.Recommendations,
			Conclusions:     r.Conclusions,
			FullContent:     r.FullContent,
		}
	case StatusFailed:
		return Failed{Error: r.Error}
	default:
		return Generating{}
	}
}

// Apply writes state onto the document and stamps UpdatedAt.
func (r *Report) Apply(state ReportState, at time.Time) {
	switch s := state.(type) {
	case Generating:
		r.Summary = ""
		r.Sections = []Section{}
		r.Recommendations = []string{}
		r.Conclusions = ""
		r.FullContent = ""
		r.Error = ""
	case Completed:
		r.Title = s.Title
		r.Summary = s.Summary
		r.Sections = s.Sections
		r.Recommendations = s.Recommendations
		r.Conclusions = s.Conclusions
		r.FullContent = s.FullContent
		r.Error = ""
	case Failed:
		r.Summary = ""
		r.Sections = []Section{}
		r.Recommendations = []string{}
		r.Conclusions = ""
		r.FullContent = ""
		r.Error = s.Error
	}
	r.Status = state.Status()
	r.UpdatedAt = at
}

// ReportPreview is the list entry shown for a report.
type ReportPreview struct {
	ReportID    string    `json:"reportId"`
	OrderID     string    `json:"orderId"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generatedAt"`
	Status      Status    `json:"status"`
	Summary     string    `json:"summary"`
}

const previewSummaryLength = 100

func (r *Report) Preview() ReportPreview {
	title := r.Title
	if title == "" {
		title = "Health Analysis Report"
	}
	status := r.Status
	if status == "" {
		status = StatusCompleted
	}

	summary := ""
	if r.Summary != "" {
		summary = truncateRunes(r.Summary, previewSummaryLength) + "..."
	}

	return ReportPreview{
		ReportID:    r.ReportID,
		OrderID:     r.OrderID,
		Title:       title,
		GeneratedAt: r.GeneratedAt,
		Status:      status,
		Summary:     summary,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
