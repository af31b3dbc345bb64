package generatereport

import "health-report-workers/internal/models"

// Input mirrors the process variables of a generation job.
type Input struct {
	UserID      string              `json:"userId"`
	OrderID     string              `json:"orderId"`
	OrderStatus models.OrderStatus  `json:"orderStatus"`
	UserName    string              `json:"userName"`
	UserEmail   string              `json:"userEmail"`
	Intake      models.IntakeRecord `json:"intake"`
}

type Output struct {
	ReportID            string        `json:"reportId"`
	ReportStatus        models.Status `json:"reportStatus"`
	ReportError         string        `json:"reportError,omitempty"`
	SectionCount        int           `json:"sectionCount"`
	RecommendationCount int           `json:"recommendationCount"`
}

func (o *Output) variables() map[string]interface{} {
	vars := map[string]interface{}{
		"reportId":            o.ReportID,
		"reportStatus":        string(o.ReportStatus),
		"sectionCount":        o.SectionCount,
		"recommendationCount": o.RecommendationCount,
	}
	if o.ReportError != "" {
		vars["reportError"] = o.ReportError
	}
	return vars
}
