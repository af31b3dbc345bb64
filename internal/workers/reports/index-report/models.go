package indexreport

import "health-report-workers/internal/report/risk"

type Input struct {
	UserID   string `json:"userId"`
	ReportID string `json:"reportId"`
}

type Output struct {
	Indexed    bool              `json:"reportIndexed"`
	RiskLevels []risk.Assessment `json:"riskLevels"`
	Urgent     bool              `json:"reportUrgent"`
}
