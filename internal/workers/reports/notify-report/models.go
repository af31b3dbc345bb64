package notifyreport

type Input struct {
	UserID   string `json:"userId"`
	ReportID string `json:"reportId"`
	// Urgent is the index worker's reportUrgent flag. When absent it is
	// recomputed from the report content.
	Urgent *bool `json:"reportUrgent,omitempty"`
}

type Output struct {
	EmailSent bool   `json:"notificationEmailSent"`
	EventID   string `json:"notificationEventId,omitempty"`
}
