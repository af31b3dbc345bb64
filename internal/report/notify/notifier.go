// Package notify tells the subject and downstream systems that a report
// has settled.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"health-report-workers/internal/common/config"
	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/common/validation"
	"health-report-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

const (
	EventReportCompleted = "health_report.completed"
	EventReportFailed    = "health_report.failed"

	emailSubject = "Your Personalized Health Analysis Report is ready"
)

type Config struct {
	EmailEnabled  bool
	FromEmail     string
	EventsEnabled bool
	TopicARN      string
}

func ConfigFromApp(cfg config.IntegrationConfig) Config {
	return Config{
		EmailEnabled:  cfg.AWS.SES.Enabled,
		FromEmail:     cfg.AWS.SES.FromEmail,
		EventsEnabled: cfg.AWS.SNS.Enabled,
		TopicARN:      cfg.AWS.SNS.TopicARN,
	}
}

// Event is the JSON message published for every settled report.
type Event struct {
	EventID    string        `json:"eventId"`
	Type       string        `json:"type"`
	OwnerID    string        `json:"ownerId"`
	ReportID   string        `json:"reportId"`
	OrderID    string        `json:"orderId"`
	Status     models.Status `json:"status"`
	Urgent     bool          `json:"urgent"`
	Error      string        `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

type Result struct {
	EmailSent      bool   `json:"emailSent"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	EventID        string `json:"eventId,omitempty"`
	EventMessageID string `json:"eventMessageId,omitempty"`
}

type Notifier struct {
	config Config
	ses    SESService
	sns    SNSService
	now    func() time.Time
	logger logger.Logger
}

func NewNotifier(cfg Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		config: cfg,
		ses:    sesClient,
		sns:    snsClient,
		now:    time.Now,
		logger: log.With(map[string]interface{}{"component": "report-notifier"}),
	}
}

// Notify emails the subject about a completed report and publishes the
// settlement event. A report still generating is rejected.
func (n *Notifier) Notify(ctx context.Context, report *models.Report, urgent bool) (*Result, error) {
	if !report.Status.IsTerminal() {
		return nil, errors.NewBusinessRuleError("Report has not settled",
			fmt.Sprintf("reportId: %s, status: %s", report.ReportID, report.Status))
	}

	result := &Result{}
	log := logger.ForReport(n.logger, report.ReportID, report.OrderID)

	if report.Status == models.StatusCompleted && report.UserEmail != "" {
		if validation.ValidateEmail(report.UserEmail) {
			id, sent, err := n.Email(ctx, report, urgent)
			if err != nil {
				return nil, err
			}
			result.EmailSent = sent
			result.EmailMessageID = id
		} else {
			log.Warn("Skipping email to malformed address", nil)
		}
	}

	eventID, messageID, err := n.Publish(ctx, report, urgent)
	if err != nil {
		return nil, err
	}
	result.EventID = eventID
	result.EventMessageID = messageID

	log.Info("Report notifications dispatched", map[string]interface{}{
		"emailSent": result.EmailSent,
		"eventId":   result.EventID,
	})
	return result, nil
}

// Email sends the completion email. It reports false when email is disabled.
func (n *Notifier) Email(ctx context.Context, report *models.Report, urgent bool) (string, bool, error) {
	if !n.config.EmailEnabled || n.ses == nil {
		return "", false, nil
	}

	text := emailBody(report, urgent)
	out, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{report.UserEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(emailSubject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(text)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	if err != nil {
		return "", false, errors.NewNotificationSendFailedError("email", err)
	}
	return aws.ToString(out.MessageId), true, nil
}

// Publish sends the settlement event. It returns empty ids when events are
// disabled.
func (n *Notifier) Publish(ctx context.Context, report *models.Report, urgent bool) (string, string, error) {
	if !n.config.EventsEnabled || n.sns == nil {
		return "", "", nil
	}

	event := Event{
		EventID:    uuid.NewString(),
		Type:       EventReportCompleted,
		OwnerID:    report.OwnerID,
		ReportID:   report.ReportID,
		OrderID:    report.OrderID,
		Status:     report.Status,
		Urgent:     urgent,
		OccurredAt: n.now().UTC(),
	}
	if report.Status == models.StatusFailed {
		event.Type = EventReportFailed
		event.Error = report.Error
		event.Urgent = false
	}

	body, err := json.Marshal(event)
	if err != nil {
		return "", "", errors.NewNotificationSendFailedError("event", err)
	}

	out, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(event.Type)},
		},
	})
	if err != nil {
		return "", "", errors.NewNotificationSendFailedError("event", err)
	}
	return event.EventID, aws.ToString(out.MessageId), nil
}

func emailBody(report *models.Report, urgent bool) string {
	var b strings.Builder
	name := report.UserName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("Your personalized health analysis report is ready.\n\n")
	if report.Summary != "" {
		b.WriteString("Summary:\n")
		b.WriteString(report.Summary)
		b.WriteString("\n\n")
	}
	if urgent {
		b.WriteString("Important: your report flags findings that call for prompt attention. ")
		b.WriteString("Please contact a healthcare provider soon.\n\n")
	}
	fmt.Fprintf(&b, "Report ID: %s\n", report.ReportID)
	return b.String()
}
