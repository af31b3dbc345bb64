package generatereport

import (
	"context"
	"testing"
	"time"

	"health-report-workers/internal/common/config"
	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/service"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req service.GenerateRequest) (*models.Report, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func createMockJob(key int64, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "health-report-process",
		ElementId:          "Activity_GenerateReport",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          variables,
	}}
}

const validVariables = `{
	"userId": "u1",
	"orderId": "o1",
	"orderStatus": " Confirmed ",
	"userName": "Ana",
	"userEmail": "ana@example.com",
	"intake": {
		"age": 44,
		"height": "172",
		"motivations": ["energy"],
		"sleepEnergy": {"sleep_hours": "often", "energy_levels": "sometimes", "wake_refreshed": true}
	}
}`

func createTestHandler(t *testing.T, gen ReportGenerator) *Handler {
	h, err := NewHandler(HandlerOptions{Generator: gen, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockGenerator{})

	input, err := h.parseInput(createMockJob(1, validVariables))
	require.NoError(t, err)

	assert.Equal(t, "u1", input.UserID)
	assert.Equal(t, models.Measure("44"), input.Intake.Age)
	assert.Equal(t, models.Measure("172"), input.Intake.Height)
	assert.Equal(t, models.CategoryAnswers{
		{Key: "sleep_hours", Value: "often"},
		{Key: "energy_levels", Value: "sometimes"},
		{Key: "wake_refreshed", Value: "yes"},
	}, input.Intake.SleepEnergy, "answers keep record order")
}

func TestHandler_ParseInputRejects(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantCode  errors.ErrorCode
	}{
		{"missing intake", `{"userId":"u1","orderId":"o1","userName":"Ana"}`, errors.ErrCodeInvalidIntake},
		{"empty order id", `{"userId":"u1","orderId":"","userName":"Ana","intake":{}}`, errors.ErrCodeInvalidIntake},
		{"nested answer object", `{"userId":"u1","orderId":"o1","userName":"Ana","intake":{"sleepEnergy":{"k":{"x":1}}}}`, errors.ErrCodeInvalidIntake},
		{"boolean age", `{"userId":"u1","orderId":"o1","userName":"Ana","intake":{"age":true}}`, errors.ErrCodeInvalidIntake},
		{"negative weight", `{"userId":"u1","orderId":"o1","userName":"Ana","intake":{"weight":-3}}`, errors.ErrCodeInvalidIntake},
		{"not json", `{`, errors.ErrCodeInputParsingFailed},
	}
	h := createTestHandler(t, &MockGenerator{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(2, tt.variables))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestHandler_ParseInputNamesInvalidFields(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		want      []string
	}{
		{
			name:      "empty order id",
			variables: `{"userId":"u1","orderId":"","userName":"Ana","intake":{}}`,
			want:      []string{"orderId"},
		},
		{
			name:      "bad answers under intake count once",
			variables: `{"userId":"u1","orderId":"o1","userName":"Ana","intake":{"age":-1,"height":true}}`,
			want:      []string{"intake"},
		},
		{
			name:      "subject and intake together",
			variables: `{"userId":"","orderId":"o1","userName":"Ana","intake":{"weight":-2}}`,
			want:      []string{"userId", "intake"},
		},
	}
	h := createTestHandler(t, &MockGenerator{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(4, tt.variables))
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, errors.ErrCodeInvalidIntake, stdErr.Code)
			assert.Equal(t, tt.want, stdErr.Metadata["invalidFields"])
		})
	}
}

func TestHandler_ParseInputMissingRequiredHasNoFieldList(t *testing.T) {
	h := createTestHandler(t, &MockGenerator{})

	_, err := h.parseInput(createMockJob(5, `{"userId":"u1","orderId":"o1","userName":"Ana"}`))
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.NotContains(t, stdErr.Metadata, "invalidFields")
}

func TestHandler_Execute(t *testing.T) {
	gen := &MockGenerator{}
	h := createTestHandler(t, gen)

	input, err := h.parseInput(createMockJob(3, validVariables))
	require.NoError(t, err)

	report := &models.Report{ReportID: "report-o1-1", OrderID: "o1"}
	report.Apply(models.Completed{
		Sections:        []models.Section{{Title: "Overview"}, {Title: "Plan"}},
		Recommendations: []string{"Keep a consistent bedtime"},
	}, time.Now())

	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req service.GenerateRequest) bool {
		return req.OwnerID == "u1" && req.OrderStatus == models.OrderConfirmed &&
			req.SubjectName == "Ana" && req.Intake != nil
	})).Return(report, nil)

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "report-o1-1", output.ReportID)
	assert.Equal(t, models.StatusCompleted, output.ReportStatus)
	assert.Equal(t, 2, output.SectionCount)
	assert.Equal(t, 1, output.RecommendationCount)
	assert.NotContains(t, output.variables(), "reportError")
	gen.AssertExpectations(t)
}

func TestHandler_ExecuteFailedReportCompletesJob(t *testing.T) {
	gen := &MockGenerator{}
	h := createTestHandler(t, gen)

	report := &models.Report{ReportID: "report-o1-2"}
	report.Apply(models.Failed{Error: "Narrative generation failed: status 502"}, time.Now())
	gen.On("Generate", mock.Anything, mock.Anything).Return(report, nil)

	output, err := h.Execute(context.Background(), &Input{UserID: "u1", OrderID: "o1", UserName: "Ana"})
	require.NoError(t, err)

	vars := output.variables()
	assert.Equal(t, "failed", vars["reportStatus"])
	assert.Equal(t, "Narrative generation failed: status 502", vars["reportError"])
}

func TestHandler_ExecutePropagatesRejections(t *testing.T) {
	gen := &MockGenerator{}
	h := createTestHandler(t, gen)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.NewOrderNotEligibleError("o1", "cancelled"))

	_, err := h.Execute(context.Background(), &Input{UserID: "u1", OrderID: "o1", UserName: "Ana"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeOrderNotEligible))
	assert.Equal(t, "ORDER_NOT_ELIGIBLE", extractErrorCode(err))
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	app := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 2, Timeout: 240000},
	}}

	cfg := createConfigFromAppConfig(app)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, 4*time.Minute, cfg.Timeout)

	assert.Equal(t, DefaultConfig(), createConfigFromAppConfig(nil))
}

func TestNewHandler_RequiresGenerator(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Logger: logger.NewNoOpLogger()})
	assert.Error(t, err)
}

func TestHandler_EnabledAndTaskType(t *testing.T) {
	h := createTestHandler(t, &MockGenerator{})
	assert.True(t, h.Enabled())
	assert.Equal(t, "generate-health-report", h.GetTaskType())
}
