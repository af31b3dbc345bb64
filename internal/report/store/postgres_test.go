package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/lifecycle"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	upsertPattern = `INSERT INTO health_reports .* ON CONFLICT \(owner_id, report_id\) DO UPDATE .* WHERE health_reports.status = 'generating'`
	selectPattern = `SELECT document FROM health_reports WHERE owner_id = \$1 AND report_id = \$2`
	latestPattern = `SELECT document FROM health_reports WHERE owner_id = \$1 AND order_id = \$2 ORDER BY generated_at DESC LIMIT 1`
	listPattern   = `SELECT document FROM health_reports WHERE owner_id = \$1 ORDER BY generated_at DESC LIMIT \$2`
)

func sampleReport(status models.Status) *models.Report {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &models.Report{
		OwnerID:     "u1",
		ReportID:    "report-o1-1709287200000",
		OrderID:     "o1",
		UserName:    "Ana",
		GeneratedAt: at,
		Title:       "Personalized Health Analysis Report",
	}
	r.Apply(models.Generating{}, at)
	if status == models.StatusCompleted {
		r.Apply(models.Completed{
			Title:           "Personalized Health Analysis Report",
			Summary:         "All good.",
			Sections:        []models.Section{{Title: "Overview", Content: "All good."}},
			Recommendations: []string{"Keep walking every day"},
			FullContent:     "# Overview\nAll good.",
		}, at.Add(time.Minute))
	}
	return r
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func documentRows(reports ...*models.Report) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"document"})
	for _, r := range reports {
		doc, _ := json.Marshal(r)
		rows.AddRow(doc)
	}
	return rows
}

func TestPostgresStore_Put(t *testing.T) {
	tests := []struct {
		name    string
		result  func(*sqlmock.ExpectedExec)
		wantErr func(t *testing.T, err error)
	}{
		{
			name:    "generating row written",
			result:  func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 1)) },
			wantErr: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:   "terminal row left untouched",
			result: func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 0)) },
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, lifecycle.ErrReportTerminal)
			},
		},
		{
			name:   "database error",
			result: func(e *sqlmock.ExpectedExec) { e.WillReturnError(stderrors.New("connection reset")) },
			wantErr: func(t *testing.T, err error) {
				assert.True(t, errors.HasCode(err, errors.ErrCodeReportStoreFailed))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			r := sampleReport(models.StatusGenerating)

			exec := mock.ExpectExec(upsertPattern).WithArgs(
				r.OwnerID, r.ReportID, r.OrderID, "generating", r.GeneratedAt, r.UpdatedAt, sqlmock.AnyArg(),
			)
			tt.result(exec)

			tt.wantErr(t, s.Put(context.Background(), r))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockStore(t)
	want := sampleReport(models.StatusCompleted)

	mock.ExpectQuery(selectPattern).WithArgs("u1", want.ReportID).WillReturnRows(documentRows(want))

	got, err := s.Get(context.Background(), "u1", want.ReportID)
	require.NoError(t, err)
	assert.Equal(t, want.Recommendations, got.Recommendations)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(selectPattern).WithArgs("u1", "missing").WillReturnRows(sqlmock.NewRows([]string{"document"}))

	_, err := s.Get(context.Background(), "u1", "missing")
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportNotFound))
}

func TestPostgresStore_GetCorruptDocument(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(selectPattern).WithArgs("u1", "r1").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow([]byte("{not json")))

	_, err := s.Get(context.Background(), "u1", "r1")
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportStoreFailed))
}

func TestPostgresStore_LatestByOrder(t *testing.T) {
	s, mock := newMockStore(t)
	want := sampleReport(models.StatusGenerating)

	mock.ExpectQuery(latestPattern).WithArgs("u1", "o1").WillReturnRows(documentRows(want))
	got, err := s.LatestByOrder(context.Background(), "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, want.ReportID, got.ReportID)

	mock.ExpectQuery(latestPattern).WithArgs("u1", "o2").WillReturnRows(sqlmock.NewRows([]string{"document"}))
	_, err = s.LatestByOrder(context.Background(), "u1", "o2")
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByOwner(t *testing.T) {
	s, mock := newMockStore(t)
	newer := sampleReport(models.StatusCompleted)
	older := sampleReport(models.StatusGenerating)
	older.ReportID = "report-o0-1"

	mock.ExpectQuery(listPattern).WithArgs("u1", int64(50)).WillReturnRows(documentRows(newer, older))

	got, err := s.ListByOwner(context.Background(), "u1", 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ReportID, got[0].ReportID)
	assert.Equal(t, "report-o0-1", got[1].ReportID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByOwnerEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(listPattern).WithArgs("u9", int64(10)).WillReturnRows(sqlmock.NewRows([]string{"document"}))

	got, err := s.ListByOwner(context.Background(), "u9", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS health_reports`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
