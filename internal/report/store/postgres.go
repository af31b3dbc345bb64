// Package store persists report documents in Postgres and caches settled
// ones in Redis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/lifecycle"
)

// Repository is the full document store surface used by the service.
type Repository interface {
	Put(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, ownerID, reportID string) (*models.Report, error)
	LatestByOrder(ctx context.Context, ownerID, orderID string) (*models.Report, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Report, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS health_reports (
	owner_id     TEXT        NOT NULL,
	report_id    TEXT        NOT NULL,
	order_id     TEXT        NOT NULL,
	status       TEXT        NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	document     JSONB       NOT NULL,
	PRIMARY KEY (owner_id, report_id)
);
CREATE INDEX IF NOT EXISTS health_reports_owner_order_idx
	ON health_reports (owner_id, order_id, generated_at DESC);
`

// The WHERE clause on the conflict branch keeps settled rows immutable.
const upsertReport = `
INSERT INTO health_reports (owner_id, report_id, order_id, status, generated_at, updated_at, document)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (owner_id, report_id) DO UPDATE
SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at, document = EXCLUDED.document
WHERE health_reports.status = 'generating'`

const (
	selectReport = `SELECT document FROM health_reports WHERE owner_id = $1 AND report_id = $2`

	selectLatestByOrder = `SELECT document FROM health_reports
WHERE owner_id = $1 AND order_id = $2
ORDER BY generated_at DESC LIMIT 1`

	selectByOwner = `SELECT document FROM health_reports
WHERE owner_id = $1
ORDER BY generated_at DESC LIMIT $2`
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.NewReportStoreFailedError("ensure schema", err)
	}
	return nil
}

// Put inserts or replaces a generating document. Writing over a completed
// or failed row changes nothing and returns lifecycle.ErrReportTerminal.
func (s *PostgresStore) Put(ctx context.Context, report *models.Report) error {
	doc, err := json.Marshal(report)
	if err != nil {
		return errors.NewReportStoreFailedError("encode", err)
	}

	res, err := s.db.ExecContext(ctx, upsertReport,
		report.OwnerID, report.ReportID, report.OrderID, string(report.Status),
		report.GeneratedAt, report.UpdatedAt, doc,
	)
	if err != nil {
		return errors.NewReportStoreFailedError("put", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewReportStoreFailedError("put", err)
	}
	if affected == 0 {
		return lifecycle.ErrReportTerminal
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID, reportID string) (*models.Report, error) {
	report, err := s.queryOne(ctx, selectReport, ownerID, reportID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewReportNotFoundError(ownerID, reportID)
	}
	return report, err
}

func (s *PostgresStore) LatestByOrder(ctx context.Context, ownerID, orderID string) (*models.Report, error) {
	report, err := s.queryOne(ctx, selectLatestByOrder, ownerID, orderID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewReportNotFoundError(ownerID, "order:"+orderID)
	}
	return report, err
}

// ListByOwner returns the owner's reports, newest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Report, error) {
	rows, err := s.db.QueryContext(ctx, selectByOwner, ownerID, limit)
	if err != nil {
		return nil, errors.NewReportStoreFailedError("list", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.NewReportStoreFailedError("list", err)
		}
		var r models.Report
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, errors.NewReportStoreFailedError("decode", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewReportStoreFailedError("list", err)
	}
	return reports, nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...interface{}) (*models.Report, error) {
	var doc []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&doc); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.NewReportStoreFailedError("get", err)
	}

	var r models.Report
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, errors.NewReportStoreFailedError("decode", fmt.Errorf("report document: %w", err))
	}
	return &r, nil
}
