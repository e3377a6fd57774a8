// Package history archives every filed dispute to a local SQLite database,
// outliving the session and persistent counter documents. The archive is
// append-only; rollups feed the status command and the dashboard.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
)

// Archive wraps SQLite access for the dispute ledger.
type Archive struct {
	db *sql.DB
}

func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) Close() error { return a.db.Close() }

func (a *Archive) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS disputes (
			id TEXT PRIMARY KEY,
			filed_at TIMESTAMP,
			invoice TEXT,
			tracking_id TEXT,
			amount TEXT,
			run_id TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_disputes_invoice ON disputes(invoice);`,
		`CREATE INDEX IF NOT EXISTS idx_disputes_filed_at ON disputes(filed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record is one archived dispute.
type Record struct {
	ID         string    `json:"id"`
	FiledAt    time.Time `json:"filed_at"`
	Invoice    string    `json:"invoice"`
	TrackingID string    `json:"tracking_id"`
	Amount     string    `json:"amount"`
	RunID      string    `json:"run_id"`
}

// Insert appends one dispute. FiledAt and ID default when zero.
func (a *Archive) Insert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FiledAt.IsZero() {
		rec.FiledAt = time.Now().UTC()
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO disputes (id, filed_at, invoice, tracking_id, amount, run_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FiledAt, rec.Invoice, rec.TrackingID, rec.Amount, rec.RunID)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

// ByInvoice returns the archived disputes for one invoice, oldest first.
func (a *Archive) ByInvoice(ctx context.Context, invoice string) ([]Record, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, filed_at, invoice, tracking_id, amount, run_id
		 FROM disputes WHERE invoice = ? ORDER BY filed_at ASC`, invoice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.FiledAt, &rec.Invoice, &rec.TrackingID, &rec.Amount, &rec.RunID); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Rollup summarizes the archive for the status view.
type Rollup struct {
	Total int `json:"total"`
	Month int `json:"month"`
}

// Totals reports the all-time count and the count since the start of the
// current month.
func (a *Archive) Totals(ctx context.Context, now time.Time) (Rollup, error) {
	var r Rollup
	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM disputes`).Scan(&r.Total); err != nil {
		return r, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM disputes WHERE filed_at >= ?`, monthStart).Scan(&r.Month); err != nil {
		return r, err
	}
	return r, nil
}
