// Package donations persists a local ledger of completed donations. The
// vendor (Stripe/PayPal) stays the source of truth; the ledger exists so
// operators can reconcile without vendor dashboard access.
package donations

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"harborlight/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Service is the sqlite-backed donation ledger.
type Service struct {
	db  *sql.DB
	log *logrus.Logger
	now func() time.Time
}

// Open opens (creating if needed) the ledger database at path and applies
// pending migrations.
func Open(path string, log *logrus.Logger) (*Service, error) {
	if log == nil {
		log = logrus.New()
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Service{db: db, log: log, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

// Record inserts a donation record, assigning an id and timestamp when
// absent. A duplicate (provider, reference) pair is treated as already
// recorded, not an error, since webhooks may be delivered more than once.
func (s *Service) Record(rec models.DonationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO donations (id, provider, reference, capture_id, amount_cents, currency, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, reference) DO NOTHING`,
		rec.ID, rec.Provider, rec.Reference, rec.CaptureID, rec.AmountCents, rec.Currency, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// List returns the most recent donations, newest first.
func (s *Service) List(limit int) ([]models.DonationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, provider, reference, capture_id, amount_cents, currency, status, created_at
		 FROM donations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer rows.Close()

	var records []models.DonationRecord
	for rows.Next() {
		var rec models.DonationRecord
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.Reference, &rec.CaptureID,
			&rec.AmountCents, &rec.Currency, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Totals summarizes completed donations for the admin summary endpoint.
func (s *Service) Totals() (models.DonationTotals, error) {
	var totals models.DonationTotals
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0)
		 FROM donations WHERE status IN ('succeeded', 'completed')`,
	).Scan(&totals.Count, &totals.AmountCents)
	if err != nil {
		return models.DonationTotals{}, fmt.Errorf("query totals: %w", err)
	}
	return totals, nil
}
