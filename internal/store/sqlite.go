package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loangenie/loangenie/internal/domain"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS applicants (
		applicant_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		applicant_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		tenure_months INTEGER NOT NULL,
		interest_rate TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_applications_applicant ON applications(applicant_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetApplicant retrieves an applicant by id.
func (s *SQLiteStore) GetApplicant(ctx context.Context, applicantID string) (*domain.Applicant, error) {
	query := `
		SELECT applicant_id, display_name, created_at, updated_at
		FROM applicants WHERE applicant_id = ?`

	row := s.db.QueryRowContext(ctx, query, applicantID)

	var applicant domain.Applicant
	var createdAt, updatedAt int64

	err := row.Scan(&applicant.ApplicantID, &applicant.DisplayName, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan applicant row: %w", err)
	}

	applicant.CreatedAt = time.Unix(createdAt, 0)
	applicant.UpdatedAt = time.Unix(updatedAt, 0)

	return &applicant, nil
}

// UpsertApplicant creates or updates an applicant record.
func (s *SQLiteStore) UpsertApplicant(ctx context.Context, applicant *domain.Applicant) error {
	query := `
		INSERT INTO applicants (applicant_id, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(applicant_id) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = excluded.updated_at`

	now := time.Now()
	createdAt := applicant.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.db.ExecContext(ctx, query,
		applicant.ApplicantID, applicant.DisplayName, createdAt.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("upsert applicant: %w", err)
	}
	return nil
}

// CreateApplication inserts a new application record.
func (s *SQLiteStore) CreateApplication(ctx context.Context, record *domain.ApplicationRecord) error {
	query := `
		INSERT INTO applications
			(id, applicant_id, type, amount, tenure_months, interest_rate, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.ApplicantID, record.Type,
		record.Amount, record.TenureMonths, record.InterestRate.String(),
		string(record.Status), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// GetApplication retrieves an application record by id.
func (s *SQLiteStore) GetApplication(ctx context.Context, id string) (*domain.ApplicationRecord, error) {
	query := `
		SELECT id, applicant_id, type, amount, tenure_months, interest_rate, status, created_at, updated_at
		FROM applications WHERE id = ?`

	record, err := scanApplication(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application row: %w", err)
	}
	return record, nil
}

// ListApplications returns all records for an applicant, newest first.
func (s *SQLiteStore) ListApplications(ctx context.Context, applicantID string) ([]*domain.ApplicationRecord, error) {
	query := `
		SELECT id, applicant_id, type, amount, tenure_months, interest_rate, status, created_at, updated_at
		FROM applications WHERE applicant_id = ?
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, applicantID)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var records []*domain.ApplicationRecord
	for rows.Next() {
		record, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return records, nil
}

// FinalizeApplication performs the single terminal mutation of a record as a
// compare-and-swap from Pending. The guard lives in the SQL predicate so the
// at-most-once terminal-state invariant holds even if a stale dialogue
// callback attempts a second finalization.
func (s *SQLiteStore) FinalizeApplication(ctx context.Context, id string, amount int64, tenureMonths int, interestRate decimal.Decimal, status domain.ApplicationStatus) (*domain.ApplicationRecord, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("finalize application %s: %q is not a terminal status", id, status)
	}

	query := `
		UPDATE applications
		SET amount = ?, tenure_months = ?, interest_rate = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, query,
		amount, tenureMonths, interestRate.String(), string(status),
		time.Now().Unix(), id, string(domain.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("finalize application: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("finalize application rows affected: %w", err)
	}
	if affected == 0 {
		existing, getErr := s.GetApplication(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status != domain.StatusPending {
			return nil, ErrAlreadyFinalized
		}
		return nil, fmt.Errorf("finalize application %s: update matched no rows", id)
	}

	return s.GetApplication(ctx, id)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*domain.ApplicationRecord, error) {
	var record domain.ApplicationRecord
	var rateStr, status string
	var createdAt, updatedAt int64

	err := row.Scan(
		&record.ID, &record.ApplicantID, &record.Type,
		&record.Amount, &record.TenureMonths, &rateStr,
		&status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("parse interest rate %q: %w", rateStr, err)
	}

	record.InterestRate = rate
	record.Status = domain.ApplicationStatus(status)
	record.CreatedAt = time.Unix(createdAt, 0)
	record.UpdatedAt = time.Unix(updatedAt, 0)

	return &record, nil
}
