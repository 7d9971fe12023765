// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/loangenie/loangenie/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrApplicationNotFound is returned when no record exists for the given id.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrAlreadyFinalized is returned when a terminal update targets a record
	// that is no longer Pending. A record is finalized at most once; a second
	// terminal mutation within a session's lifetime is an invariant violation.
	ErrAlreadyFinalized = errors.New("application already finalized")
)

// Repository defines the interface for persisting applicants and
// loan application records.
type Repository interface {
	// GetApplicant retrieves an applicant by id. Returns (nil, nil) when absent.
	GetApplicant(ctx context.Context, applicantID string) (*domain.Applicant, error)

	// UpsertApplicant creates or updates an applicant record.
	UpsertApplicant(ctx context.Context, applicant *domain.Applicant) error

	// CreateApplication inserts a new application record. The dialogue glue
	// creates records in Pending state with zero-valued loan fields.
	CreateApplication(ctx context.Context, record *domain.ApplicationRecord) error

	// GetApplication retrieves an application record by id.
	GetApplication(ctx context.Context, id string) (*domain.ApplicationRecord, error)

	// ListApplications returns all records for an applicant, newest first.
	ListApplications(ctx context.Context, applicantID string) ([]*domain.ApplicationRecord, error)

	// FinalizeApplication performs the single terminal mutation of a record:
	// a compare-and-swap from Pending to the given terminal status with the
	// finalized amount, tenure and rate. Returns ErrAlreadyFinalized if the
	// record is not Pending, ErrApplicationNotFound if it does not exist.
	FinalizeApplication(ctx context.Context, id string, amount int64, tenureMonths int, interestRate decimal.Decimal, status domain.ApplicationStatus) (*domain.ApplicationRecord, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
