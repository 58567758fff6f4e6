// Package store persists passport drafts and sealed passports, keyed by VIN.
package store

import (
	"context"
	"errors"

	"vpass/pkg/models"
)

// Store errors.
var (
	// ErrNotFound is returned when no passport exists for the given VIN.
	ErrNotFound = errors.New("passport not found")

	// ErrLotConflict is returned when a write would reassign a VIN to a
	// different auction lot.
	ErrLotConflict = errors.New("vin already bound to a different lot")
)

// Store is the persistence interface for passports. The VIN is the primary
// key; a VIN holds at most one draft and at most one sealed record. Writing
// a draft invalidates any previously stored sealed record for that VIN,
// because the seal no longer covers the current content.
type Store interface {
	// PutDraft stores or replaces the draft for its VIN and clears any
	// stored sealed record. Returns ErrLotConflict if the VIN is already
	// bound to a different lot.
	PutDraft(ctx context.Context, draft *models.PassportDraft) error

	// GetDraft returns the draft for the VIN, or ErrNotFound.
	GetDraft(ctx context.Context, vin string) (*models.PassportDraft, error)

	// PutSealed stores the sealed record for its VIN. The draft must
	// already exist; ErrNotFound otherwise.
	PutSealed(ctx context.Context, sealed *models.PassportSealed) error

	// GetSealed returns the sealed record for the VIN, or ErrNotFound.
	GetSealed(ctx context.Context, vin string) (*models.PassportSealed, error)

	// ListVINs returns all VINs with a stored draft, sorted.
	ListVINs(ctx context.Context) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}
