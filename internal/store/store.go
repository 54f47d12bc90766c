// Package store persists fund records. The canonical backend is
// PostgreSQL; an in-memory implementation backs tests and deployments
// that run without a database.
//
// Every write maintains the normalized name columns so duplicate
// lookups never re-normalize stored rows.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/arhivare/fondio/internal/fond"
)

// ErrNotFound is returned when a fund id does not exist.
var ErrNotFound = errors.New("fond not found")

// StatusFilter narrows a listing by the active flag.
type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

// ListFilters narrows List results. Zero values mean no filtering.
type ListFilters struct {
	Status StatusFilter
	// Query matches case-insensitively against company and holder names.
	Query       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// OwnerID restricts results to one owner's records.
	OwnerID *uuid.UUID
}

// NameEntry is one row of the duplicate-lookup index: a fund id with
// its pre-normalized company and holder names.
type NameEntry struct {
	ID                uuid.UUID
	NormalizedCompany string
	NormalizedHolder  string
}

// Store is the persistence surface used by the import pipeline and the
// export composer.
type Store interface {
	Create(ctx context.Context, rec fond.ImportRecord, ownerID uuid.UUID) (*fond.Fond, error)
	Update(ctx context.Context, id uuid.UUID, rec fond.ImportRecord) (*fond.Fond, error)
	Get(ctx context.Context, id uuid.UUID) (*fond.Fond, error)
	List(ctx context.Context, filters ListFilters) ([]fond.Fond, error)
	// FindByNormalizedName returns funds whose normalized company name
	// matches exactly.
	FindByNormalizedName(ctx context.Context, normalized string) ([]fond.Fond, error)
	// NameIndex returns the full normalized-name index, loaded once per
	// import job for in-memory similarity scoring.
	NameIndex(ctx context.Context) ([]NameEntry, error)
	Count(ctx context.Context) (int64, error)
}
