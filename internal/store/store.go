// Package store persists the silver-layer GPU tables behind a backend
// interface with SQLite and Postgres implementations. Every write keyed by a
// content-addressed id is insert-or-ignore: replaying a run never corrupts
// or double-inserts.
package store

import (
	"context"

	"github.com/pcbuilder/gpumarket/internal/model"
)

// Store is the persistence interface for the ingestion pipeline.
type Store interface {
	// Catalog (read-only input seeded externally; SeedChips is the loader).
	LoadChips(ctx context.Context) ([]model.Chip, error)
	SeedChips(ctx context.Context, chips []model.Chip) (int, error)

	// Variants. InsertVariant reports whether a row was actually written;
	// false means the variant id already existed and the insert was ignored
	// (first-writer-wins).
	InsertVariant(ctx context.Context, v *model.Variant) (bool, error)
	VariantExists(ctx context.Context, variantID string) (bool, error)
	ListVariants(ctx context.Context, limit, offset int) ([]model.Variant, error)

	// Observations.
	InsertObservation(ctx context.Context, o *model.MarketObservation) (bool, error)
	ObservationExists(ctx context.Context, observationID string) (bool, error)
	ListObservations(ctx context.Context, variantID string, limit int) ([]model.MarketObservation, error)
	HasCurrencyColumn(ctx context.Context) (bool, error)

	// Reporting.
	CurrentPrices(ctx context.Context) ([]model.PriceSnapshot, error)
	PriceStats(ctx context.Context) ([]model.PriceStat, error)

	// Bookkeeping.
	RecordIngestRun(ctx context.Context, run *model.IngestRun) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
