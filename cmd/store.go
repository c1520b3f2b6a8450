package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pcbuilder/gpumarket/internal/catalog"
	"github.com/pcbuilder/gpumarket/internal/store"
)

// openStore opens the configured backend. Callers own the Close.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// loadCatalogIndex reads the chip catalog and builds the in-memory lookup
// index both ingest passes resolve against. An unreadable or empty catalog is
// fatal: without it nothing can be attributed.
func loadCatalogIndex(ctx context.Context, st store.Store) (*catalog.Index, error) {
	chips, err := st.LoadChips(ctx)
	if err != nil {
		return nil, err
	}
	if len(chips) == 0 {
		return nil, eris.New("chip catalog is empty; run seed first")
	}
	return catalog.Build(chips), nil
}
