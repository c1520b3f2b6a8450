package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pcbuilder/gpumarket/internal/db"
	"github.com/pcbuilder/gpumarket/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS gpu_chip (
	chip_id    TEXT PRIMARY KEY,
	vendor_id  TEXT NOT NULL,
	model_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS gpu_memory (
	chip_id     TEXT PRIMARY KEY REFERENCES gpu_chip(chip_id),
	vram_gb     INTEGER NOT NULL,
	memory_type TEXT
);

CREATE TABLE IF NOT EXISTS gpu_variant (
	variant_id          TEXT PRIMARY KEY,
	chip_id             TEXT NOT NULL REFERENCES gpu_chip(chip_id),
	aib_manufacturer    TEXT NOT NULL,
	model_suffix        TEXT,
	part_number         TEXT,
	factory_boost_mhz   INTEGER,
	length_mm           INTEGER,
	width_slots         DOUBLE PRECISION,
	height_mm           INTEGER,
	power_connectors    TEXT,
	cooling_type        TEXT,
	fan_count           INTEGER,
	displayport_count   INTEGER,
	displayport_version TEXT,
	hdmi_count          INTEGER,
	hdmi_version        TEXT,
	warranty_years      INTEGER,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS gpu_market_observation (
	observation_id TEXT PRIMARY KEY,
	variant_id     TEXT NOT NULL REFERENCES gpu_variant(variant_id),
	retailer       TEXT NOT NULL,
	sku            TEXT,
	product_url    TEXT NOT NULL,
	price_eur      DOUBLE PRECISION NOT NULL,
	currency       TEXT,
	stock_status   TEXT,
	observed_at    TEXT NOT NULL,
	scrape_run_id  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	dry_run     BOOLEAN NOT NULL,
	counters    JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gpu_variant_chip_id ON gpu_variant(chip_id);
CREATE INDEX IF NOT EXISTS idx_gpu_obs_variant_id ON gpu_market_observation(variant_id);
CREATE INDEX IF NOT EXISTS idx_gpu_obs_retailer ON gpu_market_observation(retailer);
CREATE INDEX IF NOT EXISTS idx_gpu_obs_observed_at ON gpu_market_observation(observed_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LoadChips(ctx context.Context) ([]model.Chip, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.chip_id, c.vendor_id, c.model_name, m.vram_gb, m.memory_type
		FROM gpu_chip c
		LEFT JOIN gpu_memory m ON m.chip_id = c.chip_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load chips")
	}
	defer rows.Close()

	var chips []model.Chip
	for rows.Next() {
		var c model.Chip
		if err := rows.Scan(&c.ChipID, &c.VendorID, &c.ModelName, &c.VRAMGB, &c.MemoryType); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chip")
		}
		chips = append(chips, c)
	}
	return chips, eris.Wrap(rows.Err(), "postgres: load chips iterate")
}

func (s *PostgresStore) SeedChips(ctx context.Context, chips []model.Chip) (int, error) {
	chipSQL, err := db.UpsertSQL(db.UpsertConfig{
		Table:        "gpu_chip",
		Columns:      []string{"chip_id", "vendor_id", "model_name"},
		ConflictKeys: []string{"chip_id"},
	})
	if err != nil {
		return 0, err
	}
	memorySQL, err := db.UpsertSQL(db.UpsertConfig{
		Table:        "gpu_memory",
		Columns:      []string{"chip_id", "vram_gb", "memory_type"},
		ConflictKeys: []string{"chip_id"},
	})
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: seed begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	seeded := 0
	for _, chip := range chips {
		if _, err := tx.Exec(ctx, chipSQL, chip.ChipID, string(chip.VendorID), chip.ModelName); err != nil {
			return 0, eris.Wrapf(err, "postgres: seed chip %s", chip.ChipID)
		}
		if chip.VRAMGB != nil {
			if _, err := tx.Exec(ctx, memorySQL, chip.ChipID, *chip.VRAMGB, chip.MemoryType); err != nil {
				return 0, eris.Wrapf(err, "postgres: seed memory %s", chip.ChipID)
			}
		}
		seeded++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: seed commit")
	}
	return seeded, nil
}

func (s *PostgresStore) InsertVariant(ctx context.Context, v *model.Variant) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO gpu_variant (`+variantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (variant_id) DO NOTHING`,
		v.VariantID, v.ChipID, v.AIBManufacturer, v.ModelSuffix, v.PartNumber,
		v.FactoryBoostMHz, v.LengthMM, v.WidthSlots, v.HeightMM, v.PowerConnectors,
		v.CoolingType, v.FanCount, v.DisplayPortCount, v.DisplayPortVersion,
		v.HDMICount, v.HDMIVersion, v.WarrantyYears,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert variant %s", v.VariantID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) VariantExists(ctx context.Context, variantID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM gpu_variant WHERE variant_id = $1`, variantID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: variant exists %s", variantID)
	}
	return true, nil
}

func (s *PostgresStore) ListVariants(ctx context.Context, limit, offset int) ([]model.Variant, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+variantColumns+`
		FROM gpu_variant ORDER BY variant_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list variants")
	}
	defer rows.Close()

	var variants []model.Variant
	for rows.Next() {
		var v model.Variant
		if err := rows.Scan(
			&v.VariantID, &v.ChipID, &v.AIBManufacturer, &v.ModelSuffix, &v.PartNumber,
			&v.FactoryBoostMHz, &v.LengthMM, &v.WidthSlots, &v.HeightMM, &v.PowerConnectors,
			&v.CoolingType, &v.FanCount, &v.DisplayPortCount, &v.DisplayPortVersion,
			&v.HDMICount, &v.HDMIVersion, &v.WarrantyYears,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan variant")
		}
		variants = append(variants, v)
	}
	return variants, eris.Wrap(rows.Err(), "postgres: list variants iterate")
}

func (s *PostgresStore) InsertObservation(ctx context.Context, o *model.MarketObservation) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO gpu_market_observation (
			observation_id, variant_id, retailer, sku, product_url,
			price_eur, currency, stock_status, observed_at, scrape_run_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (observation_id) DO NOTHING`,
		o.ObservationID, o.VariantID, o.Retailer, o.SKU, o.ProductURL,
		o.PriceEUR, o.Currency, o.StockStatus, o.ObservedAt, o.ScrapeRunID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert observation %s", o.ObservationID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ObservationExists(ctx context.Context, observationID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM gpu_market_observation WHERE observation_id = $1`, observationID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: observation exists %s", observationID)
	}
	return true, nil
}

func (s *PostgresStore) ListObservations(ctx context.Context, variantID string, limit int) ([]model.MarketObservation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT observation_id, variant_id, retailer, sku, product_url,
			price_eur, currency, stock_status, observed_at, scrape_run_id
		FROM gpu_market_observation
		WHERE variant_id = $1
		ORDER BY observed_at DESC LIMIT $2`, variantID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list observations")
	}
	defer rows.Close()

	var obs []model.MarketObservation
	for rows.Next() {
		var o model.MarketObservation
		if err := rows.Scan(
			&o.ObservationID, &o.VariantID, &o.Retailer, &o.SKU, &o.ProductURL,
			&o.PriceEUR, &o.Currency, &o.StockStatus, &o.ObservedAt, &o.ScrapeRunID,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "postgres: list observations iterate")
}

func (s *PostgresStore) HasCurrencyColumn(ctx context.Context) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `
		SELECT 1 FROM information_schema.columns
		WHERE table_name = 'gpu_market_observation' AND column_name = 'currency'`,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "postgres: currency column probe")
	}
	return true, nil
}

func (s *PostgresStore) CurrentPrices(ctx context.Context) ([]model.PriceSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (o.variant_id, o.retailer)
			o.variant_id, v.chip_id, c.model_name, v.aib_manufacturer,
			o.retailer, o.price_eur, o.currency, o.observed_at
		FROM gpu_market_observation o
		JOIN gpu_variant v ON v.variant_id = o.variant_id
		JOIN gpu_chip c ON c.chip_id = v.chip_id
		ORDER BY o.variant_id, o.retailer, o.observed_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: current prices")
	}
	defer rows.Close()

	var snaps []model.PriceSnapshot
	for rows.Next() {
		var p model.PriceSnapshot
		if err := rows.Scan(
			&p.VariantID, &p.ChipID, &p.ModelName, &p.AIBManufacturer,
			&p.Retailer, &p.PriceEUR, &p.Currency, &p.ObservedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price snapshot")
		}
		snaps = append(snaps, p)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: current prices iterate")
}

func (s *PostgresStore) PriceStats(ctx context.Context) ([]model.PriceStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.variant_id, c.model_name, COUNT(*),
			MIN(o.price_eur), AVG(o.price_eur), MAX(o.price_eur),
			MIN(o.observed_at), MAX(o.observed_at)
		FROM gpu_market_observation o
		JOIN gpu_variant v ON v.variant_id = o.variant_id
		JOIN gpu_chip c ON c.chip_id = v.chip_id
		GROUP BY o.variant_id, c.model_name
		ORDER BY c.model_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: price stats")
	}
	defer rows.Close()

	var stats []model.PriceStat
	for rows.Next() {
		var st model.PriceStat
		if err := rows.Scan(
			&st.VariantID, &st.ModelName, &st.Observations,
			&st.MinPriceEUR, &st.AvgPriceEUR, &st.MaxPriceEUR,
			&st.FirstSeen, &st.LastSeen,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price stat")
		}
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: price stats iterate")
}

func (s *PostgresStore) RecordIngestRun(ctx context.Context, run *model.IngestRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	countersJSON, err := json.Marshal(run.Counters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counters")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ingest_runs (id, kind, dry_run, counters, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Kind, run.DryRun, string(countersJSON), run.StartedAt, run.FinishedAt,
	)
	return eris.Wrap(err, "postgres: record ingest run")
}
