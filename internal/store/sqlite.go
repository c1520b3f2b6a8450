package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pcbuilder/gpumarket/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode and foreign-key enforcement. Observations reference variants, so the
// FK pragma is what rejects an observation whose variant never resolved.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS gpu_chip (
	chip_id    TEXT PRIMARY KEY,
	vendor_id  TEXT NOT NULL,
	model_name TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	width_slots         REAL,
	height_mm           INTEGER,
	power_connectors    TEXT,
	cooling_type        TEXT,
	fan_count           INTEGER,
	displayport_count   INTEGER,
	displayport_version TEXT,
	hdmi_count          INTEGER,
	hdmi_version        TEXT,
	warranty_years      INTEGER,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS gpu_market_observation (
	observation_id TEXT PRIMARY KEY,
	variant_id     TEXT NOT NULL REFERENCES gpu_variant(variant_id),
	retailer       TEXT NOT NULL,
	sku            TEXT,
	product_url    TEXT NOT NULL,
	price_eur      REAL NOT NULL,
	currency       TEXT,
	stock_status   TEXT,
	observed_at    TEXT NOT NULL,
	scrape_run_id  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	dry_run     INTEGER NOT NULL,
	counters    TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gpu_variant_chip_id ON gpu_variant(chip_id);
CREATE INDEX IF NOT EXISTS idx_gpu_obs_variant_id ON gpu_market_observation(variant_id);
CREATE INDEX IF NOT EXISTS idx_gpu_obs_retailer ON gpu_market_observation(retailer);
CREATE INDEX IF NOT EXISTS idx_gpu_obs_observed_at ON gpu_market_observation(observed_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadChips(ctx context.Context) ([]model.Chip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chip_id, c.vendor_id, c.model_name, m.vram_gb, m.memory_type
		FROM gpu_chip c
		LEFT JOIN gpu_memory m ON m.chip_id = c.chip_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load chips")
	}
	defer rows.Close()

	var chips []model.Chip
	for rows.Next() {
		var c model.Chip
		if err := rows.Scan(&c.ChipID, &c.VendorID, &c.ModelName, &c.VRAMGB, &c.MemoryType); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chip")
		}
		chips = append(chips, c)
	}
	return chips, eris.Wrap(rows.Err(), "sqlite: load chips iterate")
}

func (s *SQLiteStore) SeedChips(ctx context.Context, chips []model.Chip) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: seed begin")
	}
	defer tx.Rollback() //nolint:errcheck

	seeded := 0
	for _, chip := range chips {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gpu_chip (chip_id, vendor_id, model_name)
			VALUES (?, ?, ?)
			ON CONFLICT(chip_id) DO UPDATE SET
				vendor_id = excluded.vendor_id,
				model_name = excluded.model_name`,
			chip.ChipID, string(chip.VendorID), chip.ModelName,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: seed chip %s", chip.ChipID)
		}
		if chip.VRAMGB != nil {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO gpu_memory (chip_id, vram_gb, memory_type)
				VALUES (?, ?, ?)
				ON CONFLICT(chip_id) DO UPDATE SET
					vram_gb = excluded.vram_gb,
					memory_type = excluded.memory_type`,
				chip.ChipID, *chip.VRAMGB, chip.MemoryType,
			)
			if err != nil {
				return 0, eris.Wrapf(err, "sqlite: seed memory %s", chip.ChipID)
			}
		}
		seeded++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: seed commit")
	}
	return seeded, nil
}

const variantColumns = `variant_id, chip_id, aib_manufacturer, model_suffix, part_number,
	factory_boost_mhz, length_mm, width_slots, height_mm, power_connectors,
	cooling_type, fan_count, displayport_count, displayport_version,
	hdmi_count, hdmi_version, warranty_years`

func (s *SQLiteStore) InsertVariant(ctx context.Context, v *model.Variant) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO gpu_variant (`+variantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(variant_id) DO NOTHING`,
		v.VariantID, v.ChipID, v.AIBManufacturer, v.ModelSuffix, v.PartNumber,
		v.FactoryBoostMHz, v.LengthMM, v.WidthSlots, v.HeightMM, v.PowerConnectors,
		v.CoolingType, v.FanCount, v.DisplayPortCount, v.DisplayPortVersion,
		v.HDMICount, v.HDMIVersion, v.WarrantyYears,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert variant %s", v.VariantID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert variant rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) VariantExists(ctx context.Context, variantID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM gpu_variant WHERE variant_id = ?`, variantID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: variant exists %s", variantID)
	}
	return true, nil
}

func (s *SQLiteStore) ListVariants(ctx context.Context, limit, offset int) ([]model.Variant, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+variantColumns+`
		FROM gpu_variant ORDER BY variant_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list variants")
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
			return nil, eris.Wrap(err, "sqlite: scan variant")
		}
		variants = append(variants, v)
	}
	return variants, eris.Wrap(rows.Err(), "sqlite: list variants iterate")
}

func (s *SQLiteStore) InsertObservation(ctx context.Context, o *model.MarketObservation) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO gpu_market_observation (
			observation_id, variant_id, retailer, sku, product_url,
			price_eur, currency, stock_status, observed_at, scrape_run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(observation_id) DO NOTHING`,
		o.ObservationID, o.VariantID, o.Retailer, o.SKU, o.ProductURL,
		o.PriceEUR, o.Currency, o.StockStatus, o.ObservedAt, o.ScrapeRunID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert observation %s", o.ObservationID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert observation rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ObservationExists(ctx context.Context, observationID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM gpu_market_observation WHERE observation_id = ?`, observationID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: observation exists %s", observationID)
	}
	return true, nil
}

func (s *SQLiteStore) ListObservations(ctx context.Context, variantID string, limit int) ([]model.MarketObservation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT observation_id, variant_id, retailer, sku, product_url,
			price_eur, currency, stock_status, observed_at, scrape_run_id
		FROM gpu_market_observation
		WHERE variant_id = ?
		ORDER BY observed_at DESC LIMIT ?`, variantID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close()

	var obs []model.MarketObservation
	for rows.Next() {
		var o model.MarketObservation
		if err := rows.Scan(
			&o.ObservationID, &o.VariantID, &o.Retailer, &o.SKU, &o.ProductURL,
			&o.PriceEUR, &o.Currency, &o.StockStatus, &o.ObservedAt, &o.ScrapeRunID,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "sqlite: list observations iterate")
}

func (s *SQLiteStore) HasCurrencyColumn(ctx context.Context) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(gpu_market_observation)`)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: table info")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false, eris.Wrap(err, "sqlite: scan table info")
		}
		if name == "currency" {
			return true, nil
		}
	}
	return false, eris.Wrap(rows.Err(), "sqlite: table info iterate")
}

func (s *SQLiteStore) CurrentPrices(ctx context.Context) ([]model.PriceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.variant_id, v.chip_id, c.model_name, v.aib_manufacturer,
			o.retailer, o.price_eur, o.currency, o.observed_at
		FROM gpu_market_observation o
		JOIN gpu_variant v ON v.variant_id = o.variant_id
		JOIN gpu_chip c ON c.chip_id = v.chip_id
		WHERE o.observed_at = (
			SELECT MAX(o2.observed_at) FROM gpu_market_observation o2
			WHERE o2.variant_id = o.variant_id AND o2.retailer = o.retailer
		)
		ORDER BY c.model_name, v.aib_manufacturer, o.retailer`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: current prices")
	}
	defer rows.Close()

	var snaps []model.PriceSnapshot
	for rows.Next() {
		var p model.PriceSnapshot
		if err := rows.Scan(
			&p.VariantID, &p.ChipID, &p.ModelName, &p.AIBManufacturer,
			&p.Retailer, &p.PriceEUR, &p.Currency, &p.ObservedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price snapshot")
		}
		snaps = append(snaps, p)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: current prices iterate")
}

func (s *SQLiteStore) PriceStats(ctx context.Context) ([]model.PriceStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.variant_id, c.model_name, COUNT(*),
			MIN(o.price_eur), AVG(o.price_eur), MAX(o.price_eur),
			MIN(o.observed_at), MAX(o.observed_at)
		FROM gpu_market_observation o
		JOIN gpu_variant v ON v.variant_id = o.variant_id
		JOIN gpu_chip c ON c.chip_id = v.chip_id
		GROUP BY o.variant_id, c.model_name
		ORDER BY c.model_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: price stats")
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
			return nil, eris.Wrap(err, "sqlite: scan price stat")
		}
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: price stats iterate")
}

func (s *SQLiteStore) RecordIngestRun(ctx context.Context, run *model.IngestRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	countersJSON, err := json.Marshal(run.Counters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counters")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, kind, dry_run, counters, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.DryRun, string(countersJSON), run.StartedAt, run.FinishedAt,
	)
	return eris.Wrap(err, "sqlite: record ingest run")
}
