package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbuilder/gpumarket/internal/catalog"
	"github.com/pcbuilder/gpumarket/internal/identity"
	"github.com/pcbuilder/gpumarket/internal/store"
)

// obsFixture lays out a bronze tree the way the crawler does:
//
//	<root>/hypotheses/h1.json
//	<root>/marketplace/geizhals/runs/r1/page_pg=1.products.json
//	<root>/indexes/observed_product/<urlhash>.json
type obsFixture struct {
	root           string
	marketplaceDir string
	indexDir       string
}

func newObsFixture(t *testing.T) obsFixture {
	t.Helper()
	root := t.TempDir()
	return obsFixture{
		root:           root,
		marketplaceDir: filepath.Join(root, "marketplace"),
		indexDir:       filepath.Join(root, "indexes", "observed_product"),
	}
}

func (f obsFixture) writeHypothesis(t *testing.T, name, content string) {
	t.Helper()
	writeFile(t, f.root, filepath.Join("hypotheses", name), content)
}

func (f obsFixture) writePage(t *testing.T, retailer, run, content string) {
	t.Helper()
	writeFile(t, f.marketplaceDir, filepath.Join(retailer, "runs", run, "page_pg=1.products.json"), content)
}

func (f obsFixture) writeIndex(t *testing.T, name, content string) {
	t.Helper()
	writeFile(t, f.indexDir, name, content)
}

const obsURL = "https://x/a1.html"

func (f obsFixture) seedResolvable(t *testing.T) {
	t.Helper()
	f.writeHypothesis(t, "h1.json", tufHypothesis)
	f.writeIndex(t, identity.URLHash(obsURL)+".json", `{
		"product_url": "https://x/a1.html",
		"normalized_name": "asus geforce rtx 5070 ti tuf gaming 16gb gddr7",
		"hypotheses": ["hypotheses/h1.json"],
		"marketplace_observations": ["marketplace/geizhals/runs/r1/page_pg=1.products.json#0"]
	}`)
	f.writePage(t, "geizhals", "r1", `[{
		"retailer": "geizhals",
		"product_name_raw": "ASUS GeForce RTX 5070 Ti TUF Gaming 16GB GDDR7",
		"product_url": "https://x/a1.html",
		"price_eur": 899.0,
		"currency": "EUR",
		"stock_status": "in_stock",
		"observed_at_utc": "2025-01-01T00:00:00Z",
		"scrape_run_id": "r1"
	}]`)
}

// ingestVariants runs the variant pass over the fixture's hypotheses so the
// observation rows have a variant to reference.
func (f obsFixture) ingestVariants(t *testing.T, st store.Store, idx *catalog.Index) {
	t.Helper()
	report, err := NewVariantIngestor(st, idx).Run(context.Background(), filepath.Join(f.root, "hypotheses"))
	require.NoError(t, err)
	require.Equal(t, 1, report.VariantsInserted)
}

func TestObservationIngestEndToEnd(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	f := newObsFixture(t)
	f.seedResolvable(t)
	f.ingestVariants(t, st, idx)

	ing := NewObservationIngestor(st, idx, f.root)

	report, err := ing.Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ObservationsScanned)
	assert.Equal(t, 1, report.ObservationsInserted)
	assert.Equal(t, 0, report.Errors)
	assert.NoError(t, report.Err())

	// The attributed variant id must be the one the variant pass wrote.
	variants, err := st.ListVariants(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, variants, 1)

	obs, err := st.ListObservations(ctx, variants[0].VariantID, 10)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "geizhals", obs[0].Retailer)
	assert.Equal(t, obsURL, obs[0].ProductURL)
	assert.InDelta(t, 899.0, obs[0].PriceEUR, 0.001)
	require.NotNil(t, obs[0].StockStatus)
	assert.Equal(t, "in_stock", *obs[0].StockStatus)
	assert.Equal(t, "2025-01-01T00:00:00Z", obs[0].ObservedAt)

	// Re-ingesting the same tree is a no-op.
	report, err = ing.Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 0, report.ObservationsInserted)
	assert.Equal(t, 1, report.SkippedDuplicate)
}

func TestObservationIngestNoIndexEntry(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	f := newObsFixture(t)
	f.writePage(t, "geizhals", "r1", `[{
		"retailer": "geizhals",
		"product_url": "https://x/unknown.html",
		"price_eur": 100.0,
		"observed_at_utc": "2025-01-01T00:00:00Z",
		"scrape_run_id": "r1"
	}]`)

	report, err := NewObservationIngestor(st, idx, f.root).Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedNoIndex)
	assert.Equal(t, 0, report.ObservationsInserted)
}

func TestObservationIngestAmbiguousIndexEntry(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	f := newObsFixture(t)
	f.seedResolvable(t)
	f.ingestVariants(t, st, idx)
	// A second index document claiming the same URL poisons the attribution.
	f.writeIndex(t, "duplicate-claim.json", `{
		"product_url": "https://x/a1.html",
		"hypotheses": ["hypotheses/h1.json"],
		"marketplace_observations": []
	}`)

	report, err := NewObservationIngestor(st, idx, f.root).Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedAmbiguousIndex)
	assert.Equal(t, 0, report.ObservationsInserted)
}

func TestObservationIngestHypothesisProblems(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	f := newObsFixture(t)

	urlNone := "https://x/none.html"
	urlMany := "https://x/many.html"
	urlGone := "https://x/gone.html"

	f.writeHypothesis(t, "h1.json", tufHypothesis)
	f.writeIndex(t, identity.URLHash(urlNone)+".json",
		`{"product_url": "https://x/none.html", "hypotheses": [], "marketplace_observations": []}`)
	f.writeIndex(t, identity.URLHash(urlMany)+".json",
		`{"product_url": "https://x/many.html", "hypotheses": ["hypotheses/h1.json", "hypotheses/h2.json"], "marketplace_observations": []}`)
	f.writeIndex(t, identity.URLHash(urlGone)+".json",
		`{"product_url": "https://x/gone.html", "hypotheses": ["hypotheses/missing.json"], "marketplace_observations": []}`)
	f.writePage(t, "geizhals", "r1", `[
		{"retailer": "geizhals", "product_url": "https://x/none.html", "price_eur": 1.0, "observed_at_utc": "t", "scrape_run_id": "r"},
		{"retailer": "geizhals", "product_url": "https://x/many.html", "price_eur": 1.0, "observed_at_utc": "t", "scrape_run_id": "r"},
		{"retailer": "geizhals", "product_url": "https://x/gone.html", "price_eur": 1.0, "observed_at_utc": "t", "scrape_run_id": "r"}
	]`)

	report, err := NewObservationIngestor(st, idx, f.root).Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 3, report.ObservationsScanned)
	assert.Equal(t, 1, report.SkippedNoHypothesis)
	assert.Equal(t, 1, report.SkippedAmbiguousHypothesis)
	assert.Equal(t, 1, report.SkippedMissingHypothesis)
}

func TestObservationIngestValidation(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	f := newObsFixture(t)
	f.writeHypothesis(t, "h1.json", tufHypothesis)
	f.writeIndex(t, identity.URLHash(obsURL)+".json", `{
		"product_url": "https://x/a1.html",
		"hypotheses": ["hypotheses/h1.json"],
		"marketplace_observations": []
	}`)
	f.ingestVariants(t, st, idx)

	base := `"retailer": "geizhals", "product_url": "https://x/a1.html", "observed_at_utc": "2025-01-01T00:00:00Z", "scrape_run_id": "r1"`
	f.writePage(t, "geizhals", "r1", `[
		{`+base+`, "price_eur": -5.0, "currency": "EUR"},
		{`+base+`, "price_eur": 0, "currency": "EUR"},
		{`+base+`, "price_eur": 899.0, "currency": "EUR", "stock_status": "maybe"},
		{`+base+`, "price_eur": 899.0, "currency": "ZZZ"},
		{`+base+`, "price_eur": 899.0},
		{"product_url": "https://x/a1.html", "price_eur": 899.0, "currency": "EUR", "observed_at_utc": "t", "scrape_run_id": "r"}
	]`)

	report, err := NewObservationIngestor(st, idx, f.root).Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 6, report.ObservationsScanned)
	assert.Equal(t, 2, report.SkippedInvalidPrice)
	assert.Equal(t, 1, report.SkippedInvalidStockStatus)
	// Bad ISO code, missing currency, and missing retailer all land in the
	// missing-fields tier.
	assert.Equal(t, 3, report.SkippedMissingFields)
	assert.Equal(t, 0, report.ObservationsInserted)
}

func TestObservationIngestUnreadableFileFailsRun(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	f := newObsFixture(t)
	f.writePage(t, "geizhals", "r1", `[{not json`)

	report, err := NewObservationIngestor(st, idx, f.root).Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.ErrorContains(t, report.Err(), "failed to read or parse")
}

func TestObservationIngestLimit(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	f := newObsFixture(t)
	f.writePage(t, "geizhals", "r1", `[
		{"retailer": "geizhals", "product_url": "https://x/1.html", "price_eur": 1.0, "observed_at_utc": "t", "scrape_run_id": "r"},
		{"retailer": "geizhals", "product_url": "https://x/2.html", "price_eur": 1.0, "observed_at_utc": "t", "scrape_run_id": "r"},
		{"retailer": "geizhals", "product_url": "https://x/3.html", "price_eur": 1.0, "observed_at_utc": "t", "scrape_run_id": "r"}
	]`)

	ing := NewObservationIngestor(st, idx, f.root)
	ing.Limit = 2

	report, err := ing.Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ObservationsScanned)
}

func TestObservationIngestDryRun(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	f := newObsFixture(t)
	f.seedResolvable(t)
	f.ingestVariants(t, st, idx)

	ing := NewObservationIngestor(st, idx, f.root)
	ing.DryRun = true

	report, err := ing.Run(ctx, f.marketplaceDir, f.indexDir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ObservationsInserted)

	variants, err := st.ListVariants(ctx, 10, 0)
	require.NoError(t, err)
	obs, err := st.ListObservations(ctx, variants[0].VariantID, 10)
	require.NoError(t, err)
	assert.Empty(t, obs)
}
