package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pcbuilder/gpumarket/internal/catalog"
	"github.com/pcbuilder/gpumarket/internal/model"
	"github.com/pcbuilder/gpumarket/internal/store"
)

func intp(n int) *int { return &n }

func newTestStore(t *testing.T) (*store.SQLiteStore, *catalog.Index) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	chips := []model.Chip{
		{ChipID: "chip-5070ti-16", VendorID: model.VendorNVIDIA, ModelName: "RTX 5070 Ti", VRAMGB: intp(16)},
		{ChipID: "chip-5080-16", VendorID: model.VendorNVIDIA, ModelName: "RTX 5080", VRAMGB: intp(16)},
	}
	_, err = st.SeedChips(context.Background(), chips)
	require.NoError(t, err)

	return st, catalog.Build(chips)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const tufHypothesis = `{
	"hypothesis_type": "gpu_variant",
	"input": {"model_name": "ASUS GeForce RTX 5070 Ti TUF Gaming 16GB GDDR7"},
	"extraction": {
		"chipset_manufacturer": "NVIDIA",
		"chipset_model": "RTX 5070 Ti",
		"vram_gb": 16,
		"aib_manufacturer": "ASUS",
		"aib_model_suffix": "TUF",
		"length_mm": 330,
		"width_slots": 3.1,
		"fan_count": 3,
		"cooling_type": "Air"
	}
}`

func TestVariantIngestIdempotent(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "h1.json", tufHypothesis)

	ing := NewVariantIngestor(st, idx)

	report, err := ing.Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesScanned)
	assert.Equal(t, 1, report.VariantsInserted)
	assert.Equal(t, 0, report.Errors)
	assert.NoError(t, report.Err())

	// Re-running the identical input must be a pure no-op.
	report, err = ing.Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, report.VariantsInserted)
	assert.Equal(t, 1, report.SkippedDuplicate)
	assert.Equal(t, 0, report.Errors)

	variants, err := st.ListVariants(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, variants, 1)

	v := variants[0]
	assert.Equal(t, "chip-5070ti-16", v.ChipID)
	assert.Equal(t, "ASUS", v.AIBManufacturer)
	require.NotNil(t, v.ModelSuffix)
	assert.Equal(t, "TUF", *v.ModelSuffix)
	require.NotNil(t, v.LengthMM)
	assert.Equal(t, 330, *v.LengthMM)
	require.NotNil(t, v.WidthSlots)
	assert.InDelta(t, 3.1, *v.WidthSlots, 0.001)
	require.NotNil(t, v.CoolingType)
	assert.Equal(t, "Air", *v.CoolingType)
}

func TestVariantIngestTitleWinsOverExtraction(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	dir := t.TempDir()
	// Title resolves to the 5070 Ti, extraction claims a 5080.
	writeFile(t, dir, "h1.json", `{
		"hypothesis_type": "gpu_variant",
		"input": {"model_name": "MSI GeForce RTX 5070 Ti Ventus 16GB"},
		"extraction": {
			"chipset_manufacturer": "NVIDIA",
			"chipset_model": "RTX 5080",
			"vram_gb": 16,
			"aib_manufacturer": "MSI"
		}
	}`)

	report, err := NewVariantIngestor(st, idx).Run(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 1, report.VariantsInserted)

	variants, err := st.ListVariants(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "chip-5070ti-16", variants[0].ChipID)
}

func TestVariantIngestSkipReasons(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	dir := t.TempDir()

	writeFile(t, dir, "a_wrong_type.json", `{"hypothesis_type": "cpu", "input": {"model_name": "x"}, "extraction": {}}`)
	writeFile(t, dir, "b_no_aib.json", `{
		"hypothesis_type": "gpu_variant",
		"input": {"model_name": "GeForce RTX 5070 Ti 16GB"},
		"extraction": {"chipset_manufacturer": "NVIDIA", "chipset_model": "RTX 5070 Ti", "vram_gb": 16}
	}`)
	writeFile(t, dir, "c_no_match.json", `{
		"hypothesis_type": "gpu_variant",
		"input": {"model_name": "unrecognizable"},
		"extraction": {"chipset_manufacturer": "NVIDIA", "chipset_model": "RTX 5090", "vram_gb": 32, "aib_manufacturer": "MSI"}
	}`)
	writeFile(t, dir, "d_broken.json", `{not json`)

	report, err := NewVariantIngestor(st, idx).Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 4, report.FilesScanned)
	assert.Equal(t, 0, report.VariantsInserted)
	assert.Equal(t, 1, report.SkippedWrongType)
	assert.Equal(t, 1, report.SkippedMissingFields)
	assert.Equal(t, 1, report.SkippedNoChipMatch)
	assert.Equal(t, 1, report.Errors)

	// Unreadable files fail the run even though processing continued.
	assert.ErrorContains(t, report.Err(), "failed to read or parse")
}

func TestVariantIngestWrongTypeDiagnostics(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "h1.json", `{
		"hypothesis_type": "cpu",
		"input": {"model_name": "some cpu listing"},
		"extraction": {"chipset_manufacturer": "NVIDIA", "chipset_model": "RTX 5080", "vram_gb": 16}
	}`)

	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	report, err := NewVariantIngestor(st, idx).Run(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 1, report.SkippedWrongType)

	// The skip log carries the resolution the extraction fields would have
	// produced, not empty diagnostics.
	entries := logs.FilterMessage("hypothesis skipped").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "wrong_hypothesis_type", fields["reason"])
	ext, ok := fields["extraction_attempt"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "5080 16 gb", ext["model_key"])
	assert.Equal(t, "chip-5080-16", ext["chip_id"])
}

func TestVariantIngestAmbiguousChip(t *testing.T) {
	ctx := context.Background()
	chips := []model.Chip{
		{ChipID: "chip-a", VendorID: model.VendorNVIDIA, ModelName: "RTX 3060 Ti", VRAMGB: intp(8), MemoryType: func() *string { s := "GDDR6"; return &s }()},
		{ChipID: "chip-b", VendorID: model.VendorNVIDIA, ModelName: "RTX 3060 Ti", VRAMGB: intp(8), MemoryType: func() *string { s := "GDDR6X"; return &s }()},
	}
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx))
	_, err = st.SeedChips(ctx, chips)
	require.NoError(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "h1.json", `{
		"hypothesis_type": "gpu_variant",
		"input": {"model_name": "Palit GeForce RTX 3060 Ti Dual 8GB"},
		"extraction": {"chipset_manufacturer": "NVIDIA", "chipset_model": "RTX 3060 Ti", "vram_gb": 8, "aib_manufacturer": "PALIT"}
	}`)

	report, err := NewVariantIngestor(st, catalog.Build(chips)).Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedAmbiguousChip)
	assert.Equal(t, 0, report.VariantsInserted)
}

func TestVariantIngestDryRun(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "h1.json", tufHypothesis)

	ing := NewVariantIngestor(st, idx)
	ing.DryRun = true

	report, err := ing.Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.VariantsInserted)

	// Nothing was actually written.
	variants, err := st.ListVariants(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, variants)

	// A dry run over an already-ingested file reports the duplicate.
	ing.DryRun = false
	_, err = ing.Run(ctx, dir)
	require.NoError(t, err)
	ing.DryRun = true
	report, err = ing.Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, report.VariantsInserted)
	assert.Equal(t, 1, report.SkippedDuplicate)
}

func TestVariantIngestLimit(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.json", tufHypothesis)
	writeFile(t, dir, "b.json", tufHypothesis)

	ing := NewVariantIngestor(st, idx)
	ing.Limit = 1

	report, err := ing.Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesScanned)
}

func TestSanitizeRejectsImplausibleFields(t *testing.T) {
	ctx := context.Background()
	st, idx := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "h1.json", `{
		"hypothesis_type": "gpu_variant",
		"input": {"model_name": "ASUS GeForce RTX 5080 TUF 16GB"},
		"extraction": {
			"chipset_manufacturer": "NVIDIA",
			"chipset_model": "RTX 5080",
			"vram_gb": 16,
			"aib_manufacturer": "ASUS",
			"length_mm": -10,
			"width_slots": 5.0,
			"fan_count": -1,
			"cooling_type": "Passive"
		}
	}`)

	report, err := NewVariantIngestor(st, idx).Run(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 1, report.VariantsInserted)

	variants, err := st.ListVariants(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, variants, 1)

	v := variants[0]
	assert.Nil(t, v.LengthMM)
	assert.Nil(t, v.WidthSlots)
	assert.Nil(t, v.FanCount)
	assert.Nil(t, v.CoolingType)
}
