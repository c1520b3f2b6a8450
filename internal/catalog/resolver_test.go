package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbuilder/gpumarket/internal/model"
)

func intp(n int) *int { return &n }

func strp(s string) *string { return &s }

func testIndex() *Index {
	return Build([]model.Chip{
		{ChipID: "chip-5070ti-16", VendorID: model.VendorNVIDIA, ModelName: "RTX 5070 Ti", VRAMGB: intp(16)},
		{ChipID: "chip-5080-16", VendorID: model.VendorNVIDIA, ModelName: "RTX 5080", VRAMGB: intp(16)},
		{ChipID: "chip-9070xt-16", VendorID: model.VendorAMD, ModelName: "RX 9070 XT", VRAMGB: intp(16)},
		// Two configurations sharing vendor, model and VRAM: only the memory
		// type differs, so they collide on every lookup key.
		{ChipID: "chip-3060ti-g6", VendorID: model.VendorNVIDIA, ModelName: "RTX 3060 Ti", VRAMGB: intp(8), MemoryType: strp("GDDR6")},
		{ChipID: "chip-3060ti-g6x", VendorID: model.VendorNVIDIA, ModelName: "RTX 3060 Ti", VRAMGB: intp(8), MemoryType: strp("GDDR6X")},
		// No catalog VRAM recorded.
		{ChipID: "chip-b580", VendorID: model.VendorIntel, ModelName: "ARC B580"},
	})
}

func TestResolveExactMatch(t *testing.T) {
	idx := testIndex()

	att := idx.Resolve(model.VendorNVIDIA, "RTX 5070 Ti", intp(16))
	require.True(t, att.Resolved())
	assert.Equal(t, StateMatched, att.State)
	assert.Equal(t, "chip-5070ti-16", att.ChipID)
	assert.Equal(t, "5070 ti 16 gb", att.ModelKey)
}

func TestResolveConcatenatedSpelling(t *testing.T) {
	idx := testIndex()

	att := idx.Resolve(model.VendorNVIDIA, "rtx5070ti", intp(16))
	require.True(t, att.Resolved())
	assert.Equal(t, "chip-5070ti-16", att.ChipID)
}

func TestResolveWrongVRAMIsNoMatch(t *testing.T) {
	idx := testIndex()

	att := idx.Resolve(model.VendorNVIDIA, "RTX 5070 Ti", intp(8))
	assert.Equal(t, StateNoMatch, att.State)
	assert.False(t, att.Resolved())
	assert.Empty(t, att.ChipID)
}

func TestResolveWithoutVRAMMissesVRAMQualifiedKeys(t *testing.T) {
	// Catalog keys carry the VRAM suffix when the chip's VRAM is known, so a
	// query without VRAM cannot reach them.
	idx := testIndex()

	att := idx.Resolve(model.VendorNVIDIA, "RTX 5070 Ti", nil)
	assert.Equal(t, StateNoMatch, att.State)
}

func TestResolveAmbiguousSharedConfiguration(t *testing.T) {
	idx := testIndex()

	att := idx.Resolve(model.VendorNVIDIA, "RTX 3060 Ti", intp(8))
	assert.Equal(t, StateAmbiguous, att.State)
	assert.False(t, att.Resolved())
	assert.ElementsMatch(t, []string{"chip-3060ti-g6", "chip-3060ti-g6x"}, att.Candidates)
}

func TestResolveNoVRAMChipMatchesWithoutFilter(t *testing.T) {
	idx := testIndex()

	att := idx.Resolve(model.VendorIntel, "ARC B580", nil)
	require.True(t, att.Resolved())
	assert.Equal(t, "chip-b580", att.ChipID)
}

func TestResolveMissingInputs(t *testing.T) {
	idx := testIndex()

	assert.Equal(t, StateMissing, idx.Resolve("", "RTX 5080", intp(16)).State)
	assert.Equal(t, StateMissing, idx.Resolve(model.VendorNVIDIA, "", nil).State)
}

func TestResolveVRAMInjectionBeforeEmptyCheck(t *testing.T) {
	// A model that normalizes to nothing still forms a "<n> gb" key when
	// VRAM is known, and resolves as no_match rather than missing.
	idx := testIndex()

	att := idx.Resolve(model.VendorNVIDIA, "RTX", intp(16))
	assert.Equal(t, StateNoMatch, att.State)
	assert.Equal(t, " 16 gb", att.ModelKey)
}

func TestResolveUnknownVendor(t *testing.T) {
	idx := testIndex()

	att := idx.Resolve(model.VendorID("MATROX"), "RTX 5080", intp(16))
	assert.Equal(t, StateNoMatch, att.State)
}

func TestBuildDropsEmptyKeyBeforeVRAMInjection(t *testing.T) {
	// At index build the empty-key check runs first, so a chip whose name
	// normalizes away entirely is dropped even though VRAM is known.
	idx := Build([]model.Chip{
		{ChipID: "chip-bare", VendorID: model.VendorNVIDIA, ModelName: "RTX", VRAMGB: intp(16)},
	})
	assert.Nil(t, idx.Candidates(model.VendorNVIDIA, " 16 gb"))
	assert.Nil(t, idx.Candidates(model.VendorNVIDIA, "16 gb"))

	// The chip's VRAM is still recorded for filtering and labels.
	v, ok := idx.VRAM("chip-bare")
	assert.True(t, ok)
	assert.Equal(t, 16, v)
}

func TestChipLabel(t *testing.T) {
	idx := testIndex()

	assert.Equal(t, "NVIDIA RTX 5070 Ti (16GB)", idx.ChipLabel("chip-5070ti-16"))
	assert.Equal(t, "INTEL ARC B580", idx.ChipLabel("chip-b580"))
	assert.Equal(t, "chip-unknown", idx.ChipLabel("chip-unknown"))
}

func TestModelKeySample(t *testing.T) {
	idx := testIndex()

	sample := idx.ModelKeySample(model.VendorNVIDIA, 2)
	assert.Len(t, sample, 2)
	assert.Nil(t, idx.ModelKeySample(model.VendorID("MATROX"), 5))
}

func TestCandidatesReturnsCopy(t *testing.T) {
	idx := testIndex()

	a := idx.Candidates(model.VendorNVIDIA, "3060 ti 8 gb")
	require.Len(t, a, 2)
	a[0] = "mutated"
	b := idx.Candidates(model.VendorNVIDIA, "3060 ti 8 gb")
	assert.NotEqual(t, "mutated", b[0])
}
