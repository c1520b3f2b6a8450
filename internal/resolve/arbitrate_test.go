package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbuilder/gpumarket/internal/catalog"
	"github.com/pcbuilder/gpumarket/internal/model"
)

func intp(n int) *int { return &n }

func testIndex() *catalog.Index {
	return catalog.Build([]model.Chip{
		{ChipID: "chip-5070ti-16", VendorID: model.VendorNVIDIA, ModelName: "RTX 5070 Ti", VRAMGB: intp(16)},
		{ChipID: "chip-5080-16", VendorID: model.VendorNVIDIA, ModelName: "RTX 5080", VRAMGB: intp(16)},
	})
}

func hypothesis(title string, ext model.Extraction) *model.Hypothesis {
	return &model.Hypothesis{
		HypothesisType: model.HypothesisTypeGPUVariant,
		Input:          model.HypothesisInput{ModelName: title},
		Extraction:     ext,
	}
}

func TestFromTitleResolves(t *testing.T) {
	idx := testIndex()
	h := hypothesis("ASUS GeForce RTX 5070 Ti TUF Gaming 16GB GDDR7", model.Extraction{})

	att := FromTitle(h, idx)
	require.True(t, att.Resolved())
	assert.Equal(t, "chip-5070ti-16", att.ChipID)
	assert.Equal(t, "ASUS", att.AIBManufacturer)
}

func TestFromTitleBlankTitleIsMissing(t *testing.T) {
	idx := testIndex()

	att := FromTitle(hypothesis("   ", model.Extraction{}), idx)
	assert.Equal(t, catalog.StateMissing, att.State)
}

func TestFromTitleIntelVendorNotAdmitted(t *testing.T) {
	// The title normalizer recognizes Intel, but the tracked vendor set does
	// not include it, so the attempt reports missing.
	idx := testIndex()

	att := FromTitle(hypothesis("Intel Arc B580 12GB", model.Extraction{}), idx)
	assert.Equal(t, catalog.StateMissing, att.State)
}

func TestFromExtractionCoercesUntrustedFields(t *testing.T) {
	idx := testIndex()
	h := hypothesis("whatever", model.Extraction{
		ChipsetManufacturer: "nvidia",
		ChipsetModel:        "RTX 5080",
		VRAMGB:              "16",
		AIBManufacturer:     "  MSI ",
	})

	att := FromExtraction(h, idx)
	require.True(t, att.Resolved())
	assert.Equal(t, "chip-5080-16", att.ChipID)
	assert.Equal(t, "MSI", att.AIBManufacturer)
}

func TestArbitrateTitleWinsOverDifferentExtractionChip(t *testing.T) {
	idx := testIndex()
	// Title says 5070 Ti, extraction says 5080; both resolve, to different
	// chips. The title attempt must win.
	h := hypothesis("ASUS GeForce RTX 5070 Ti 16GB", model.Extraction{
		ChipsetManufacturer: "NVIDIA",
		ChipsetModel:        "RTX 5080",
		VRAMGB:              float64(16),
	})

	titleAtt := FromTitle(h, idx)
	extAtt := FromExtraction(h, idx)
	require.True(t, titleAtt.Resolved())
	require.True(t, extAtt.Resolved())
	require.NotEqual(t, titleAtt.ChipID, extAtt.ChipID)

	win, source := Arbitrate(titleAtt, extAtt)
	assert.Equal(t, SourceTitle, source)
	assert.Equal(t, "chip-5070ti-16", win.ChipID)
}

func TestArbitrateFallsBackToExtraction(t *testing.T) {
	idx := testIndex()
	h := hypothesis("some unrecognizable listing", model.Extraction{
		ChipsetManufacturer: "NVIDIA",
		ChipsetModel:        "RTX 5080",
		VRAMGB:              float64(16),
	})

	titleAtt := FromTitle(h, idx)
	extAtt := FromExtraction(h, idx)
	require.False(t, titleAtt.Resolved())

	win, source := Arbitrate(titleAtt, extAtt)
	assert.Equal(t, SourceExtraction, source)
	assert.Equal(t, "chip-5080-16", win.ChipID)
}

func TestArbitrateUnresolvedExtractionCarriesDiagnostics(t *testing.T) {
	idx := testIndex()
	h := hypothesis("something else", model.Extraction{
		ChipsetManufacturer: "NVIDIA",
		ChipsetModel:        "RTX 5090",
		VRAMGB:              float64(32),
	})

	win, source := Arbitrate(FromTitle(h, idx), FromExtraction(h, idx))
	assert.Equal(t, SourceExtraction, source)
	assert.Equal(t, catalog.StateNoMatch, win.State)
	assert.Equal(t, "5090 32 gb", win.ModelKey)
}

func TestAIBManufacturerTitleFirst(t *testing.T) {
	title := catalog.Attempt{AIBManufacturer: "ASUS"}
	ext := catalog.Attempt{AIBManufacturer: "MSI"}
	assert.Equal(t, "ASUS", AIBManufacturer(title, ext))
	assert.Equal(t, "MSI", AIBManufacturer(catalog.Attempt{}, ext))
	assert.Equal(t, "", AIBManufacturer(catalog.Attempt{}, catalog.Attempt{}))
}
