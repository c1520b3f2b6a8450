// Package resolve arbitrates between the two independent sources of chip
// identity for a hypothesis document: the locally re-normalized listing
// title and the enrichment collaborator's extraction fields.
package resolve

import (
	"strings"

	"github.com/pcbuilder/gpumarket/internal/catalog"
	"github.com/pcbuilder/gpumarket/internal/model"
	"github.com/pcbuilder/gpumarket/internal/normalize"
)

// Source names which attempt won arbitration.
type Source string

const (
	SourceTitle      Source = "normalize"
	SourceExtraction Source = "extraction"
)

// FromTitle resolves chip identity by re-normalizing the raw listing title
// the hypothesis was produced from. Vendors outside the tracked set are
// reported as missing rather than passed through.
func FromTitle(h *model.Hypothesis, idx *catalog.Index) catalog.Attempt {
	raw := strings.TrimSpace(h.Input.ModelName)
	if raw == "" {
		return catalog.Attempt{State: catalog.StateMissing}
	}
	hints := normalize.Normalize(raw)

	att := idx.Resolve(model.CoerceVendor(string(hints.Vendor)), hints.ModelName, hints.VRAMGB)
	att.AIBManufacturer = hints.AIBManufacturer
	return att
}

// FromExtraction resolves chip identity from the hypothesis's own extraction
// fields, coerced at this boundary because the producer is untrusted.
func FromExtraction(h *model.Hypothesis, idx *catalog.Index) catalog.Attempt {
	ext := h.Extraction

	modelRaw := ""
	if s := model.CoerceString(ext.ChipsetModel); s != nil {
		modelRaw = *s
	}
	att := idx.Resolve(model.CoerceVendor(ext.ChipsetManufacturer), modelRaw, model.CoerceInt(ext.VRAMGB))
	if s := model.CoerceString(ext.AIBManufacturer); s != nil {
		att.AIBManufacturer = *s
	}
	return att
}

// Arbitrate picks the winning attempt. The title attempt wins whenever it
// resolved a concrete chip, regardless of what the extraction attempt found;
// otherwise the extraction attempt is used wholesale, resolved or not, and
// carries its own diagnostics.
func Arbitrate(title, extraction catalog.Attempt) (catalog.Attempt, Source) {
	if title.Resolved() {
		return title, SourceTitle
	}
	return extraction, SourceExtraction
}

// AIBManufacturer chooses the resolved AIB manufacturer independently of
// which attempt won chip identity: the title hint takes priority, with the
// extraction field as fallback. Empty means neither source knew it.
func AIBManufacturer(title, extraction catalog.Attempt) string {
	if title.AIBManufacturer != "" {
		return title.AIBManufacturer
	}
	return extraction.AIBManufacturer
}
