package ingest

import (
	"github.com/pcbuilder/gpumarket/internal/catalog"
	"github.com/pcbuilder/gpumarket/internal/identity"
)

// identityVariantID derives the content-addressed variant id from the inputs
// the winning attempt actually resolved with. Both ingestion paths must call
// this with the same arbitration output so a variant and its observations
// always agree on the id.
func identityVariantID(win catalog.Attempt, aib string, suffix, partNumber *string) string {
	return identity.VariantID(win.Vendor, win.ModelKey, win.VRAMGB, &aib, suffix, partNumber)
}
