package catalog

import (
	"fmt"
	"strings"

	"github.com/pcbuilder/gpumarket/internal/model"
	"github.com/pcbuilder/gpumarket/internal/normalize"
)

// MatchState is the tagged outcome of one resolution attempt. Exactly one
// state applies; ties are reported as ambiguous, never broken arbitrarily.
type MatchState string

const (
	// StateMatched means exactly one catalog chip satisfied the query.
	StateMatched MatchState = "matched"
	// StateMissing means the query lacked a vendor or model to resolve.
	StateMissing MatchState = "missing"
	// StateAmbiguous means multiple chips survived all filters.
	StateAmbiguous MatchState = "ambiguous"
	// StateNoMatch means no chip satisfied the query.
	StateNoMatch MatchState = "no_match"
)

// Attempt records one resolution attempt in full: the outcome, the inputs
// the resolver actually used, and the candidate list. Diagnostics keep every
// field regardless of outcome so a skip can be explained without re-running.
type Attempt struct {
	State           MatchState
	ChipID          string
	Candidates      []string
	Vendor          model.VendorID
	ModelKey        string
	VRAMGB          *int
	AIBManufacturer string
}

// Resolved reports whether the attempt settled on a concrete chip.
func (a Attempt) Resolved() bool { return a.State == StateMatched && a.ChipID != "" }

// Resolve maps a (vendor, raw model, VRAM) triple onto the catalog.
//
// A known VRAM value is folded into the model key before lookup when the key
// does not already carry a "gb" marker, and again used to filter candidates
// by their catalog VRAM. When the VRAM filter eliminates every candidate the
// unfiltered list is retained in the attempt for diagnostics.
func (x *Index) Resolve(vendor model.VendorID, modelRaw string, vramGB *int) Attempt {
	if vendor == "" || modelRaw == "" {
		return Attempt{State: StateMissing, Vendor: vendor, VRAMGB: vramGB}
	}

	key := normalize.ModelKey(modelRaw)
	if vramGB != nil && !strings.Contains(key, "gb") {
		key = fmt.Sprintf("%s %d gb", key, *vramGB)
	}
	if key == "" {
		return Attempt{State: StateMissing, Vendor: vendor, ModelKey: key, VRAMGB: vramGB}
	}

	att := Attempt{Vendor: vendor, ModelKey: key, VRAMGB: vramGB}

	candidates := x.Candidates(vendor, key)
	if len(candidates) == 0 {
		att.State = StateNoMatch
		return att
	}

	if vramGB == nil {
		att.Candidates = candidates
		if len(candidates) == 1 {
			att.State = StateMatched
			att.ChipID = candidates[0]
		} else {
			att.State = StateAmbiguous
		}
		return att
	}

	var filtered []string
	for _, id := range candidates {
		if v, ok := x.vram[id]; ok && v == *vramGB {
			filtered = append(filtered, id)
		}
	}
	switch len(filtered) {
	case 1:
		att.State = StateMatched
		att.ChipID = filtered[0]
		att.Candidates = filtered
	case 0:
		att.State = StateNoMatch
		att.Candidates = candidates
	default:
		att.State = StateAmbiguous
		att.Candidates = filtered
	}
	return att
}
