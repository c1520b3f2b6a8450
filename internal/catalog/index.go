// Package catalog holds the read-once chip index and the deterministic
// match resolver. The index is built from the reference catalog exactly once
// per run and passed explicitly into resolution; there is no global state.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pcbuilder/gpumarket/internal/model"
	"github.com/pcbuilder/gpumarket/internal/normalize"
)

// Index maps vendor -> canonical model key -> chip ids, plus chip id ->
// VRAM. A model key keeps duplicate chip ids when a model ships in several
// VRAM configurations sharing the pre-VRAM key. Read-only after Build.
type Index struct {
	byVendor map[model.VendorID]map[string][]string
	vram     map[string]int
	details  map[string]model.Chip
}

// Build constructs the index from catalog chips. Chips whose model name
// normalizes to an empty key are dropped. When a chip's VRAM is known and
// the key does not already contain "gb", the VRAM is folded into the key so
// that VRAM-qualified queries hit distinct entries.
func Build(chips []model.Chip) *Index {
	idx := &Index{
		byVendor: make(map[model.VendorID]map[string][]string),
		vram:     make(map[string]int),
		details:  make(map[string]model.Chip, len(chips)),
	}
	for _, chip := range chips {
		idx.details[chip.ChipID] = chip
		if chip.VRAMGB != nil {
			idx.vram[chip.ChipID] = *chip.VRAMGB
		}

		key := normalize.ModelKey(chip.ModelName)
		if key == "" {
			continue
		}
		if !strings.Contains(key, "gb") && chip.VRAMGB != nil {
			key = fmt.Sprintf("%s %d gb", key, *chip.VRAMGB)
		}

		vendorMap := idx.byVendor[chip.VendorID]
		if vendorMap == nil {
			vendorMap = make(map[string][]string)
			idx.byVendor[chip.VendorID] = vendorMap
		}
		vendorMap[key] = append(vendorMap[key], chip.ChipID)
	}
	return idx
}

// Candidates returns the chip ids registered under (vendor, modelKey).
// The returned slice is a copy.
func (x *Index) Candidates(vendor model.VendorID, modelKey string) []string {
	ids := x.byVendor[vendor][modelKey]
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// VRAM returns the catalog VRAM for a chip id, if recorded.
func (x *Index) VRAM(chipID string) (int, bool) {
	v, ok := x.vram[chipID]
	return v, ok
}

// HasVendor reports whether any chip is registered under the vendor.
func (x *Index) HasVendor(vendor model.VendorID) bool {
	return len(x.byVendor[vendor]) > 0
}

// ModelKeySample returns up to n sorted model keys for a vendor, for skip
// diagnostics.
func (x *Index) ModelKeySample(vendor model.VendorID, n int) []string {
	vendorMap := x.byVendor[vendor]
	if len(vendorMap) == 0 {
		return nil
	}
	keys := make([]string, 0, len(vendorMap))
	for k := range vendorMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// ChipLabel formats a chip id as "VENDOR model (NGB)" for human-readable
// logs, falling back to the bare id for unknown chips.
func (x *Index) ChipLabel(chipID string) string {
	chip, ok := x.details[chipID]
	if !ok {
		return chipID
	}
	label := fmt.Sprintf("%s %s", chip.VendorID, chip.ModelName)
	if v, ok := x.vram[chipID]; ok && v > 0 {
		return fmt.Sprintf("%s (%dGB)", label, v)
	}
	return label
}
