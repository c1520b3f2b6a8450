package catalog

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pcbuilder/gpumarket/internal/identity"
	"github.com/pcbuilder/gpumarket/internal/model"
)

// seedEntry is one chip in the YAML seed catalog.
type seedEntry struct {
	Vendor     string  `yaml:"vendor"`
	ModelName  string  `yaml:"model_name"`
	VRAMGB     *int    `yaml:"vram_gb"`
	MemoryType *string `yaml:"memory_type"`
}

// LoadSeed parses a YAML chip catalog into seedable chips. Each entry needs a
// known vendor and a model name; the chip id is derived from the entry
// content, so re-seeding the same file is idempotent.
func LoadSeed(path string) ([]model.Chip, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read seed file %s", path)
	}
	var entries []seedEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse seed file %s", path)
	}

	chips := make([]model.Chip, 0, len(entries))
	for i, e := range entries {
		vendor := model.VendorID(strings.ToUpper(strings.TrimSpace(e.Vendor)))
		switch vendor {
		case model.VendorNVIDIA, model.VendorAMD, model.VendorIntel:
		default:
			return nil, eris.Errorf("catalog: seed entry %d has unknown vendor %q", i, e.Vendor)
		}
		name := strings.TrimSpace(e.ModelName)
		if name == "" {
			return nil, eris.Errorf("catalog: seed entry %d missing model_name", i)
		}
		if e.VRAMGB != nil && *e.VRAMGB <= 0 {
			return nil, eris.Errorf("catalog: seed entry %d has invalid vram_gb %d", i, *e.VRAMGB)
		}
		chips = append(chips, model.Chip{
			ChipID:     identity.ChipID(vendor, name, e.VRAMGB),
			VendorID:   vendor,
			ModelName:  name,
			VRAMGB:     e.VRAMGB,
			MemoryType: e.MemoryType,
		})
	}
	return chips, nil
}
