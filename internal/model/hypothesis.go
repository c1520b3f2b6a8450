package model

import "encoding/json"

// HypothesisTypeGPUVariant is the only hypothesis type this pipeline ingests.
const HypothesisTypeGPUVariant = "gpu_variant"

// Hypothesis is an externally produced, possibly-incorrect structured guess
// about a product's technical specification. The extraction block is
// untrusted and must be coerced field by field before use.
type Hypothesis struct {
	HypothesisType string          `json:"hypothesis_type"`
	Input          HypothesisInput `json:"input"`
	Extraction     Extraction      `json:"extraction"`
	Evidence       json.RawMessage `json:"evidence,omitempty"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// HypothesisInput records the raw listing title the enrichment step was
// given. Re-normalizing it locally is the first, higher-priority source of
// chip identity.
type HypothesisInput struct {
	ModelName string `json:"model_name"`
}

// Extraction holds the enrichment collaborator's structured guess. Every
// field is typed as any because the producer is free to emit numbers as
// strings, floats for ints, or null for anything; the ingestion boundary
// coerces each one explicitly.
type Extraction struct {
	ChipsetManufacturer any `json:"chipset_manufacturer"`
	ChipsetModel        any `json:"chipset_model"`
	VRAMGB              any `json:"vram_gb"`
	AIBManufacturer     any `json:"aib_manufacturer"`
	AIBModelSuffix      any `json:"aib_model_suffix"`
	ModelSuffix         any `json:"model_suffix"`
	PartNumber          any `json:"part_number"`
	FactoryBoostMHz     any `json:"factory_boost_mhz"`
	LengthMM            any `json:"length_mm"`
	WidthSlots          any `json:"width_slots"`
	HeightMM            any `json:"height_mm"`
	PowerConnectors     any `json:"power_connectors"`
	CoolingType         any `json:"cooling_type"`
	FanCount            any `json:"fan_count"`
	DisplayPortCount    any `json:"displayport_count"`
	DisplayPortVersion  any `json:"displayport_version"`
	HDMICount           any `json:"hdmi_count"`
	HDMIVersion         any `json:"hdmi_version"`
	WarrantyYears       any `json:"warranty_years"`
}

// Suffix returns the AIB model suffix, preferring the aib_model_suffix field
// over the legacy model_suffix spelling.
func (e Extraction) Suffix() *string {
	if s := CoerceString(e.AIBModelSuffix); s != nil {
		return s
	}
	return CoerceString(e.ModelSuffix)
}

// IndexEntry is one reverse-index document: it bridges a product URL to the
// hypothesis file(s) and marketplace observation line(s) describing that
// product. Produced externally; read-only here.
type IndexEntry struct {
	Path                    string   `json:"-"`
	ProductURL              *string  `json:"product_url"`
	NormalizedName          *string  `json:"normalized_name"`
	Hypotheses              []string `json:"hypotheses"`
	MarketplaceObservations []string `json:"marketplace_observations"`
}

// MarketplaceRecord is one raw scraped observation line. Like Extraction it
// is untrusted input and coerced at the boundary.
type MarketplaceRecord struct {
	Retailer       any `json:"retailer"`
	ProductNameRaw any `json:"product_name_raw"`
	ProductURL     any `json:"product_url"`
	PriceEUR       any `json:"price_eur"`
	Currency       any `json:"currency"`
	StockStatus    any `json:"stock_status"`
	ObservedAtUTC  any `json:"observed_at_utc"`
	ScrapeRunID    any `json:"scrape_run_id"`
	SKU            any `json:"sku"`
}
