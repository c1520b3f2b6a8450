package model

import "time"

// VendorID identifies a reference chip vendor in the catalog.
type VendorID string

const (
	VendorNVIDIA VendorID = "NVIDIA"
	VendorAMD    VendorID = "AMD"
	VendorIntel  VendorID = "INTEL"
)

// Chip is one reference GPU entry from the canonical catalog: a vendor die
// configuration joined with its memory row. Read-only for the duration of a
// run.
type Chip struct {
	ChipID     string   `json:"chip_id"`
	VendorID   VendorID `json:"vendor_id"`
	ModelName  string   `json:"model_name"`
	VRAMGB     *int     `json:"vram_gb,omitempty"`
	MemoryType *string  `json:"memory_type,omitempty"`
}

// Variant is a specific retail SKU built on a reference chip: AIB
// manufacturer plus suffix and part number, with sanitized physical fields.
// Its primary key is a content hash, so re-ingesting the same hypothesis is
// a no-op and later conflicting hypotheses never overwrite it.
type Variant struct {
	VariantID          string   `json:"variant_id"`
	ChipID             string   `json:"chip_id"`
	AIBManufacturer    string   `json:"aib_manufacturer"`
	ModelSuffix        *string  `json:"model_suffix,omitempty"`
	PartNumber         *string  `json:"part_number,omitempty"`
	FactoryBoostMHz    *int     `json:"factory_boost_mhz,omitempty"`
	LengthMM           *int     `json:"length_mm,omitempty"`
	WidthSlots         *float64 `json:"width_slots,omitempty"`
	HeightMM           *int     `json:"height_mm,omitempty"`
	PowerConnectors    *string  `json:"power_connectors,omitempty"`
	CoolingType        *string  `json:"cooling_type,omitempty"`
	FanCount           *int     `json:"fan_count,omitempty"`
	DisplayPortCount   *int     `json:"displayport_count,omitempty"`
	DisplayPortVersion *string  `json:"displayport_version,omitempty"`
	HDMICount          *int     `json:"hdmi_count,omitempty"`
	HDMIVersion        *string  `json:"hdmi_version,omitempty"`
	WarrantyYears      *int     `json:"warranty_years,omitempty"`
}

// StockStatus is the availability state reported by a retailer.
type StockStatus string

const (
	StockInStock      StockStatus = "in_stock"
	StockLowStock     StockStatus = "low_stock"
	StockPreorder     StockStatus = "preorder"
	StockOutOfStock   StockStatus = "out_of_stock"
	StockDiscontinued StockStatus = "discontinued"
)

// ValidStockStatus reports whether s is one of the allowed retailer states.
func ValidStockStatus(s string) bool {
	switch StockStatus(s) {
	case StockInStock, StockLowStock, StockPreorder, StockOutOfStock, StockDiscontinued:
		return true
	}
	return false
}

// MarketObservation is one price/stock reading for a variant at a retailer
// and point in time. Append-only; the content-hash primary key makes
// re-ingestion idempotent.
type MarketObservation struct {
	ObservationID string  `json:"observation_id"`
	VariantID     string  `json:"variant_id"`
	Retailer      string  `json:"retailer"`
	SKU           *string `json:"sku,omitempty"`
	ProductURL    string  `json:"product_url"`
	PriceEUR      float64 `json:"price_eur"`
	Currency      *string `json:"currency,omitempty"`
	StockStatus   *string `json:"stock_status,omitempty"`
	ObservedAt    string  `json:"observed_at"`
	ScrapeRunID   string  `json:"scrape_run_id"`
}

// PriceSnapshot is the latest known price for a variant at a retailer.
type PriceSnapshot struct {
	VariantID       string  `json:"variant_id"`
	ChipID          string  `json:"chip_id"`
	ModelName       string  `json:"model_name"`
	AIBManufacturer string  `json:"aib_manufacturer"`
	Retailer        string  `json:"retailer"`
	PriceEUR        float64 `json:"price_eur"`
	Currency        *string `json:"currency,omitempty"`
	ObservedAt      string  `json:"observed_at"`
}

// PriceStat aggregates the observation history of one variant.
type PriceStat struct {
	VariantID    string  `json:"variant_id"`
	ModelName    string  `json:"model_name"`
	Observations int     `json:"observations"`
	MinPriceEUR  float64 `json:"min_price_eur"`
	AvgPriceEUR  float64 `json:"avg_price_eur"`
	MaxPriceEUR  float64 `json:"max_price_eur"`
	FirstSeen    string  `json:"first_seen"`
	LastSeen     string  `json:"last_seen"`
}

// IngestRun records the outcome of one ingest command invocation.
type IngestRun struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	DryRun     bool           `json:"dry_run"`
	Counters   map[string]int `json:"counters"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
