package ingest

import (
	"context"
	"encoding/json"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/pcbuilder/gpumarket/internal/catalog"
	"github.com/pcbuilder/gpumarket/internal/identity"
	"github.com/pcbuilder/gpumarket/internal/model"
	"github.com/pcbuilder/gpumarket/internal/resolve"
	"github.com/pcbuilder/gpumarket/internal/store"
)

// ObservationIngestor turns scraped marketplace product files into
// gpu_market_observation rows. Each record is attributed to a variant via the
// reverse index: observation -> index entry -> hypothesis -> chip, using the
// exact same arbitration and identity derivation as variant ingestion, so the
// computed variant id lines up with rows the variant pass wrote.
type ObservationIngestor struct {
	store store.Store
	idx   *catalog.Index

	// bronzeRoot anchors the relative paths the reverse index speaks in,
	// both for observation references and hypothesis file locations.
	bronzeRoot string

	DryRun bool
	// Limit caps the number of observation records examined, not files.
	Limit int
}

func NewObservationIngestor(st store.Store, idx *catalog.Index, bronzeRoot string) *ObservationIngestor {
	return &ObservationIngestor{store: st, idx: idx, bronzeRoot: bronzeRoot}
}

// listMarketplaceFiles finds every scraped product page dump under dir. The
// crawler lays them out as <retailer>/runs/<run>/page_pg=N.products.json.
func listMarketplaceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasPrefix(name, "page_pg=") || !strings.HasSuffix(name, ".products.json") {
			return nil
		}
		if !strings.Contains(filepath.ToSlash(path), "/runs/") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: walk marketplace dir %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// loadMarketplaceRecords parses one product page dump. The payload must be an
// array; elements that are not objects are dropped, matching how the reverse
// index counted them when it assigned observation positions.
func loadMarketplaceRecords(path string) ([]model.MarketplaceRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	records := make([]model.MarketplaceRecord, 0, len(items))
	for _, item := range items {
		var rec model.MarketplaceRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Run processes every marketplace record under marketplaceDir against the
// reverse index in indexDir.
func (in *ObservationIngestor) Run(ctx context.Context, marketplaceDir, indexDir string) (ObservationReport, error) {
	var report ObservationReport

	hasCurrency, err := in.store.HasCurrencyColumn(ctx)
	if err != nil {
		return report, err
	}

	index, indexErrors := loadIndexMap(indexDir)
	report.Errors += indexErrors

	files, err := listMarketplaceFiles(marketplaceDir)
	if err != nil {
		return report, err
	}
	zap.L().Info("marketplace scan start",
		zap.Int("files", len(files)),
		zap.Int("index_entries", len(index)))

	done := false
	for _, path := range files {
		if done {
			break
		}

		records, err := loadMarketplaceRecords(path)
		if err != nil {
			report.Errors++
			zap.L().Warn("marketplace read failed", zap.String("path", path), zap.Error(err))
			continue
		}

		rel, err := filepath.Rel(in.bronzeRoot, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			report.Errors++
			zap.L().Warn("marketplace file outside bronze root",
				zap.String("path", path), zap.String("bronze_root", in.bronzeRoot))
			continue
		}
		rel = filepath.ToSlash(rel)

		for i, rec := range records {
			if in.Limit > 0 && report.ObservationsScanned >= in.Limit {
				done = true
				break
			}
			report.ObservationsScanned++
			in.processRecord(ctx, &report, rec, rel, i, index, hasCurrency)
		}
	}

	return report, nil
}

func (in *ObservationIngestor) processRecord(
	ctx context.Context,
	report *ObservationReport,
	rec model.MarketplaceRecord,
	relPath string,
	position int,
	index indexMap,
	hasCurrency bool,
) {
	obsRef := relPath + "#" + strconv.Itoa(position)

	productURL := model.CoerceString(rec.ProductURL)
	var indexEntries []model.IndexEntry
	if productURL != nil {
		indexEntries = index[identity.URLHash(*productURL)]
	}

	if len(indexEntries) == 0 {
		report.SkippedNoIndex++
		logObsSkip(obsRef, "no_index_entry", "no observed_product index entry for this URL")
		return
	}
	if len(indexEntries) > 1 {
		report.SkippedAmbiguousIndex++
		paths := make([]string, len(indexEntries))
		for i, e := range indexEntries {
			paths[i] = e.Path
		}
		logObsSkip(obsRef, "ambiguous_index_entry", "multiple index entries claim this URL",
			zap.Strings("index_paths", paths))
		return
	}
	entry := indexEntries[0]

	if len(entry.Hypotheses) == 0 {
		report.SkippedNoHypothesis++
		logObsSkip(obsRef, "no_hypothesis", "no hypotheses listed in index entry",
			zap.String("index_path", entry.Path))
		return
	}
	if len(entry.Hypotheses) > 1 {
		report.SkippedAmbiguousHypothesis++
		logObsSkip(obsRef, "ambiguous_hypothesis", "multiple hypotheses listed in index entry",
			zap.String("index_path", entry.Path))
		return
	}

	hypPath := filepath.Join(in.bronzeRoot, filepath.FromSlash(entry.Hypotheses[0]))
	raw, err := os.ReadFile(hypPath)
	if err != nil {
		if os.IsNotExist(err) {
			report.SkippedMissingHypothesis++
			logObsSkip(obsRef, "missing_hypothesis_file", "hypothesis file not found",
				zap.String("hypothesis_path", hypPath))
			return
		}
		report.Errors++
		zap.L().Warn("hypothesis read failed", zap.String("path", hypPath), zap.Error(err))
		return
	}
	var h model.Hypothesis
	if err := json.Unmarshal(raw, &h); err != nil {
		report.Errors++
		zap.L().Warn("hypothesis parse failed", zap.String("path", hypPath), zap.Error(err))
		return
	}

	// Identical arbitration to variant ingestion: the ids must line up.
	titleAtt := resolve.FromTitle(&h, in.idx)
	extAtt := resolve.FromExtraction(&h, in.idx)
	win, _ := resolve.Arbitrate(titleAtt, extAtt)
	aib := resolve.AIBManufacturer(titleAtt, extAtt)

	if aib == "" {
		report.SkippedMissingFields++
		logObsSkip(obsRef, "missing_fields", "hypothesis missing AIB manufacturer",
			attemptFields("normalize_attempt", titleAtt),
			attemptFields("extraction_attempt", extAtt))
		return
	}
	if !win.Resolved() {
		switch win.State {
		case catalog.StateMissing:
			report.SkippedMissingFields++
			logObsSkip(obsRef, "missing_fields", "required fields for matching are missing in hypothesis",
				attemptFields("normalize_attempt", titleAtt),
				attemptFields("extraction_attempt", extAtt))
		case catalog.StateAmbiguous:
			report.SkippedAmbiguousChip++
			logObsSkip(obsRef, "ambiguous_chip_match", "multiple chips match criteria",
				attemptFields("normalize_attempt", titleAtt),
				attemptFields("extraction_attempt", extAtt))
		default:
			report.SkippedNoChipMatch++
			logObsSkip(obsRef, "no_chip_match", "no chip matches criteria",
				attemptFields("normalize_attempt", titleAtt),
				attemptFields("extraction_attempt", extAtt))
		}
		return
	}

	variantID := identityVariantID(win, aib, h.Extraction.Suffix(), model.CoerceString(h.Extraction.PartNumber))

	retailer := model.CoerceString(rec.Retailer)
	priceEUR := model.CoerceFloat(rec.PriceEUR)
	cur := model.CoerceString(rec.Currency)
	observedAt := model.CoerceString(rec.ObservedAtUTC)
	scrapeRunID := model.CoerceString(rec.ScrapeRunID)
	sku := model.CoerceString(rec.SKU)
	stockStatus := model.CoerceString(rec.StockStatus)

	if retailer == nil || productURL == nil || observedAt == nil || scrapeRunID == nil {
		report.SkippedMissingFields++
		logObsSkip(obsRef, "missing_fields", "marketplace record missing identifiers")
		return
	}
	if hasCurrency && cur == nil {
		report.SkippedMissingFields++
		logObsSkip(obsRef, "missing_fields", "marketplace record missing currency")
		return
	}
	if cur != nil {
		if _, err := currency.ParseISO(*cur); err != nil {
			report.SkippedMissingFields++
			logObsSkip(obsRef, "missing_fields", "currency is not a valid ISO 4217 code",
				zap.String("currency", *cur))
			return
		}
	}
	if priceEUR == nil || *priceEUR <= 0 || math.IsInf(*priceEUR, 0) || math.IsNaN(*priceEUR) {
		report.SkippedInvalidPrice++
		logObsSkip(obsRef, "invalid_price", "price is missing or invalid")
		return
	}
	if stockStatus != nil && !model.ValidStockStatus(*stockStatus) {
		report.SkippedInvalidStockStatus++
		logObsSkip(obsRef, "invalid_stock_status", "unknown stock status",
			zap.String("stock_status", *stockStatus))
		return
	}

	obs := &model.MarketObservation{
		ObservationID: identity.ObservationID(variantID, *retailer, *productURL, *observedAt),
		VariantID:     variantID,
		Retailer:      *retailer,
		SKU:           sku,
		ProductURL:    *productURL,
		PriceEUR:      *priceEUR,
		Currency:      cur,
		StockStatus:   stockStatus,
		ObservedAt:    *observedAt,
		ScrapeRunID:   *scrapeRunID,
	}

	if in.DryRun {
		exists, err := in.store.ObservationExists(ctx, obs.ObservationID)
		if err != nil {
			report.Errors++
			zap.L().Warn("observation existence probe failed", zap.String("ref", obsRef), zap.Error(err))
			return
		}
		if exists {
			report.SkippedDuplicate++
		} else {
			report.ObservationsInserted++
			zap.L().Info("dry run insert",
				zap.String("ref", obsRef),
				zap.String("variant_id", variantID),
				zap.Float64("price_eur", *priceEUR))
		}
		return
	}

	inserted, err := in.store.InsertObservation(ctx, obs)
	if err != nil {
		report.Errors++
		zap.L().Warn("observation insert failed", zap.String("ref", obsRef), zap.Error(err))
		return
	}
	if !inserted {
		report.SkippedDuplicate++
		return
	}
	report.ObservationsInserted++
	zap.L().Debug("observation inserted",
		zap.String("ref", obsRef),
		zap.String("variant_id", variantID),
		zap.Float64("price_eur", *priceEUR))
}

func logObsSkip(obsRef, reason, detail string, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("ref", obsRef),
		zap.String("reason", reason),
		zap.String("detail", detail),
	}
	zap.L().Info("observation skipped", append(base, fields...)...)
}
