package ingest

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pcbuilder/gpumarket/internal/catalog"
	"github.com/pcbuilder/gpumarket/internal/model"
	"github.com/pcbuilder/gpumarket/internal/resolve"
	"github.com/pcbuilder/gpumarket/internal/store"
)

// VariantIngestor turns hypothesis JSON files into gpu_variant rows.
type VariantIngestor struct {
	store store.Store
	idx   *catalog.Index

	// DryRun reports what would be inserted without writing. Limit caps the
	// number of files examined; zero means no cap.
	DryRun bool
	Limit  int
}

func NewVariantIngestor(st store.Store, idx *catalog.Index) *VariantIngestor {
	return &VariantIngestor{store: st, idx: idx}
}

// listHypothesisFiles returns every *.json under dir, sorted for
// deterministic processing order.
func listHypothesisFiles(dir string, limit int) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: walk hypotheses dir %s", dir)
	}
	sort.Strings(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// Run processes every hypothesis file under hypothesesDir. Unreadable files
// count as errors and are passed over; everything else lands in exactly one
// counter. The store is never touched when DryRun is set, beyond existence
// probes.
func (in *VariantIngestor) Run(ctx context.Context, hypothesesDir string) (VariantReport, error) {
	var report VariantReport

	files, err := listHypothesisFiles(hypothesesDir, in.Limit)
	if err != nil {
		return report, err
	}

	for _, path := range files {
		report.FilesScanned++

		raw, err := os.ReadFile(path)
		if err != nil {
			report.Errors++
			zap.L().Warn("hypothesis read failed", zap.String("path", path), zap.Error(err))
			continue
		}
		var h model.Hypothesis
		if err := json.Unmarshal(raw, &h); err != nil {
			report.Errors++
			zap.L().Warn("hypothesis parse failed", zap.String("path", path), zap.Error(err))
			continue
		}

		if h.HypothesisType != model.HypothesisTypeGPUVariant {
			report.SkippedWrongType++
			// The extraction attempt still runs so the skip log shows what
			// the document would have resolved to.
			in.logSkip(path, "wrong_hypothesis_type", "hypothesis type is not gpu_variant",
				catalog.Attempt{}, resolve.FromExtraction(&h, in.idx))
			continue
		}

		titleAtt := resolve.FromTitle(&h, in.idx)
		extAtt := resolve.FromExtraction(&h, in.idx)
		win, source := resolve.Arbitrate(titleAtt, extAtt)
		aib := resolve.AIBManufacturer(titleAtt, extAtt)

		if aib == "" {
			report.SkippedMissingFields++
			in.logSkip(path, "missing_fields", "no AIB manufacturer from either source", titleAtt, extAtt)
			continue
		}

		if !win.Resolved() {
			switch win.State {
			case catalog.StateMissing:
				report.SkippedMissingFields++
				in.logSkip(path, "missing_fields", "required fields for matching are missing", titleAtt, extAtt)
			case catalog.StateAmbiguous:
				report.SkippedAmbiguousChip++
				in.logSkip(path, "ambiguous_chip_match", "multiple chips match the vendor/model/VRAM criteria", titleAtt, extAtt)
			default:
				report.SkippedNoChipMatch++
				in.logSkip(path, "no_chip_match", "no chip matches the vendor/model/VRAM criteria", titleAtt, extAtt)
			}
			continue
		}

		variant := buildVariantFromAttempt(h.Extraction, win, aib)

		if in.DryRun {
			exists, err := in.store.VariantExists(ctx, variant.VariantID)
			if err != nil {
				report.Errors++
				zap.L().Warn("variant existence probe failed", zap.String("path", path), zap.Error(err))
				continue
			}
			if exists {
				report.SkippedDuplicate++
			} else {
				report.VariantsInserted++
				zap.L().Info("dry run insert",
					zap.String("path", path),
					zap.String("match_source", string(source)),
					zap.String("resolved_chip", in.idx.ChipLabel(win.ChipID)),
					zap.String("chip_id", win.ChipID),
					zap.String("variant_id", variant.VariantID))
			}
			continue
		}

		inserted, err := in.store.InsertVariant(ctx, variant)
		if err != nil {
			report.Errors++
			zap.L().Warn("variant insert failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if !inserted {
			report.SkippedDuplicate++
			continue
		}
		report.VariantsInserted++
		zap.L().Debug("variant inserted",
			zap.String("path", path),
			zap.String("match_source", string(source)),
			zap.String("resolved_chip", in.idx.ChipLabel(win.ChipID)),
			zap.String("chip_id", win.ChipID),
			zap.String("variant_id", variant.VariantID))
	}

	return report, nil
}

// buildVariantFromAttempt derives the variant identity from a resolved
// attempt plus the arbitrated AIB manufacturer, then fills in the
// descriptive fields from the extraction.
func buildVariantFromAttempt(ext model.Extraction, win catalog.Attempt, aib string) *model.Variant {
	suffix := ext.Suffix()
	partNumber := model.CoerceString(ext.PartNumber)
	variantID := identityVariantID(win, aib, suffix, partNumber)
	return buildVariant(ext, variantID, win.ChipID, aib)
}

// logSkip emits the full diagnostic context for a skipped hypothesis: both
// resolution attempts with their candidate lists, plus a sample of the
// catalog keys for the vendor the losing attempt looked under.
func (in *VariantIngestor) logSkip(path, reason, detail string, title, extraction catalog.Attempt) {
	zap.L().Info("hypothesis skipped",
		zap.String("path", path),
		zap.String("reason", reason),
		zap.String("detail", detail),
		attemptFields("normalize_attempt", title),
		attemptFields("extraction_attempt", extraction),
		zap.Strings("catalog_key_sample", in.idx.ModelKeySample(extraction.Vendor, 10)),
	)
}

// attemptFields packs one resolution attempt into a single structured field.
func attemptFields(key string, a catalog.Attempt) zap.Field {
	return zap.Any(key, map[string]any{
		"match_state":      string(a.State),
		"vendor_id":        string(a.Vendor),
		"model_key":        a.ModelKey,
		"vram_gb":          a.VRAMGB,
		"chip_id":          a.ChipID,
		"candidates":       a.Candidates,
		"aib_manufacturer": a.AIBManufacturer,
	})
}
