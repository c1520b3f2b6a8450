// Package ingest walks the bronze-layer JSON dumps and writes resolved
// variants and market observations into the store. Every write is keyed by a
// content-addressed id, so a re-run over the same inputs is a no-op apart from
// the duplicate counters.
package ingest

import "github.com/rotisserie/eris"

// VariantReport tallies one variant ingestion run. Skips are outcomes, not
// failures; only Errors marks records the run could not even examine.
type VariantReport struct {
	FilesScanned         int
	VariantsInserted     int
	SkippedMissingFields int
	SkippedNoChipMatch   int
	SkippedAmbiguousChip int
	SkippedDuplicate     int
	SkippedWrongType     int
	Errors               int
}

// Map flattens the report for ingest-run bookkeeping and log output.
func (r VariantReport) Map() map[string]int {
	return map[string]int{
		"files_scanned":          r.FilesScanned,
		"variants_inserted":      r.VariantsInserted,
		"skipped_missing_fields": r.SkippedMissingFields,
		"skipped_no_chip_match":  r.SkippedNoChipMatch,
		"skipped_ambiguous_chip": r.SkippedAmbiguousChip,
		"skipped_duplicate":      r.SkippedDuplicate,
		"skipped_wrong_type":     r.SkippedWrongType,
		"errors":                 r.Errors,
	}
}

// Err reports whether the run should fail the command: skips never do, but
// any file the run could not read or parse makes the exit status non-zero.
func (r VariantReport) Err() error {
	if r.Errors > 0 {
		return eris.Errorf("ingest: %d hypothesis files failed to read or parse", r.Errors)
	}
	return nil
}

// ObservationReport tallies one market observation ingestion run.
type ObservationReport struct {
	ObservationsScanned        int
	ObservationsInserted       int
	SkippedNoIndex             int
	SkippedAmbiguousIndex      int
	SkippedNoHypothesis        int
	SkippedAmbiguousHypothesis int
	SkippedMissingHypothesis   int
	SkippedMissingFields       int
	SkippedNoChipMatch         int
	SkippedAmbiguousChip       int
	SkippedInvalidStockStatus  int
	SkippedInvalidPrice        int
	SkippedDuplicate           int
	Errors                     int
}

// Map flattens the report for ingest-run bookkeeping and log output.
func (r ObservationReport) Map() map[string]int {
	return map[string]int{
		"observations_scanned":         r.ObservationsScanned,
		"observations_inserted":        r.ObservationsInserted,
		"skipped_no_index":             r.SkippedNoIndex,
		"skipped_ambiguous_index":      r.SkippedAmbiguousIndex,
		"skipped_no_hypothesis":        r.SkippedNoHypothesis,
		"skipped_ambiguous_hypothesis": r.SkippedAmbiguousHypothesis,
		"skipped_missing_hypothesis":   r.SkippedMissingHypothesis,
		"skipped_missing_fields":       r.SkippedMissingFields,
		"skipped_no_chip_match":        r.SkippedNoChipMatch,
		"skipped_ambiguous_chip":       r.SkippedAmbiguousChip,
		"skipped_invalid_stock_status": r.SkippedInvalidStockStatus,
		"skipped_invalid_price":        r.SkippedInvalidPrice,
		"skipped_duplicate":            r.SkippedDuplicate,
		"errors":                       r.Errors,
	}
}

// Err reports whether the run should fail the command: skips never do, but
// any marketplace or index file the run could not read or parse makes the
// exit status non-zero.
func (r ObservationReport) Err() error {
	if r.Errors > 0 {
		return eris.Errorf("ingest: %d marketplace or index files failed to read or parse", r.Errors)
	}
	return nil
}
