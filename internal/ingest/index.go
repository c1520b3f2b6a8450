package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pcbuilder/gpumarket/internal/identity"
	"github.com/pcbuilder/gpumarket/internal/model"
)

// indexMap maps a product URL hash to every reverse-index entry that claims
// that URL. A well-formed index has exactly one entry per hash; more than one
// means two index files declare the same product and the observation cannot
// be attributed safely.
type indexMap map[string][]model.IndexEntry

// loadIndexMap reads every *.json document in indexDir and groups the entries
// by the hash of their declared product URL. Documents without a product URL
// fall back to their file name, which by convention is the URL hash. Returns
// the map plus the count of unreadable documents.
func loadIndexMap(indexDir string) (indexMap, int) {
	out := indexMap{}
	errCount := 0

	entries, err := os.ReadDir(indexDir)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("index directory not found", zap.String("dir", indexDir))
			return out, 0
		}
		zap.L().Warn("index directory unreadable", zap.String("dir", indexDir), zap.Error(err))
		return out, 1
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(indexDir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			errCount++
			zap.L().Warn("index read failed", zap.String("path", path), zap.Error(err))
			continue
		}
		var entry model.IndexEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			errCount++
			zap.L().Warn("index parse failed", zap.String("path", path), zap.Error(err))
			continue
		}
		entry.Path = path

		key := strings.TrimSuffix(name, ".json")
		if entry.ProductURL != nil && strings.TrimSpace(*entry.ProductURL) != "" {
			key = identity.URLHash(strings.TrimSpace(*entry.ProductURL))
		}
		out[key] = append(out[key], entry)
	}

	return out, errCount
}
