// Package identity derives the content-addressed identifiers that make
// every insert idempotent. An identifier is a pure function of its
// canonicalized inputs: recomputing it from equivalent values always yields
// the same id, across commands and across runs.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pcbuilder/gpumarket/internal/model"
)

// canonPart folds one field value into its canonical string form: nil
// becomes the empty string, booleans become "true"/"false", everything else
// is stringified, trimmed and lowercased.
func canonPart(part any) string {
	switch v := part.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case int:
		return strconv.Itoa(v)
	case float64:
		return strings.ToLower(strings.TrimSpace(strconv.FormatFloat(v, 'f', -1, 64)))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
}

func digest(prefix string, parts []any) string {
	canon := make([]string, len(parts))
	for i, p := range parts {
		canon[i] = canonPart(p)
	}
	sum := sha256.Sum256([]byte(strings.Join(canon, "|")))
	return prefix + "_" + hex.EncodeToString(sum[:])
}

func strPart(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func intPart(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

// VariantID hashes the identity-bearing variant fields. Casing, surrounding
// whitespace, and nil-versus-empty differences in equivalent inputs do not
// change the id.
func VariantID(vendor model.VendorID, modelKey string, vramGB *int, aibManufacturer, modelSuffix, partNumber *string) string {
	return digest("var", []any{
		string(vendor),
		modelKey,
		intPart(vramGB),
		strPart(aibManufacturer),
		strPart(modelSuffix),
		strPart(partNumber),
	})
}

// ObservationID hashes the (variant, retailer, URL, timestamp) tuple that
// uniquely names one price observation.
func ObservationID(variantID, retailer, productURL, observedAt string) string {
	return digest("obs", []any{variantID, retailer, productURL, observedAt})
}

// ChipID hashes a catalog chip's identity for seeding.
func ChipID(vendor model.VendorID, modelName string, vramGB *int) string {
	return digest("chip", []any{string(vendor), modelName, intPart(vramGB)})
}

// URLHash names the reverse-index entry for a product URL: the bare sha256
// hex of the exact URL string.
func URLHash(productURL string) string {
	sum := sha256.Sum256([]byte(productURL))
	return hex.EncodeToString(sum[:])
}
