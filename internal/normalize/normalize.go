// Package normalize extracts deterministic lexical hints from raw GPU
// listing titles. It never guesses: absent data stays absent, and no
// external state is touched, so every function here is safe in unit tests
// and reproducible across runs.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pcbuilder/gpumarket/internal/model"
)

// Hints are the lexical facts recoverable from a single listing title.
// String fields are empty when unknown; counts are nil when never stated.
type Hints struct {
	Vendor           model.VendorID
	Series           string
	ModelName        string
	AIBManufacturer  string
	ModelSuffix      string
	VRAMGB           *int
	MemoryType       string
	HDMICount        *int
	DisplayPortCount *int
}

var (
	cleanRe     = regexp.MustCompile(`[^A-Z0-9\-\+]+`)
	vramGBRe    = regexp.MustCompile(`\b(\d{1,3})\s*GB\b`)
	vramGRe     = regexp.MustCompile(`^\d{1,3}G\b`)
	vramTokenRe = regexp.MustCompile(`^\d{1,3}GB?$`)
	memTypeRe   = regexp.MustCompile(`\b(GDDR6X|GDDR7|GDDR6)\b`)
	hdmiRe      = regexp.MustCompile(`\b(\d+)\s*X\s*HDMI\b`)
	dpRe        = regexp.MustCompile(`\b(\d+)\s*X\s*(DP|DISPLAYPORT|DISPLAY\s*PORT)\b`)
	numericRe   = regexp.MustCompile(`^\d+$`)

	nvidiaModelRe = regexp.MustCompile(`\bRTX[\s\-]*([0-9]{3,4})(?:[\s\-]*(TI))?(?:[\s\-]*(SUPER))?\b`)
	amdModelRe    = regexp.MustCompile(`\bRX[\s\-]*([0-9]{3,4})(?:[\s\-]*(XTX|XT|GRE))?\b`)
	intelModelRe  = regexp.MustCompile(`\bARC[\s\-]*([A-Z])[\s\-]*([0-9]{3,4})\b`)
)

// Vendor keyword fallback, tried in fixed order; the earliest match in the
// text wins, not the order of the table.
var vendorPatterns = []struct {
	vendor model.VendorID
	re     *regexp.Regexp
}{
	{model.VendorNVIDIA, regexp.MustCompile(`\b(NVIDIA|GEFORCE|RTX)\b`)},
	{model.VendorAMD, regexp.MustCompile(`\b(AMD|RADEON|RX)\b`)},
	{model.VendorIntel, regexp.MustCompile(`\b(INTEL|ARC)\b`)},
}

var (
	vendorTokens = map[string]bool{
		"NVIDIA": true, "GEFORCE": true, "AMD": true,
		"RADEON": true, "INTEL": true, "ARC": true,
	}
	memoryTokens = map[string]bool{"GDDR6": true, "GDDR6X": true, "GDDR7": true}
	portTokens   = map[string]bool{
		"HDMI": true, "DP": true, "DISPLAYPORT": true, "DISPLAY": true, "PORT": true,
	}
)

// aibAliases maps canonical AIB manufacturer names to their accepted
// spellings. Multi-word aliases match as whole phrases.
var aibAliases = []struct {
	canonical string
	aliases   []string
}{
	{"ASUS", []string{"ASUS"}},
	{"GIGABYTE", []string{"GIGABYTE"}},
	{"MSI", []string{"MSI"}},
	{"SAPPHIRE", []string{"SAPPHIRE"}},
	{"POWERCOLOR", []string{"POWERCOLOR", "POWER COLOR"}},
	{"ASROCK", []string{"ASROCK", "AS ROCK"}},
	{"XFX", []string{"XFX"}},
	{"ACER", []string{"ACER"}},
	{"GAINWARD", []string{"GAINWARD"}},
	{"PALIT", []string{"PALIT"}},
	{"ZOTAC", []string{"ZOTAC"}},
	{"NVIDIA", []string{"NVIDIA"}},
	{"INTEL", []string{"INTEL"}},
}

type aibPattern struct {
	canonical string
	tokens    []string
	re        *regexp.Regexp
}

var aibPatterns = compileAIBPatterns()

func compileAIBPatterns() []aibPattern {
	var out []aibPattern
	for _, entry := range aibAliases {
		for _, alias := range entry.aliases {
			tokens := strings.Fields(alias)
			parts := make([]string, len(tokens))
			for i, tok := range tokens {
				parts[i] = regexp.QuoteMeta(tok)
			}
			re := regexp.MustCompile(`\b` + strings.Join(parts, `\s+`) + `\b`)
			out = append(out, aibPattern{canonical: entry.canonical, tokens: tokens, re: re})
		}
	}
	return out
}

// modelHints is the structured model match plus the token set needed for
// suffix exclusion.
type modelHints struct {
	vendor      model.VendorID
	series      string
	modelName   string
	modelNumber string
	tokens      map[string]bool
}

type manufacturerMatch struct {
	canonical string
	tokens    []string
}

// Normalize parses a free-text product title into lexical hints. It never
// fails; a title it cannot read yields zero-valued Hints.
func Normalize(title string) Hints {
	if strings.TrimSpace(title) == "" {
		return Hints{}
	}

	nameClean := cleanText(title)
	head := title
	if idx := strings.Index(title, ","); idx >= 0 {
		head = title[:idx]
	}
	headClean := cleanText(head)

	mh := parseModel(nameClean)
	vendor := mh.vendor
	if vendor == "" {
		vendor = inferVendor(nameClean)
	}

	manufacturer := extractAIBManufacturer(headClean)

	suffix := ""
	if mh.modelName != "" {
		suffix = extractModelSuffix(headClean, manufacturer, mh)
	}

	h := Hints{
		Vendor:           vendor,
		Series:           mh.series,
		ModelName:        mh.modelName,
		ModelSuffix:      suffix,
		VRAMGB:           extractVRAMGB(nameClean),
		MemoryType:       extractMemoryType(nameClean),
		HDMICount:        extractPortCount(nameClean, hdmiRe),
		DisplayPortCount: extractPortCount(nameClean, dpRe),
	}
	if manufacturer != nil {
		h.AIBManufacturer = manufacturer.canonical
	}
	return h
}

// cleanText uppercases and strips to [A-Z0-9+-] plus whitespace, collapsing
// whitespace runs.
func cleanText(text string) string {
	upper := strings.ToUpper(text)
	cleaned := cleanRe.ReplaceAllString(upper, " ")
	return strings.TrimSpace(wsRe.ReplaceAllString(cleaned, " "))
}

// parseModel tries the vendor model patterns in fixed order NVIDIA, AMD,
// Intel; the first match fixes the vendor.
func parseModel(text string) modelHints {
	if m := nvidiaModelRe.FindStringSubmatch(text); m != nil {
		number, ti, super := m[1], m[2], m[3]
		tokens := map[string]bool{"RTX": true, number: true}
		name := "RTX " + number
		if ti != "" {
			tokens["TI"] = true
			name += " Ti"
		}
		if super != "" {
			tokens["SUPER"] = true
			name += " SUPER"
		}
		series := ""
		if len(number) >= 4 {
			series = "GeForce RTX " + number[:2]
		}
		return modelHints{
			vendor:      model.VendorNVIDIA,
			series:      series,
			modelName:   name,
			modelNumber: number,
			tokens:      tokens,
		}
	}

	if m := amdModelRe.FindStringSubmatch(text); m != nil {
		number, trim := m[1], m[2]
		tokens := map[string]bool{"RX": true, number: true}
		name := "RX " + number
		if trim != "" {
			tokens[trim] = true
			name += " " + trim
		}
		series := ""
		if len(number) >= 4 {
			series = "Radeon RX " + number[:1] + "000"
		}
		return modelHints{
			vendor:      model.VendorAMD,
			series:      series,
			modelName:   name,
			modelNumber: number,
			tokens:      tokens,
		}
	}

	if m := intelModelRe.FindStringSubmatch(text); m != nil {
		letter, number := m[1], m[2]
		code := letter + number
		return modelHints{
			vendor:      model.VendorIntel,
			modelName:   "ARC " + code,
			modelNumber: number,
			tokens:      map[string]bool{"ARC": true, code: true},
		}
	}

	return modelHints{tokens: map[string]bool{}}
}

// inferVendor falls back to vendor keywords when no structured model
// matched, picking whichever keyword occurs earliest in the text.
func inferVendor(text string) model.VendorID {
	best := model.VendorID("")
	bestIdx := -1
	for _, vp := range vendorPatterns {
		loc := vp.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if bestIdx < 0 || loc[0] < bestIdx {
			best = vp.vendor
			bestIdx = loc[0]
		}
	}
	return best
}

// extractAIBManufacturer picks the alias occurring earliest in the name head.
func extractAIBManufacturer(text string) *manufacturerMatch {
	var best *manufacturerMatch
	bestIdx := -1
	for _, ap := range aibPatterns {
		loc := ap.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if bestIdx < 0 || loc[0] < bestIdx {
			best = &manufacturerMatch{canonical: ap.canonical, tokens: ap.tokens}
			bestIdx = loc[0]
		}
	}
	return best
}

// extractModelSuffix removes vendor, model, manufacturer, numeric, VRAM,
// memory-type and connector tokens from the name head; whatever remains is
// the AIB suffix.
func extractModelSuffix(text string, manufacturer *manufacturerMatch, mh modelHints) string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return ""
	}

	remove := map[string]bool{}
	for tok := range vendorTokens {
		remove[tok] = true
	}
	for tok := range mh.tokens {
		remove[tok] = true
	}
	if manufacturer != nil {
		for _, tok := range manufacturer.tokens {
			remove[tok] = true
		}
	}

	var kept []string
	for _, tok := range tokens {
		switch {
		case remove[tok]:
		case memoryTokens[tok]:
		case portTokens[tok]:
		case numericRe.MatchString(tok):
		case vramTokenRe.MatchString(tok):
		case mh.modelNumber != "" && strings.Contains(tok, mh.modelNumber):
		case vramGRe.MatchString(tok):
		default:
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

func extractVRAMGB(text string) *int {
	m := vramGBRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func extractMemoryType(text string) string {
	m := memTypeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// extractPortCount sums every explicit "N x TYPE" occurrence; a lone type
// keyword without a count contributes nothing.
func extractPortCount(text string, re *regexp.Regexp) *int {
	total := 0
	found := false
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		found = true
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total += n
	}
	if !found || total == 0 {
		return nil
	}
	return &total
}
