package model

import (
	"math"
	"strconv"
	"strings"
)

// CoerceString turns an untrusted JSON value into a trimmed non-empty string,
// or nil when the value is absent, empty, or not representable.
func CoerceString(v any) *string {
	if v == nil {
		return nil
	}
	var text string
	switch t := v.(type) {
	case string:
		text = t
	case bool:
		if t {
			text = "true"
		} else {
			text = "false"
		}
	case float64:
		text = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		text = strconv.Itoa(t)
	default:
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &text
}

// CoerceInt turns an untrusted JSON value into an int. Floats are rounded
// half away from zero, numeric strings parsed; booleans and everything else
// are rejected.
func CoerceInt(v any) *int {
	switch t := v.(type) {
	case nil, bool:
		return nil
	case int:
		n := t
		return &n
	case float64:
		n := int(math.Round(t))
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// CoerceFloat turns an untrusted JSON value into a float64, accepting
// numbers and numeric strings. Booleans are rejected.
func CoerceFloat(v any) *float64 {
	switch t := v.(type) {
	case nil, bool:
		return nil
	case float64:
		f := t
		return &f
	case int:
		f := float64(t)
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

// CoerceVendor admits only the two vendors the marketplace pipeline tracks.
// Anything else, including a well-formed third vendor, is treated as unknown
// so resolution reports missing rather than guessing.
func CoerceVendor(v any) VendorID {
	s := CoerceString(v)
	if s == nil {
		return ""
	}
	switch strings.ToUpper(*s) {
	case "NVIDIA":
		return VendorNVIDIA
	case "AMD":
		return VendorAMD
	}
	return ""
}
