package ingest

import "github.com/pcbuilder/gpumarket/internal/model"

// cleanDimensions nulls out physically implausible card dimensions instead of
// rejecting the record: a bad measurement should not cost us the variant.
// Width is measured in PCIe slots, so anything outside [2, 4] is noise.
func cleanDimensions(lengthMM *int, widthSlots *float64, heightMM *int) (*int, *float64, *int) {
	if lengthMM != nil && *lengthMM <= 0 {
		lengthMM = nil
	}
	if widthSlots != nil && (*widthSlots < 2.0 || *widthSlots > 4.0) {
		widthSlots = nil
	}
	if heightMM != nil && *heightMM <= 0 {
		heightMM = nil
	}
	return lengthMM, widthSlots, heightMM
}

func cleanNonNegative(v *int) *int {
	if v != nil && *v < 0 {
		return nil
	}
	return v
}

// cleanCoolingType admits only the known cooling designs.
func cleanCoolingType(v *string) *string {
	if v == nil {
		return nil
	}
	switch *v {
	case "Air", "Liquid", "Hybrid":
		return v
	}
	return nil
}

// buildVariant coerces and sanitizes the extraction's descriptive fields into
// a persistable variant. Identity fields (variant id, chip id, AIB) are
// supplied by the caller; everything else is best-effort.
func buildVariant(ext model.Extraction, variantID, chipID, aibManufacturer string) *model.Variant {
	lengthMM, widthSlots, heightMM := cleanDimensions(
		model.CoerceInt(ext.LengthMM),
		model.CoerceFloat(ext.WidthSlots),
		model.CoerceInt(ext.HeightMM),
	)
	return &model.Variant{
		VariantID:          variantID,
		ChipID:             chipID,
		AIBManufacturer:    aibManufacturer,
		ModelSuffix:        ext.Suffix(),
		PartNumber:         model.CoerceString(ext.PartNumber),
		FactoryBoostMHz:    model.CoerceInt(ext.FactoryBoostMHz),
		LengthMM:           lengthMM,
		WidthSlots:         widthSlots,
		HeightMM:           heightMM,
		PowerConnectors:    model.CoerceString(ext.PowerConnectors),
		CoolingType:        cleanCoolingType(model.CoerceString(ext.CoolingType)),
		FanCount:           cleanNonNegative(model.CoerceInt(ext.FanCount)),
		DisplayPortCount:   cleanNonNegative(model.CoerceInt(ext.DisplayPortCount)),
		DisplayPortVersion: model.CoerceString(ext.DisplayPortVersion),
		HDMICount:          cleanNonNegative(model.CoerceInt(ext.HDMICount)),
		HDMIVersion:        model.CoerceString(ext.HDMIVersion),
		WarrantyYears:      cleanNonNegative(model.CoerceInt(ext.WarrantyYears)),
	}
}
