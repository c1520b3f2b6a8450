// Package report renders store query results into spreadsheet workbooks for
// hand-off outside the pipeline.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/pcbuilder/gpumarket/internal/model"
)

// WritePriceWorkbook writes two sheets: the latest price per variant and
// retailer, and min/avg/max aggregates over each variant's full history.
func WritePriceWorkbook(path string, prices []model.PriceSnapshot, stats []model.PriceStat) error {
	f := xlsx.NewFile()

	current, err := f.AddSheet("Current Prices")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}
	header := current.AddRow()
	for _, h := range []string{"Variant", "Chip", "Model", "AIB", "Retailer", "Price EUR", "Currency", "Observed At"} {
		header.AddCell().SetString(h)
	}
	for _, p := range prices {
		row := current.AddRow()
		row.AddCell().SetString(p.VariantID)
		row.AddCell().SetString(p.ChipID)
		row.AddCell().SetString(p.ModelName)
		row.AddCell().SetString(p.AIBManufacturer)
		row.AddCell().SetString(p.Retailer)
		row.AddCell().SetFloat(p.PriceEUR)
		if p.Currency != nil {
			row.AddCell().SetString(*p.Currency)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(p.ObservedAt)
	}

	statsSheet, err := f.AddSheet("Price Stats")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}
	header = statsSheet.AddRow()
	for _, h := range []string{"Variant", "Model", "Observations", "Min EUR", "Avg EUR", "Max EUR", "First Seen", "Last Seen"} {
		header.AddCell().SetString(h)
	}
	for _, s := range stats {
		row := statsSheet.AddRow()
		row.AddCell().SetString(s.VariantID)
		row.AddCell().SetString(s.ModelName)
		row.AddCell().SetInt(s.Observations)
		row.AddCell().SetFloat(s.MinPriceEUR)
		row.AddCell().SetFloat(s.AvgPriceEUR)
		row.AddCell().SetFloat(s.MaxPriceEUR)
		row.AddCell().SetString(s.FirstSeen)
		row.AddCell().SetString(s.LastSeen)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}
