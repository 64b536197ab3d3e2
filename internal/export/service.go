// Package export renders stored extraction results as an XLSX workbook.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/store"
)

// ExtractionsXLSX returns an XLSX workbook (as bytes) with one row per
// extracted document. Date fields prefer their ISO form; the last column
// carries the lowest field confidence so reviewers can sort by it.
func ExtractionsXLSX(extractions []store.Extraction, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Document",
		"Extracted At",
		"Invoice #",
		"PO #",
		"Invoice Date",
		"Due Date",
		"Vendor",
		"Customer",
		"Tax",
		"Total",
		"Balance Due",
		"Min Confidence",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, e := range extractions {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, shortID(e.DocID))
		write(2, e.CreatedAt.UTC().Format("2006-01-02 15:04"))
		write(3, cellValue(e.Record.InvoiceNumber))
		write(4, cellValue(e.Record.PurchaseOrderNumber))
		write(5, dateCell(e.Record.InvoiceDate))
		write(6, dateCell(e.Record.DueDate))
		write(7, cellValue(e.Record.VendorName))
		write(8, cellValue(e.Record.CustomerName))
		write(9, cellValue(e.Record.Tax))
		write(10, cellValue(e.Record.Total))
		write(11, cellValue(e.Record.BalanceDue))
		write(12, minConfidence(e.Record))
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "B", 18)
	_ = f.SetColWidth(sheet, "C", "D", 16)
	_ = f.SetColWidth(sheet, "E", "F", 14)
	_ = f.SetColWidth(sheet, "G", "H", 28)
	_ = f.SetColWidth(sheet, "I", "K", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", len(extractions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func cellValue(fr invoice.FieldResult) any {
	if fr.Value == nil {
		return ""
	}
	return fr.Value
}

func dateCell(fr invoice.FieldResult) any {
	if fr.ValueISO != nil {
		return *fr.ValueISO
	}
	return cellValue(fr)
}

func minConfidence(rec invoice.Record) float64 {
	min := 1.0
	for _, name := range invoice.FieldNames {
		if c := rec.Field(name).Confidence; c < min {
			min = c
		}
	}
	return min
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
