package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/store"
)

func TestExtractionsXLSX(t *testing.T) {
	iso := "2024-01-05"
	var rec invoice.Record
	rec.InvoiceNumber = invoice.FieldResult{Value: "A-100", Confidence: 0.95}
	rec.InvoiceDate = invoice.FieldResult{Value: "01/05/2024", ValueISO: &iso, Confidence: 0.9}
	rec.Total = invoice.FieldResult{Value: 250.0, Confidence: 0.8}

	extractions := []store.Extraction{{
		DocID:     "abcdef0123456789",
		Model:     "gpt-4o-mini",
		CreatedAt: time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC),
		Record:    rec,
	}}

	b, err := ExtractionsXLSX(extractions, nil)
	if err != nil {
		t.Fatalf("ExtractionsXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	if v, _ := f.GetCellValue("Extractions", "A1"); v != "Document" {
		t.Errorf("A1 = %q", v)
	}
	if v, _ := f.GetCellValue("Extractions", "A2"); v != "abcdef012345" {
		t.Errorf("A2 = %q, want truncated doc id", v)
	}
	if v, _ := f.GetCellValue("Extractions", "C2"); v != "A-100" {
		t.Errorf("C2 = %q", v)
	}
	if v, _ := f.GetCellValue("Extractions", "E2"); v != iso {
		t.Errorf("E2 = %q, want ISO date", v)
	}
	if v, _ := f.GetCellValue("Extractions", "L2"); v == "" {
		t.Error("L2 empty, want min confidence")
	}
}

func TestExtractionsXLSXEmpty(t *testing.T) {
	b, err := ExtractionsXLSX(nil, nil)
	if err != nil {
		t.Fatalf("ExtractionsXLSX(nil): %v", err)
	}
	if len(b) == 0 {
		t.Error("empty workbook has no bytes")
	}
}
