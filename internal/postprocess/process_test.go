package postprocess

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

func field(value any, evidence string, confidence any) map[string]any {
	return map[string]any{
		"value":             value,
		"evidence":          evidence,
		"confidence":        confidence,
		"extraction_method": "text-layer",
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestProcessCompleteRecord(t *testing.T) {
	pool := []string{
		"Invoice #A-100\nDate: 2024-01-05\nVendor: Acme Supply Co.\nTotal: $1,234.50",
	}
	raw := mustJSON(t, map[string]any{
		"invoice_number":        field("A-100", "Invoice #A-100", 0.95),
		"purchase_order_number": field(nil, "", 0.9),
		"invoice_date":          field("2024-01-05", "Date: 2024-01-05", 0.98),
		"due_date":              field(nil, "", 0.8),
		"vendor_name":           field("Acme Supply Co.", "Vendor: Acme Supply Co.", 0.9),
		"customer_name":         field(nil, "", 0.7),
		"tax":                   field(nil, "", 0.6),
		"total":                 field("$1,234.50", "Total: $1,234.50", 0.97),
		"balance_due":           field(nil, "", 0.5),
	})

	rec := Process(raw, pool, nil)

	if rec.InvoiceNumber.Value != "A-100" {
		t.Errorf("invoice_number = %v, want A-100", rec.InvoiceNumber.Value)
	}
	if rec.InvoiceNumber.Confidence != 0.95 {
		t.Errorf("invoice_number confidence = %v, want 0.95", rec.InvoiceNumber.Confidence)
	}
	if rec.InvoiceDate.ValueISO == nil || *rec.InvoiceDate.ValueISO != "2024-01-05" {
		t.Errorf("invoice_date value_iso = %v, want 2024-01-05", rec.InvoiceDate.ValueISO)
	}
	if got, ok := rec.Total.Value.(float64); !ok || got != 1234.50 {
		t.Errorf("total = %v, want 1234.50", rec.Total.Value)
	}
	if rec.DueDate.Value != nil {
		t.Errorf("due_date value = %v, want nil", rec.DueDate.Value)
	}
}

func TestProcessMissingFieldsFilled(t *testing.T) {
	for _, raw := range [][]byte{[]byte(`{}`), []byte(`not json at all`), nil} {
		rec := Process(raw, nil, nil)
		for _, name := range invoice.FieldNames {
			fr := rec.Field(name)
			if fr == nil {
				t.Fatalf("field %q missing from record", name)
			}
			if fr.Value != nil {
				t.Errorf("%s value = %v, want nil", name, fr.Value)
			}
			if fr.Confidence != 0 {
				t.Errorf("%s confidence = %v, want 0", name, fr.Confidence)
			}
			if fr.ExtractionMethod != "missing from model output" {
				t.Errorf("%s extraction_method = %q", name, fr.ExtractionMethod)
			}
		}
	}
}

func TestProcessConfidenceClamping(t *testing.T) {
	pool := []string{"Invoice #A-100"}
	tests := []struct {
		name string
		conf any
		want float64
	}{
		{"negative", -5, 0},
		{"above one", 1.5, 1},
		{"non numeric string", "high", 0},
		{"numeric string", "0.8", 0.8},
		{"missing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := mustJSON(t, map[string]any{
				"invoice_number": field("A-100", "Invoice #A-100", tt.conf),
			})
			rec := Process(raw, pool, nil)
			if got := rec.InvoiceNumber.Confidence; got != tt.want {
				t.Errorf("confidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessEvidenceUnverified(t *testing.T) {
	pool := []string{"completely unrelated document text"}
	raw := mustJSON(t, map[string]any{
		"invoice_number": field("A-100", "Invoice #A-100", 0.95),
	})
	rec := Process(raw, pool, nil)

	if rec.InvoiceNumber.Confidence > 0.2 {
		t.Errorf("confidence = %v, want <= 0.2", rec.InvoiceNumber.Confidence)
	}
	if !strings.Contains(rec.InvoiceNumber.ExtractionMethod, "evidence unverified") {
		t.Errorf("extraction_method = %q, want unverified note", rec.InvoiceNumber.ExtractionMethod)
	}
}

func TestProcessEvidenceMatchIsWhitespaceInsensitive(t *testing.T) {
	pool := []string{"Total:   $250.00\n  Due on receipt"}
	raw := mustJSON(t, map[string]any{
		"total": field("250.00", "total: $250.00", 0.9),
	})
	rec := Process(raw, pool, nil)
	if rec.Total.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9 (evidence should match)", rec.Total.Confidence)
	}
}

func TestProcessUnparsedNumeric(t *testing.T) {
	pool := []string{"Balance Due: N/A"}
	raw := mustJSON(t, map[string]any{
		"balance_due": field("N/A", "Balance Due: N/A", 0.9),
	})
	rec := Process(raw, pool, nil)

	if rec.BalanceDue.Value != "N/A" {
		t.Errorf("value = %v, want N/A retained", rec.BalanceDue.Value)
	}
	if rec.BalanceDue.Confidence > 0.3 {
		t.Errorf("confidence = %v, want <= 0.3", rec.BalanceDue.Confidence)
	}
	if !strings.Contains(rec.BalanceDue.ExtractionMethod, "unparsed numeric") {
		t.Errorf("extraction_method = %q, want unparsed note", rec.BalanceDue.ExtractionMethod)
	}
}

func TestProcessSerializesValueISOAsNull(t *testing.T) {
	// invoice_date carries an unparseable value, due_date is absent entirely.
	// Both must still serialize with an explicit value_iso: null.
	pool := []string{"Invoice dated sometime soon"}
	raw := mustJSON(t, map[string]any{
		"invoice_date": field("sometime soon", "Invoice dated sometime soon", 0.4),
	})
	rec := Process(raw, pool, nil)

	b := mustJSON(t, rec)
	var out map[string]map[string]json.RawMessage
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"invoice_date", "due_date"} {
		iso, present := out[name]["value_iso"]
		if !present {
			t.Errorf("%s: value_iso key missing from serialized record", name)
			continue
		}
		if string(iso) != "null" {
			t.Errorf("%s value_iso = %s, want null", name, iso)
		}
	}
	if _, present := out["vendor_name"]["value_iso"]; present {
		t.Error("vendor_name gained a value_iso key")
	}
}

func TestProcessModelISOKeptOnlyWhenOwnParseFails(t *testing.T) {
	pool := []string{"Fällig: 5. Januar 2024, Date: 03/15/2024"}

	// Own parse succeeds: derived ISO wins over the model's claim.
	iso := "1999-01-01"
	raw := mustJSON(t, map[string]any{
		"invoice_date": map[string]any{
			"value":             "03/15/2024",
			"value_iso":         iso,
			"evidence":          "Date: 03/15/2024",
			"confidence":        0.9,
			"extraction_method": "text-layer",
		},
	})
	rec := Process(raw, pool, nil)
	if rec.InvoiceDate.ValueISO == nil || *rec.InvoiceDate.ValueISO != "2024-03-15" {
		t.Errorf("value_iso = %v, want 2024-03-15", rec.InvoiceDate.ValueISO)
	}

	// Own parse fails: a valid model ISO is kept.
	raw = mustJSON(t, map[string]any{
		"due_date": map[string]any{
			"value":             "5. Januar 2024",
			"value_iso":         "2024-01-05",
			"evidence":          "Fällig: 5. Januar 2024",
			"confidence":        0.8,
			"extraction_method": "text-layer",
		},
	})
	rec = Process(raw, pool, nil)
	if rec.DueDate.ValueISO == nil || *rec.DueDate.ValueISO != "2024-01-05" {
		t.Errorf("value_iso = %v, want 2024-01-05 from model", rec.DueDate.ValueISO)
	}
}
