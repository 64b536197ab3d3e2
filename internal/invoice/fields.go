// Package invoice defines the extracted-field data model and the JSON
// schema the agent's final answer must satisfy.
package invoice

import "encoding/json"

// Field names, in output order.
const (
	FieldInvoiceNumber       = "invoice_number"
	FieldPurchaseOrderNumber = "purchase_order_number"
	FieldInvoiceDate         = "invoice_date"
	FieldDueDate             = "due_date"
	FieldVendorName          = "vendor_name"
	FieldCustomerName        = "customer_name"
	FieldTax                 = "tax"
	FieldTotal               = "total"
	FieldBalanceDue          = "balance_due"
)

// FieldNames lists the nine recognized fields in output order.
var FieldNames = []string{
	FieldInvoiceNumber,
	FieldPurchaseOrderNumber,
	FieldInvoiceDate,
	FieldDueDate,
	FieldVendorName,
	FieldCustomerName,
	FieldTax,
	FieldTotal,
	FieldBalanceDue,
}

// DateFields carry an additional value_iso sibling after normalization.
var DateFields = []string{FieldInvoiceDate, FieldDueDate}

// NumericFields are coerced to decimal numbers after extraction.
var NumericFields = []string{FieldTax, FieldTotal, FieldBalanceDue}

// FieldResult is one extracted field with its supporting evidence.
// Confidence is always present, even when Value is null.
type FieldResult struct {
	Value            any     `json:"value"`
	ValueISO         *string `json:"value_iso,omitempty"` // dates only; nil if unparseable
	Evidence         string  `json:"evidence"`
	Confidence       float64 `json:"confidence"`
	ExtractionMethod string  `json:"extraction_method"`
}

// Record maps each of the nine recognized fields to its result.
type Record struct {
	InvoiceNumber       FieldResult `json:"invoice_number"`
	PurchaseOrderNumber FieldResult `json:"purchase_order_number"`
	InvoiceDate         FieldResult `json:"invoice_date"`
	DueDate             FieldResult `json:"due_date"`
	VendorName          FieldResult `json:"vendor_name"`
	CustomerName        FieldResult `json:"customer_name"`
	Tax                 FieldResult `json:"tax"`
	Total               FieldResult `json:"total"`
	BalanceDue          FieldResult `json:"balance_due"`
}

// Field returns a pointer to the named field's result, or nil for an
// unrecognized name.
func (r *Record) Field(name string) *FieldResult {
	switch name {
	case FieldInvoiceNumber:
		return &r.InvoiceNumber
	case FieldPurchaseOrderNumber:
		return &r.PurchaseOrderNumber
	case FieldInvoiceDate:
		return &r.InvoiceDate
	case FieldDueDate:
		return &r.DueDate
	case FieldVendorName:
		return &r.VendorName
	case FieldCustomerName:
		return &r.CustomerName
	case FieldTax:
		return &r.Tax
	case FieldTotal:
		return &r.Total
	case FieldBalanceDue:
		return &r.BalanceDue
	}
	return nil
}

// MarshalJSON keeps value_iso on date fields even when it is null, and off
// every other field. The struct tag's omitempty alone would drop the key for
// an unparseable date, which downstream consumers read as string-or-null.
func (r Record) MarshalJSON() ([]byte, error) {
	type bare struct {
		Value            any     `json:"value"`
		Evidence         string  `json:"evidence"`
		Confidence       float64 `json:"confidence"`
		ExtractionMethod string  `json:"extraction_method"`
	}
	type dated struct {
		Value            any     `json:"value"`
		ValueISO         *string `json:"value_iso"`
		Evidence         string  `json:"evidence"`
		Confidence       float64 `json:"confidence"`
		ExtractionMethod string  `json:"extraction_method"`
	}
	out := make(map[string]any, len(FieldNames))
	for _, name := range FieldNames {
		fr := r.Field(name)
		if isDateField(name) {
			out[name] = dated{fr.Value, fr.ValueISO, fr.Evidence, fr.Confidence, fr.ExtractionMethod}
		} else {
			out[name] = bare{fr.Value, fr.Evidence, fr.Confidence, fr.ExtractionMethod}
		}
	}
	return json.Marshal(out)
}

func isDateField(name string) bool {
	return name == FieldInvoiceDate || name == FieldDueDate
}

// IsDateField reports whether the field carries a value_iso sibling.
func IsDateField(name string) bool { return isDateField(name) }

// IsNumericField reports whether the field is coerced to a decimal.
func IsNumericField(name string) bool {
	return name == FieldTax || name == FieldTotal || name == FieldBalanceDue
}
