// Package postprocess turns the agent's raw JSON into a complete, typed
// invoice record. Content-level problems never fail the pipeline here:
// missing fields, bad dates, unparseable amounts and fabricated evidence
// all degrade into low confidence plus an annotated extraction_method.
package postprocess

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

const (
	// unverifiedCap bounds confidence when cited evidence cannot be found
	// in any tool output from this session.
	unverifiedCap = 0.2
	// unparsedCap bounds confidence when a monetary value cannot be read
	// as a number.
	unparsedCap = 0.3

	noteMissing    = "missing from model output"
	noteUnverified = "evidence unverified"
	noteUnparsed   = "unparsed numeric"
)

type rawField struct {
	Value            any             `json:"value"`
	ValueISO         *string         `json:"value_iso"`
	Evidence         json.RawMessage `json:"evidence"`
	Confidence       json.RawMessage `json:"confidence"`
	ExtractionMethod json.RawMessage `json:"extraction_method"`
}

// Process validates and normalizes the agent's output against the evidence
// pool (the union of all tool outputs from this session). It always returns
// a complete nine-field record, whatever the input looked like.
func Process(raw []byte, pool []string, logger *slog.Logger) invoice.Record {
	if logger == nil {
		logger = slog.Default()
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		logger.Warn("postprocess.unmarshal_failed", "error", err, "raw_bytes", len(raw))
		fields = nil
	}

	poolText := normalizeForMatch(strings.Join(pool, "\n\n"))

	var rec invoice.Record
	for _, name := range invoice.FieldNames {
		out := rec.Field(name)
		*out = processField(name, fields[name], poolText, logger)
	}
	return rec
}

func processField(name string, raw json.RawMessage, poolText string, logger *slog.Logger) invoice.FieldResult {
	// Structural fill: an absent or malformed field becomes a null value
	// with zero confidence, never an error.
	var rf rawField
	if raw == nil {
		return invoice.FieldResult{Value: nil, Confidence: 0, ExtractionMethod: noteMissing}
	}
	if err := json.Unmarshal(raw, &rf); err != nil {
		logger.Warn("postprocess.field_malformed", "field", name, "error", err)
		return invoice.FieldResult{Value: nil, Confidence: 0, ExtractionMethod: noteMissing}
	}

	res := invoice.FieldResult{
		Value:            rf.Value,
		Evidence:         asString(rf.Evidence),
		Confidence:       asConfidence(rf.Confidence),
		ExtractionMethod: asString(rf.ExtractionMethod),
	}

	// Evidence check: a non-null value must cite text we actually handed
	// to the agent through a tool call.
	if res.Value != nil {
		ev := normalizeForMatch(res.Evidence)
		if ev == "" || !strings.Contains(poolText, ev) {
			if res.Confidence > unverifiedCap {
				res.Confidence = unverifiedCap
			}
			res.ExtractionMethod = annotate(res.ExtractionMethod, noteUnverified)
			logger.Warn("postprocess.evidence_unverified", "field", name)
		}
	}

	if invoice.IsDateField(name) {
		res.ValueISO = deriveISO(res.Value, rf.ValueISO)
	}

	if invoice.IsNumericField(name) && res.Value != nil {
		if f, ok := CoerceNumber(res.Value); ok {
			res.Value = f
		} else {
			if res.Confidence > unparsedCap {
				res.Confidence = unparsedCap
			}
			res.ExtractionMethod = annotate(res.ExtractionMethod, noteUnparsed)
			logger.Warn("postprocess.numeric_unparsed", "field", name, "value", res.Value)
		}
	}

	res.Confidence = clamp01(res.Confidence)
	return res
}

// deriveISO normalizes the raw date value; the model's own value_iso is
// kept only when it is already valid ISO and our parse found nothing.
func deriveISO(value any, modelISO *string) *string {
	if s, ok := value.(string); ok {
		if iso, ok := NormalizeDate(s); ok {
			return &iso
		}
	}
	if modelISO != nil && isISODate(*modelISO) {
		return modelISO
	}
	return nil
}

// asConfidence reads a confidence that may arrive as a number, a numeric
// string, or garbage ("high", -5, missing). Anything unusable is 0.
func asConfidence(raw json.RawMessage) float64 {
	if raw == nil {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, ok := parseDecimal(s); ok {
			return v
		}
	}
	return 0
}

func asString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

func clamp01(f float64) float64 {
	if f != f || f < 0 { // NaN or negative
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func annotate(method, note string) string {
	if method == "" {
		return note
	}
	return method + "; " + note
}

// normalizeForMatch collapses whitespace and case so near-verbatim evidence
// still matches the tool output it was copied from.
func normalizeForMatch(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
