package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// BuildSystemPrompt composes the extraction instructions: mandatory tool
// use, the evidence requirement, the confidence rubric, and formatting
// hygiene. The JSON schema travels in a separate system message.
func BuildSystemPrompt(numPages int) string {
	parts := []string{
		"You are an invoice extraction engine. You MUST use the provided tools to read the document; you never see the PDF directly.",
		fmt.Sprintf("The document has %d page(s), indexed 0..%d.", numPages, numPages-1),
		"Call get_full_text first. Use get_page_text for a closer look at one page. Use ocr_page only when a page's text looks garbled or wrong.",
		"When done, return ONLY a JSON object matching the provided schema: the nine invoice fields, each with value, evidence, confidence, and extraction_method.",
		"Set value to null when a field is not present in the document.",
		"evidence must be a SHORT snippet copied from tool output that supports the value (e.g., the line containing the label and value). For a null value, use a note like \"Tax not found\".",
		"confidence must be a number between 0.0 and 1.0. Rubric: " +
			"0.95-1.00 exact label and value clearly present (e.g., \"BALANCE DUE $ 186.51\"); " +
			"0.75-0.94 value present but label proximity weak or formatting messy; " +
			"0.40-0.74 plausible but ambiguous (multiple candidates); " +
			"0.00-0.39 mostly a guess, or not found.",
		"extraction_method must be ONE short sentence describing how you located the value, like \"Matched label 'Invoice Date' and read the next date token.\" Do not include chain-of-thought.",
		"For invoice_date and due_date, also set value_iso to the ISO yyyy-mm-dd form when you can derive it; otherwise null. Keep the raw value as written in the document.",
		"Prefer BALANCE DUE / AMOUNT DUE for balance_due. If no explicit total is shown, set total to the balance due.",
		"If tax is not present, set tax.value = null with low confidence (<= 0.4).",
		"Output ONLY JSON. No markdown. No code fences. No commentary.",
	}
	return strings.Join(parts, " ")
}

// BuildSchemaMessage renders the invoice schema for the model.
func BuildSchemaMessage() string {
	return "JSON Schema:\n" + mustJSON(invoice.BuildJSONSchema())
}

// BuildUserPrompt is the task message that starts the loop.
func BuildUserPrompt(task string) string {
	task = strings.TrimSpace(task)
	if task == "" {
		task = "Extract invoice fields from the document."
	}
	return task
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
