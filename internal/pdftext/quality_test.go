package pdftext

import (
	"strings"
	"testing"
)

func TestJudgeQuality(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Quality
	}{
		{"empty", "", QualityPoor},
		{"too short", "Invoice #42", QualityPoor},
		{"clean paragraph", "Invoice #A-100 from Acme Supply Co., total due $1,234.50 by 2024-02-01.", QualityGood},
		{"multiline clean", strings.Repeat("Line item: widget x2 $10.00\n", 5), QualityGood},
		{"private use area glyphs", strings.Repeat("", 40), QualityPoor},
		{"replacement chars", strings.Repeat("�", 40), QualityPoor},
		{"mostly garbage", "ok " + strings.Repeat("", 60), QualityPoor},
		{"garbage minority", strings.Repeat("readable text ", 10) + "�", QualityGood},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JudgeQuality(tt.text); got != tt.want {
				t.Errorf("JudgeQuality(%q...) = %v, want %v", truncateForLog(tt.text), got, tt.want)
			}
		})
	}
}

func truncateForLog(s string) string {
	if len(s) > 32 {
		return s[:32]
	}
	return s
}

func TestPrintableRatio(t *testing.T) {
	if r := printableRatio(""); r != 1.0 {
		t.Errorf("empty ratio = %v, want 1.0", r)
	}
	if r := printableRatio("abcd"); r != 1.0 {
		t.Errorf("clean ratio = %v, want 1.0", r)
	}
	if r := printableRatio("ab"); r != 0.5 {
		t.Errorf("half garbage ratio = %v, want 0.5", r)
	}
}
