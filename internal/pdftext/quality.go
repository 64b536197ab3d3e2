package pdftext

import "unicode"

const (
	// minLayerChars is the minimum amount of text-layer content for a page
	// to count as readable without OCR.
	minLayerChars = 30
	// minPrintableRatio rejects layers dominated by garbage glyphs
	// (private-use-area runes, replacement chars, control noise).
	minPrintableRatio = 0.85
)

// JudgeQuality decides whether the text layer is authoritative for a page.
func JudgeQuality(text string) Quality {
	if len(text) < minLayerChars {
		return QualityPoor
	}
	if printableRatio(text) < minPrintableRatio {
		return QualityPoor
	}
	return QualityGood
}

// printableRatio returns the share of printable characters in text.
func printableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	// Private Use Area
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	// Replacement character
	return r == 0xFFFD
}
