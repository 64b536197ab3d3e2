//go:build !cgo

package ocr

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// GosseractEngine drives libtesseract in-process via cgo. This stub stands in
// when cgo is disabled: construction reports OCR_UNAVAILABLE, matching the
// cgo build's behavior when libtesseract is missing.
type GosseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewGosseractEngine(cfg Config, runner Runner, logger *slog.Logger) (*GosseractEngine, error) {
	return nil, common.NewAppError("OCR_UNAVAILABLE",
		"libtesseract not available (built without cgo)", common.ErrOCRUnavailable)
}

func (e *GosseractEngine) RecognizePage(ctx context.Context, pdfPath string, pageIndex int) (string, error) {
	return "", common.NewAppError("OCR_UNAVAILABLE",
		"libtesseract not available (built without cgo)", common.ErrOCRUnavailable)
}
