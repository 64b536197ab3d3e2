//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// GosseractEngine drives libtesseract in-process. Avoids a process spawn per
// page but needs cgo and the tesseract shared library at build time; the
// exec engine stays the default.
type GosseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewGosseractEngine(cfg Config, runner Runner, logger *slog.Logger) (*GosseractEngine, error) {
	cfg.applyDefaults()
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Still need pdftoppm for rasterization.
	if _, err := exec.LookPath(cfg.Pdftoppm); err != nil {
		return nil, common.NewAppError("OCR_UNAVAILABLE",
			fmt.Sprintf("%s not found in PATH", cfg.Pdftoppm), common.ErrOCRUnavailable)
	}
	if v := gosseract.Version(); v == "" {
		return nil, common.NewAppError("OCR_UNAVAILABLE",
			"libtesseract not available", common.ErrOCRUnavailable)
	}
	return &GosseractEngine{cfg: cfg, runner: runner, logger: logger}, nil
}

func (e *GosseractEngine) RecognizePage(ctx context.Context, pdfPath string, pageIndex int) (string, error) {
	start := time.Now()
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	imgPath, cleanup, err := renderPage(ctx, e.runner, e.cfg, pdfPath, pageIndex)
	if err != nil {
		return "", err
	}
	defer cleanup()

	img, err := os.ReadFile(imgPath)
	if err != nil {
		return "", fmt.Errorf("read rendered page %d: %w", pageIndex, err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.cfg.TesseractLang); err != nil {
		return "", common.NewAppError("OCR_UNAVAILABLE",
			fmt.Sprintf("language %q not installed", e.cfg.TesseractLang), common.ErrOCRUnavailable)
	}
	if e.cfg.PSM > 0 {
		client.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM))
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("set image for page %d: %w", pageIndex, err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract page %d: %w", pageIndex, err)
	}

	txt := Normalize(text)
	e.logger.Debug("ocr.page.ok",
		"page", pageIndex,
		"engine", "gosseract",
		"bytes", len(txt),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return txt, nil
}
