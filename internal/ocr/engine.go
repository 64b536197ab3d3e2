// Package ocr recognizes text on rendered PDF pages. Two engines are
// available: the default shells out to tesseract, the other drives
// libtesseract in-process via gosseract. Both rasterize pages with pdftoppm.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Engine recognizes the text of a single PDF page. pageIndex is 0-based.
type Engine interface {
	RecognizePage(ctx context.Context, pdfPath string, pageIndex int) (string, error)
}

// Config mirrors common.OCRConfig but stays decoupled from it so the package
// can be constructed directly in tests.
type Config struct {
	Pdftoppm      string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int           // rasterization DPI, default 200
	PSM           int           // page segmentation mode; 6 works well for invoices
	Timeout       time.Duration // per-page deadline covering render + recognition; 0 = none
}

// NewEngine selects an implementation by name: "gosseract" gets the
// in-process engine, anything else the exec engine.
func NewEngine(name string, cfg Config, runner Runner, logger *slog.Logger) (Engine, error) {
	if name == "gosseract" {
		return NewGosseractEngine(cfg, runner, logger)
	}
	return NewExecEngine(cfg, runner, logger)
}

func (cfg *Config) applyDefaults() {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
}

// ExecEngine runs tesseract as an external command, the same way the
// rasterization step runs pdftoppm.
type ExecEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewExecEngine verifies both binaries are reachable up front. A missing
// binary is an environment problem and must fail loudly before any
// extraction starts, never degrade into empty page text.
func NewExecEngine(cfg Config, runner Runner, logger *slog.Logger) (*ExecEngine, error) {
	cfg.applyDefaults()
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, bin := range []string{cfg.Pdftoppm, cfg.Tesseract} {
		if _, err := exec.LookPath(bin); err != nil {
			return nil, common.NewAppError("OCR_UNAVAILABLE",
				fmt.Sprintf("%s not found in PATH", bin), common.ErrOCRUnavailable)
		}
	}
	return &ExecEngine{cfg: cfg, runner: runner, logger: logger}, nil
}

func (e *ExecEngine) RecognizePage(ctx context.Context, pdfPath string, pageIndex int) (string, error) {
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

	args := []string{imgPath, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		if cerr := common.ClassifyTimeout(ctx.Err()); cerr != nil {
			return "", cerr
		}
		return "", fmt.Errorf("tesseract page %d: %w (%s)", pageIndex, err, truncate(string(errb), 512))
	}

	txt := Normalize(string(out))
	e.logger.Debug("ocr.page.ok",
		"page", pageIndex,
		"bytes", len(txt),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return txt, nil
}

// renderPage rasterizes one page to a temporary PNG with pdftoppm.
// pdftoppm pages are 1-based.
func renderPage(ctx context.Context, r Runner, cfg Config, pdfPath string, pageIndex int) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "ie-page-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	pageNum := fmt.Sprintf("%d", pageIndex+1)
	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := r.Run(ctx, cfg.Pdftoppm,
		"-f", pageNum, "-l", pageNum,
		"-r", fmt.Sprintf("%d", cfg.DPI),
		"-png", pdfPath, prefix)
	if err != nil {
		cleanup()
		if cerr := common.ClassifyTimeout(ctx.Err()); cerr != nil {
			return "", nil, cerr
		}
		return "", nil, fmt.Errorf("pdftoppm page %d: %w (%s)", pageIndex, err, truncate(string(errb), 512))
	}

	// pdftoppm pads the page number (page-1.png, page-01.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm produced no image for page %d", pageIndex)
	}
	return matches[0], cleanup, nil
}
