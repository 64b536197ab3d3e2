// Package pdftext extracts the embedded text layer of a PDF, page by page,
// and judges whether each page's layer is usable or needs OCR.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

// Quality tags whether the text layer is authoritative for a page.
type Quality int

const (
	QualityPoor Quality = iota
	QualityGood
)

func (q Quality) String() string {
	if q == QualityGood {
		return "good"
	}
	return "poor"
}

// PageText is one page's text-layer content plus its quality judgement.
type PageText struct {
	Index   int // 0-based
	Text    string
	Quality Quality
}

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
}

type Source struct {
	cfg    Config
	runner ocr.Runner
	logger *slog.Logger
}

func NewSource(cfg Config, runner ocr.Runner, logger *slog.Logger) *Source {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if runner == nil {
		runner = ocr.DefaultRunner()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{cfg: cfg, runner: runner, logger: logger}
}

// Extract validates the document and returns per-page text-layer content in
// page order. pdfBytes and pdfPath refer to the same document; validation
// reads the bytes, pdftotext reads the file.
func (s *Source) Extract(ctx context.Context, pdfBytes []byte, pdfPath string) ([]PageText, error) {
	start := time.Now()

	pageCount, err := validate(pdfBytes)
	if err != nil {
		return nil, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := s.runner.Run(ctx, s.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", pdfPath, "-")
	if err != nil {
		if cerr := common.ClassifyTimeout(ctx.Err()); cerr != nil {
			return nil, cerr
		}
		return nil, common.NewAppError("UNREADABLE_PDF",
			fmt.Sprintf("pdftotext failed: %s", truncate(string(errb), 512)), common.ErrUnreadablePDF)
	}

	// A form-feed \f separates pages in pdftotext output.
	parts := strings.Split(string(out), "\f")
	pages := make([]PageText, pageCount)
	for i := 0; i < pageCount; i++ {
		var text string
		if i < len(parts) {
			text = strings.TrimSpace(parts[i])
		}
		pages[i] = PageText{
			Index:   i,
			Text:    text,
			Quality: JudgeQuality(text),
		}
	}

	good := 0
	for _, p := range pages {
		if p.Quality == QualityGood {
			good++
		}
	}
	s.logger.Info("pdftext.extract.ok",
		"pages", pageCount,
		"good_pages", good,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

// validate parses the document with pdfcpu and returns its page count.
// Corrupt or encrypted input surfaces as ErrUnreadablePDF before any
// extraction work happens.
func validate(pdfBytes []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdfBytes), conf)
	if err != nil {
		return 0, common.NewAppError("UNREADABLE_PDF", "cannot parse document", common.ErrUnreadablePDF)
	}
	if pdfCtx.PageCount == 0 {
		return 0, common.NewAppError("UNREADABLE_PDF", "document has no pages", common.ErrUnreadablePDF)
	}
	return pdfCtx.PageCount, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
