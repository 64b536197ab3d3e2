// Package doccache memoizes resolved page text for one document session.
// Pages resolve to their text layer when it is good, otherwise to OCR; OCR
// runs at most once per page unless explicitly forced. The cache is owned by
// a single pipeline invocation and discarded with it.
package doccache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
)

// TextSource tags which extraction produced a page's authoritative text.
// Exactly one source is authoritative per page at any time.
type TextSource int

const (
	SourceTextLayer TextSource = iota
	SourceOCR
)

func (s TextSource) String() string {
	if s == SourceOCR {
		return "pdf-ocr"
	}
	return "pdf-text"
}

// Document identifies one uploaded PDF for the duration of a session.
type Document struct {
	ID       string // sha256 of the raw bytes
	Path     string // on-disk copy for pdftotext/pdftoppm
	NumPages int
}

// ComputeID returns the stable content hash used as document ID.
func ComputeID(pdfBytes []byte) string {
	sum := sha256.Sum256(pdfBytes)
	return hex.EncodeToString(sum[:])
}

// Page is a resolved page: its text and the source that produced it.
type Page struct {
	Index  int
	Text   string
	Source TextSource
}

type pageEntry struct {
	mu       sync.Mutex
	resolved bool
	page     Page
}

// Cache resolves and memoizes page text for one document.
type Cache struct {
	doc    Document
	layer  []pdftext.PageText
	engine ocr.Engine
	logger *slog.Logger

	entries []*pageEntry

	fullMu sync.Mutex
	full   *string
}

func New(doc Document, layer []pdftext.PageText, engine ocr.Engine, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	entries := make([]*pageEntry, doc.NumPages)
	for i := range entries {
		entries[i] = &pageEntry{}
	}
	return &Cache{
		doc:     doc,
		layer:   layer,
		engine:  engine,
		logger:  logger,
		entries: entries,
	}
}

func (c *Cache) NumPages() int { return c.doc.NumPages }

func (c *Cache) DocumentID() string { return c.doc.ID }

// PageText returns the resolved text for one page, computing it on first
// use: the text layer when its quality is good, OCR otherwise. The per-page
// lock guarantees OCR runs at most once even under concurrent callers.
func (c *Cache) PageText(ctx context.Context, idx int) (Page, error) {
	if idx < 0 || idx >= c.doc.NumPages {
		return Page{}, fmt.Errorf("page %d of %d: %w", idx, c.doc.NumPages, common.ErrInvalidPage)
	}
	e := c.entries[idx]
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resolved {
		return e.page, nil
	}

	lt := c.layer[idx]
	if lt.Quality == pdftext.QualityGood {
		e.page = Page{Index: idx, Text: lt.Text, Source: SourceTextLayer}
		e.resolved = true
		return e.page, nil
	}

	text, err := c.engine.RecognizePage(ctx, c.doc.Path, idx)
	if err != nil {
		return Page{}, err
	}
	c.logger.Debug("doccache.page.ocr", "doc_id", c.doc.ID, "page", idx, "bytes", len(text))
	e.page = Page{Index: idx, Text: text, Source: SourceOCR}
	e.resolved = true
	return e.page, nil
}

// FullText concatenates all pages in order, memoized until a ForceOCR
// invalidates it.
func (c *Cache) FullText(ctx context.Context) (string, error) {
	c.fullMu.Lock()
	defer c.fullMu.Unlock()
	if c.full != nil {
		return *c.full, nil
	}
	parts := make([]string, 0, c.doc.NumPages)
	for i := 0; i < c.doc.NumPages; i++ {
		p, err := c.PageText(ctx, i)
		if err != nil {
			return "", err
		}
		parts = append(parts, p.Text)
	}
	s := strings.Join(parts, "\n\n")
	c.full = &s
	return s, nil
}

// ForceOCR always (re)runs OCR for the page, even when the text layer was
// judged good, and makes the OCR result authoritative. The memoized full
// text is invalidated so it gets recomputed lazily.
func (c *Cache) ForceOCR(ctx context.Context, idx int) (Page, error) {
	if idx < 0 || idx >= c.doc.NumPages {
		return Page{}, fmt.Errorf("page %d of %d: %w", idx, c.doc.NumPages, common.ErrInvalidPage)
	}
	text, err := c.engine.RecognizePage(ctx, c.doc.Path, idx)
	if err != nil {
		return Page{}, err
	}

	page := Page{Index: idx, Text: text, Source: SourceOCR}
	e := c.entries[idx]
	e.mu.Lock()
	e.page = page
	e.resolved = true
	e.mu.Unlock()

	c.fullMu.Lock()
	c.full = nil
	c.fullMu.Unlock()

	c.logger.Info("doccache.page.force_ocr", "doc_id", c.doc.ID, "page", idx, "bytes", len(text))
	return page, nil
}

// WarmOCR resolves all poor-quality pages up front, OCRing them in parallel
// under a bounded worker count. Page-level memoization still serializes each
// individual page.
func (c *Cache) WarmOCR(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	var poor []int
	for _, lt := range c.layer {
		if lt.Quality == pdftext.QualityPoor {
			poor = append(poor, lt.Index)
		}
	}
	if len(poor) == 0 {
		return nil
	}
	c.logger.Info("doccache.warm.start", "doc_id", c.doc.ID, "pages", len(poor), "workers", workers)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, idx := range poor {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := c.PageText(ctx, idx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("warm ocr page %d: %w", idx, err)
				}
				mu.Unlock()
			}
		}(idx)
	}
	wg.Wait()
	return firstErr
}

// Pages resolves and returns every page in order.
func (c *Cache) Pages(ctx context.Context) ([]Page, error) {
	out := make([]Page, 0, c.doc.NumPages)
	for i := 0; i < c.doc.NumPages; i++ {
		p, err := c.PageText(ctx, i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
