// Package pipeline wires the extraction session together: text acquisition
// (layer + OCR fallback) into a session-scoped cache, the tool-calling
// agent over that cache, and the normalization post-pass. One Run handles
// one document; the cache and evidence pool die with it.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/agent"
	"github.com/joseph-ayodele/invoice-extractor/internal/doccache"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
	"github.com/joseph-ayodele/invoice-extractor/internal/postprocess"
	"github.com/joseph-ayodele/invoice-extractor/internal/toolset"
)

type Config struct {
	OCRWorkers int
	Agent      agent.Config
}

// TextSource yields per-page text-layer content for a document.
// *pdftext.Source is the production implementation.
type TextSource interface {
	Extract(ctx context.Context, pdfBytes []byte, pdfPath string) ([]pdftext.PageText, error)
}

type Pipeline struct {
	logger *slog.Logger
	source TextSource
	engine ocr.Engine
	client *agent.Client
	cfg    Config
}

func New(logger *slog.Logger, source TextSource, engine ocr.Engine, client *agent.Client, cfg Config) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OCRWorkers <= 0 {
		cfg.OCRWorkers = 4
	}
	return &Pipeline{logger: logger, source: source, engine: engine, client: client, cfg: cfg}
}

// PageInfo records which extraction method ended up authoritative per page.
type PageInfo struct {
	Page    int    `json:"page"`
	UsedOCR bool   `json:"used_ocr"`
	Method  string `json:"method"` // "pdf-text" | "pdf-ocr"
}

// Outcome is the final result envelope: the typed record plus the session's
// audit trail (full text, per-page methods, raw agent output, model info).
type Outcome struct {
	DocumentID string          `json:"doc_id"`
	Pages      []PageInfo      `json:"pages"`
	Text       string          `json:"text"`
	Extraction invoice.Record  `json:"extraction"`
	AgentRaw   json.RawMessage `json:"agent_output_raw"`
	Model      string          `json:"model"`
}

// Run executes one extraction session over raw PDF bytes.
func (p *Pipeline) Run(ctx context.Context, pdfBytes []byte, task string) (*Outcome, error) {
	start := time.Now()
	docID := doccache.ComputeID(pdfBytes)
	log := p.logger.With("doc_id", docID)

	// pdftotext and pdftoppm want a file, so the session keeps one on disk.
	tmp, err := os.CreateTemp("", "ie-doc-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp pdf: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(pdfBytes); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp pdf: %w", err)
	}

	layer, err := p.source.Extract(ctx, pdfBytes, tmp.Name())
	if err != nil {
		return nil, err
	}

	doc := doccache.Document{ID: docID, Path: tmp.Name(), NumPages: len(layer)}
	cache := doccache.New(doc, layer, p.engine, log)
	if err := cache.WarmOCR(ctx, p.cfg.OCRWorkers); err != nil {
		return nil, err
	}

	tools := toolset.New(cache, log)
	ag := agent.New(p.client, tools, p.cfg.Agent, log)
	raw, err := ag.Run(ctx, task, cache.NumPages())
	if err != nil {
		return nil, err
	}

	rec := postprocess.Process(raw, tools.EvidencePool(), log)

	pages, err := cache.Pages(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]PageInfo, len(pages))
	for i, pg := range pages {
		infos[i] = PageInfo{
			Page:    pg.Index,
			UsedOCR: pg.Source == doccache.SourceOCR,
			Method:  pg.Source.String(),
		}
	}
	fullText, err := cache.FullText(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("pipeline.run.ok",
		"pages", len(pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Outcome{
		DocumentID: docID,
		Pages:      infos,
		Text:       fullText,
		Extraction: rec,
		AgentRaw:   raw,
		Model:      p.client.Model(),
	}, nil
}
