// Package toolset is the agent's only window onto document content: full
// text, single-page text, and forced per-page OCR. Every string handed to
// the agent is recorded into a session evidence pool so the post-processor
// can verify cited evidence actually came from a tool call.
package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/doccache"
)

const (
	ToolGetFullText = "get_full_text"
	ToolGetPageText = "get_page_text"
	ToolOCRPage     = "ocr_page"
)

type Toolset struct {
	cache  *doccache.Cache
	logger *slog.Logger

	mu   sync.Mutex
	pool []string
}

func New(cache *doccache.Cache, logger *slog.Logger) *Toolset {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolset{cache: cache, logger: logger}
}

// GetFullText returns the concatenated text of the whole document.
func (t *Toolset) GetFullText(ctx context.Context) (string, error) {
	text, err := t.cache.FullText(ctx)
	if err != nil {
		return "", err
	}
	t.record(text)
	return text, nil
}

// GetPageText returns the resolved text for one 0-based page (text layer or
// memoized OCR).
func (t *Toolset) GetPageText(ctx context.Context, pageIndex int) (string, error) {
	page, err := t.cache.PageText(ctx, pageIndex)
	if err != nil {
		return "", err
	}
	t.record(page.Text)
	return page.Text, nil
}

// OCRPage forces an OCR re-run for the page and returns the result, letting
// the agent override a text-layer read it has reason to distrust.
func (t *Toolset) OCRPage(ctx context.Context, pageIndex int) (string, error) {
	page, err := t.cache.ForceOCR(ctx, pageIndex)
	if err != nil {
		return "", err
	}
	t.record(page.Text)
	return page.Text, nil
}

// EvidencePool returns a copy of every tool output produced this session.
func (t *Toolset) EvidencePool() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.pool))
	copy(out, t.pool)
	return out
}

func (t *Toolset) record(text string) {
	t.mu.Lock()
	t.pool = append(t.pool, text)
	t.mu.Unlock()
}

// Dispatch executes a named tool with its raw JSON arguments and returns the
// plain-text result. Unknown names and bad arguments are reported as errors
// for the agent to surface as tool-error messages.
func (t *Toolset) Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error) {
	t.logger.Debug("toolset.dispatch", "tool", name, "args", string(args))
	switch name {
	case ToolGetFullText:
		return t.GetFullText(ctx)
	case ToolGetPageText, ToolOCRPage:
		var in struct {
			PageIndex int `json:"page_index"`
		}
		if len(args) > 0 {
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("bad arguments for %s: %w", name, err)
			}
		}
		if name == ToolGetPageText {
			return t.GetPageText(ctx, in.PageIndex)
		}
		return t.OCRPage(ctx, in.PageIndex)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// Specs returns the chat-completions tool definitions for the three tools.
func (t *Toolset) Specs() []map[string]any {
	pageParam := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page_index": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": fmt.Sprintf("0-based page index (0..%d)", t.cache.NumPages()-1),
			},
		},
		"required": []string{"page_index"},
	}
	return []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolGetFullText,
				"description": "Return the concatenated text of the entire document (all pages, in order).",
				"parameters": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties":           map[string]any{},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolGetPageText,
				"description": "Return the extracted text for one page (text layer, or OCR when the layer is unusable).",
				"parameters":  pageParam,
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolOCRPage,
				"description": "Force OCR for one page and return the OCR text, even if a text layer exists. Use when the page text looks wrong or garbled.",
				"parameters":  pageParam,
			},
		},
	}
}
