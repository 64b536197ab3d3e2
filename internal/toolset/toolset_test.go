package toolset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/doccache"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
)

type fakeEngine struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEngine) RecognizePage(_ context.Context, _ string, pageIndex int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return fmt.Sprintf("ocr result page %d", pageIndex), nil
}

func newTestToolset(numPages int) (*Toolset, *fakeEngine) {
	layer := make([]pdftext.PageText, numPages)
	for i := range layer {
		layer[i] = pdftext.PageText{
			Index:   i,
			Text:    fmt.Sprintf("page %d content", i),
			Quality: pdftext.QualityGood,
		}
	}
	engine := &fakeEngine{}
	doc := doccache.Document{ID: "doc", Path: "/tmp/doc.pdf", NumPages: numPages}
	cache := doccache.New(doc, layer, engine, nil)
	return New(cache, nil), engine
}

func TestDispatch(t *testing.T) {
	ts, engine := newTestToolset(2)
	ctx := context.Background()

	full, err := ts.Dispatch(ctx, ToolGetFullText, nil)
	if err != nil {
		t.Fatalf("get_full_text: %v", err)
	}
	if !strings.Contains(full, "page 0 content") || !strings.Contains(full, "page 1 content") {
		t.Errorf("full text = %q", full)
	}

	page, err := ts.Dispatch(ctx, ToolGetPageText, []byte(`{"page_index":1}`))
	if err != nil {
		t.Fatalf("get_page_text: %v", err)
	}
	if page != "page 1 content" {
		t.Errorf("page text = %q", page)
	}

	ocrOut, err := ts.Dispatch(ctx, ToolOCRPage, []byte(`{"page_index":0}`))
	if err != nil {
		t.Fatalf("ocr_page: %v", err)
	}
	if ocrOut != "ocr result page 0" {
		t.Errorf("ocr text = %q", ocrOut)
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1 (only the forced OCR)", engine.calls)
	}
}

func TestDispatchErrors(t *testing.T) {
	ts, _ := newTestToolset(1)
	ctx := context.Background()

	if _, err := ts.Dispatch(ctx, "summon_demon", nil); err == nil {
		t.Error("unknown tool accepted")
	}
	if _, err := ts.Dispatch(ctx, ToolGetPageText, []byte(`{"page_index":"one"}`)); err == nil {
		t.Error("bad argument type accepted")
	}
	if _, err := ts.Dispatch(ctx, ToolGetPageText, []byte(`{"page_index":5}`)); !errors.Is(err, common.ErrInvalidPage) {
		t.Errorf("out-of-range err = %v, want ErrInvalidPage", err)
	}
}

func TestEvidencePoolCollectsToolOutput(t *testing.T) {
	ts, _ := newTestToolset(2)
	ctx := context.Background()

	if got := ts.EvidencePool(); len(got) != 0 {
		t.Fatalf("pool before any call = %v", got)
	}
	if _, err := ts.GetPageText(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.GetFullText(ctx); err != nil {
		t.Fatal(err)
	}

	pool := ts.EvidencePool()
	if len(pool) != 2 {
		t.Fatalf("pool size = %d, want 2", len(pool))
	}
	if pool[0] != "page 0 content" {
		t.Errorf("pool[0] = %q", pool[0])
	}

	// The returned slice is a copy.
	pool[0] = "tampered"
	if ts.EvidencePool()[0] != "page 0 content" {
		t.Error("EvidencePool leaked internal state")
	}
}

func TestSpecs(t *testing.T) {
	ts, _ := newTestToolset(3)
	specs := ts.Specs()
	if len(specs) != 3 {
		t.Fatalf("specs = %d, want 3", len(specs))
	}
	want := map[string]bool{ToolGetFullText: false, ToolGetPageText: false, ToolOCRPage: false}
	for _, s := range specs {
		fn, ok := s["function"].(map[string]any)
		if !ok {
			t.Fatalf("spec missing function object: %v", s)
		}
		name, _ := fn["name"].(string)
		if _, known := want[name]; !known {
			t.Errorf("unexpected tool %q", name)
		}
		want[name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q missing from specs", name)
		}
	}
}
