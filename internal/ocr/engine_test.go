package ocr

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// blockingRunner hangs until the context expires, like a wedged binary.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, _ string, _ ...string) ([]byte, []byte, error) {
	<-ctx.Done()
	return nil, nil, ctx.Err()
}

func TestExecEnginePageTimeout(t *testing.T) {
	cfg := Config{Timeout: 10 * time.Millisecond}
	cfg.applyDefaults()
	e := &ExecEngine{cfg: cfg, runner: blockingRunner{}, logger: slog.Default()}

	start := time.Now()
	_, err := e.RecognizePage(context.Background(), "/tmp/doc.pdf", 0)
	if !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("page deadline not applied, took %v", elapsed)
	}
}

func TestNewEngineSelection(t *testing.T) {
	// Construction may fail where the binaries or libtesseract are absent;
	// either way the name must map to the right implementation.
	eng, err := NewEngine("gosseract", Config{}, nil, nil)
	if err != nil {
		if !errors.Is(err, common.ErrOCRUnavailable) {
			t.Errorf("gosseract err = %v, want ErrOCRUnavailable", err)
		}
	} else if _, ok := eng.(*GosseractEngine); !ok {
		t.Errorf("NewEngine(gosseract) = %T", eng)
	}

	for _, name := range []string{"tesseract", ""} {
		eng, err := NewEngine(name, Config{}, nil, nil)
		if err != nil {
			if !errors.Is(err, common.ErrOCRUnavailable) {
				t.Errorf("%q err = %v, want ErrOCRUnavailable", name, err)
			}
		} else if _, ok := eng.(*ExecEngine); !ok {
			t.Errorf("NewEngine(%q) = %T", name, eng)
		}
	}
}
