// invoice-extract runs the full extraction pipeline over one PDF and emits
// the result JSON, with optional sqlite persistence and XLSX export.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/internal/agent"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/store"
)

func main() {
	var (
		filePath   = flag.String("file", "", "path to the PDF to extract (required)")
		task       = flag.String("task", "", "extraction task prompt (optional)")
		outPath    = flag.String("out", "", "write result JSON here instead of stdout")
		save       = flag.Bool("save", false, "persist the result to the sqlite store (DB_PATH)")
		exportPath = flag.String("export", "", "write an XLSX of all stored extractions here")
		timeout    = flag.Duration("timeout", 5*time.Minute, "overall session timeout")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *filePath == "" {
		logger.Error("missing -file")
		flag.Usage()
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	pdfBytes, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("read pdf", "path", *filePath, "error", err)
		os.Exit(1)
	}

	engine, err := ocr.NewEngine(cfg.OCR.Engine, ocrConfig(cfg), nil, logger)
	if err != nil {
		logger.Error("ocr engine unavailable", "engine", cfg.OCR.Engine, "error", err)
		os.Exit(1)
	}

	source := pdftext.NewSource(pdftext.Config{Pdftotext: cfg.OCR.Pdftotext}, nil, logger)
	client := agent.NewClient(agent.ClientConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	p := pipeline.New(logger, source, engine, client, pipeline.Config{
		OCRWorkers: cfg.OCR.Workers,
		Agent: agent.Config{
			MaxToolCalls: cfg.Agent.MaxToolCalls,
			MaxRetries:   cfg.Agent.MaxRetries,
		},
	})

	outcome, err := p.Run(ctx, pdfBytes, *task)
	if err != nil {
		logger.Error("extraction failed", "error", err, "retryable", common.IsRetryable(err))
		os.Exit(1)
	}

	b, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		logger.Error("marshal outcome", "error", err)
		os.Exit(1)
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, b, 0o644); err != nil {
			logger.Error("write output", "path", *outPath, "error", err)
			os.Exit(1)
		}
		logger.Info("result written", "path", *outPath)
	} else {
		fmt.Println(string(b))
	}

	if *save || *exportPath != "" {
		if cfg.Store.DBPath == "" {
			logger.Error("DB_PATH is required for -save/-export")
			os.Exit(1)
		}
		st, err := store.Open(cfg.Store.DBPath, logger)
		if err != nil {
			logger.Error("open store", "error", err)
			os.Exit(1)
		}
		defer func() { _ = st.Close() }()

		if *save {
			if err := st.Save(ctx, outcome.DocumentID, outcome.Model, outcome.Extraction, outcome.AgentRaw); err != nil {
				logger.Error("persist result", "error", err)
				os.Exit(1)
			}
		}
		if *exportPath != "" {
			all, err := st.List(ctx)
			if err != nil {
				logger.Error("list extractions", "error", err)
				os.Exit(1)
			}
			xlsx, err := export.ExtractionsXLSX(all, logger)
			if err != nil {
				logger.Error("build xlsx", "error", err)
				os.Exit(1)
			}
			if err := os.WriteFile(*exportPath, xlsx, 0o644); err != nil {
				logger.Error("write xlsx", "path", *exportPath, "error", err)
				os.Exit(1)
			}
			logger.Info("export written", "path", *exportPath, "rows", len(all))
		}
	}
}

func ocrConfig(cfg *common.Config) ocr.Config {
	return ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
		Timeout:       cfg.OCR.Timeout,
	}
}
