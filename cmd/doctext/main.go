// doctext dumps per-page text for a PDF, showing which extraction method
// (text layer or OCR) was authoritative for each page. Debugging aid for
// the acquisition stage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/doccache"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
)

func main() {
	var (
		filePath = flag.String("file", "", "path to the PDF (required)")
		timeout  = flag.Duration("timeout", 2*time.Minute, "overall timeout")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pdfBytes, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("read pdf", "path", *filePath, "error", err)
		os.Exit(1)
	}

	ocrCfg := ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
		Timeout:       cfg.OCR.Timeout,
	}
	engine, err := ocr.NewEngine(cfg.OCR.Engine, ocrCfg, nil, logger)
	if err != nil {
		logger.Error("ocr engine unavailable", "error", err)
		os.Exit(1)
	}

	source := pdftext.NewSource(pdftext.Config{Pdftotext: cfg.OCR.Pdftotext}, nil, logger)
	layer, err := source.Extract(ctx, pdfBytes, *filePath)
	if err != nil {
		logger.Error("extract text layer", "error", err)
		os.Exit(1)
	}

	doc := doccache.Document{
		ID:       doccache.ComputeID(pdfBytes),
		Path:     *filePath,
		NumPages: len(layer),
	}
	cache := doccache.New(doc, layer, engine, logger)
	pages, err := cache.Pages(ctx)
	if err != nil {
		logger.Error("resolve pages", "error", err)
		os.Exit(1)
	}

	for _, pg := range pages {
		fmt.Printf("--- page %d (%s) ---\n%s\n\n", pg.Index, pg.Source, pg.Text)
	}
}
