package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jmartell/docintel/constants"
	"github.com/jmartell/docintel/internal/classify"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/export"
	"github.com/jmartell/docintel/internal/extract"
	"github.com/jmartell/docintel/internal/llm"
	"github.com/jmartell/docintel/internal/ocr"
	"github.com/jmartell/docintel/internal/pipeline"
	"github.com/jmartell/docintel/internal/store"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory of documents to process (required)")
		out     = flag.String("out", "", "artifact output directory (defaults to ARTIFACT_DIR)")
		xlsx    = flag.Bool("xlsx", true, "also write the summary XLSX workbook")
		workers = flag.Int("workers", 0, "concurrent workers (overrides PIPELINE_WORKERS)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = cfg.Pipeline.ArtifactDir
	}
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}

	docs, err := loadDirectory(*dir)
	if err != nil {
		logger.Error("failed to read input directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("batch loaded", "dir", *dir, "documents", len(docs))

	recognizer, err := newRecognizer(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize OCR adapter", "error", err)
		os.Exit(1)
	}
	completer, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize LLM adapter", "error", err)
		os.Exit(1)
	}

	extractCfg := extract.Config{RetryBackoff: cfg.Pipeline.RetryBackoff}
	controller := pipeline.NewController(
		recognizer,
		classify.NewDefault(),
		extract.NewOrchestrator(completer, extractCfg, logger),
		extract.NewRefiner(completer, extractCfg, logger),
		logger,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
	)

	summary, err := controller.Run(ctx, docs, func(index, total int, filename string) {
		fmt.Printf("[%d/%d] %s\n", index+1, total, filename)
	})
	if err != nil {
		logger.Error("batch run failed", "error", err)
		os.Exit(1)
	}

	exporter := export.NewService(logger)
	summaryPath, err := exporter.WriteAll(*out, summary)
	if err != nil {
		logger.Error("failed to write artifacts", "error", err)
		os.Exit(1)
	}

	if *xlsx {
		b, err := exporter.SummaryXLSX(summary)
		if err != nil {
			logger.Error("failed to render XLSX summary", "error", err)
			os.Exit(1)
		}
		xlsxPath := strings.TrimSuffix(summaryPath, ".json") + ".xlsx"
		if err := os.WriteFile(xlsxPath, b, 0o644); err != nil {
			logger.Error("failed to write XLSX summary", "error", err)
			os.Exit(1)
		}
	}

	if cfg.Store.DSN != "" {
		st, err := store.Open(ctx, cfg.Store.DSN, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer func() { _ = st.Close() }()
		if err := st.SaveRun(ctx, summary); err != nil {
			logger.Error("failed to persist run", "run_id", summary.RunID, "error", err)
			os.Exit(1)
		}
	}

	ok, failed, cancelled := summary.Counts()
	fmt.Printf("Batch complete!\n")
	fmt.Printf("- Documents: %d\n", len(summary.Records))
	fmt.Printf("- Succeeded: %d\n", ok)
	fmt.Printf("- Failed: %d\n", failed)
	if cancelled > 0 {
		fmt.Printf("- Cancelled: %d\n", cancelled)
	}
	fmt.Printf("- Summary: %s\n", summaryPath)
}

// loadDirectory collects supported files from dir, sorted by name so runs are
// reproducible. Unsupported extensions are skipped here rather than failed,
// since the user did not pick them individually.
func loadDirectory(dir string) ([]pipeline.RawDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []pipeline.RawDocument
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if constants.MapExtToFormat(filepath.Ext(e.Name())) == "" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		docs = append(docs, pipeline.RawDocument{Filename: e.Name(), Bytes: b})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

func newRecognizer(cfg *common.Config, logger *slog.Logger) (ocr.Recognizer, error) {
	switch cfg.OCR.Provider {
	case "azure":
		return ocr.NewAzureClient(ocr.AzureConfig{
			Endpoint:     cfg.OCR.Endpoint,
			APIKey:       cfg.OCR.APIKey,
			APIVersion:   cfg.OCR.APIVersion,
			PollInterval: cfg.OCR.PollInterval,
			Timeout:      cfg.OCR.Timeout,
		}, logger), nil
	case "pdftext":
		return ocr.NewPDFText(logger), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider %q", cfg.OCR.Provider)
	}
}

func newCompleter(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger), nil
	case "gemini":
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}
