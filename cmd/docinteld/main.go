package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jmartell/docintel/internal/classify"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/export"
	"github.com/jmartell/docintel/internal/extract"
	"github.com/jmartell/docintel/internal/llm"
	"github.com/jmartell/docintel/internal/ocr"
	"github.com/jmartell/docintel/internal/pipeline"
	"github.com/jmartell/docintel/internal/server"
	"github.com/jmartell/docintel/internal/store"
)

func main() {
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

	var st *store.Store
	if cfg.Store.DSN != "" {
		st, err = store.Open(ctx, cfg.Store.DSN, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer func() { _ = st.Close() }()
	} else {
		logger.Warn("STORE_DSN not set, run persistence is disabled")
	}

	srv := server.New(cfg.Server, controller, export.NewService(logger), st, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error("forced shutdown", "error", err)
		}
	}()

	if err := srv.Listen(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
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
