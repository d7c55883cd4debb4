package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/jmartell/docintel/internal/common"
)

// GeminiConfig configures the Gemini completer.
type GeminiConfig struct {
	APIKey      string
	Model       string // default "gemini-2.5-flash"
	Temperature float32
}

// GeminiClient implements Completer over the Gemini API.
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
	log    *slog.Logger
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, cfg: cfg, log: logger}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	temp := c.cfg.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 8192,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), config)
	if err != nil {
		c.log.Error("llm.gemini.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", classifyGeminiErr(err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini: nil response")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: no text content in response")
	}

	c.log.Info("llm.gemini.ok", "model", c.cfg.Model, "bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}

func classifyGeminiErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.WrapError(common.ErrTimeout, "gemini: "+err.Error())
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate") || strings.Contains(msg, "quota") {
		return common.WrapError(common.ErrRateLimited, "gemini: "+err.Error())
	}
	return fmt.Errorf("gemini: %w", err)
}
