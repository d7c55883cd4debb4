package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmartell/docintel/internal/common"
)

// AzureConfig configures the Azure Document Intelligence layout adapter.
type AzureConfig struct {
	Endpoint     string
	APIKey       string
	APIVersion   string        // default "2023-07-31"
	PollInterval time.Duration // default 2s
	Timeout      time.Duration // overall analyze+poll budget, default 90s
}

// AzureClient runs the prebuilt-layout model: submit the document, poll the
// operation until it settles, then flatten pages into text plus word
// confidences.
type AzureClient struct {
	cfg  AzureConfig
	http *http.Client
	log  *slog.Logger
}

func NewAzureClient(cfg AzureConfig, logger *slog.Logger) *AzureClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-07-31"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &AzureClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

type azureAnalyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content string `json:"content"`
		Pages   []struct {
			Words []struct {
				Content    string  `json:"content"`
				Confidence float32 `json:"confidence"`
			} `json:"words"`
		} `json:"pages"`
		Languages []struct {
			Locale string `json:"locale"`
		} `json:"languages"`
	} `json:"analyzeResult"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AzureClient) Recognize(ctx context.Context, in Input) (Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	opURL, err := c.submit(ctx, rid, in)
	if err != nil {
		return Result{}, err
	}

	res, err := c.poll(ctx, rid, opURL)
	if err != nil {
		return Result{}, err
	}
	res.Duration = time.Since(start)

	c.log.Info("ocr.azure.ok",
		"req_id", rid,
		"pages", res.Pages,
		"words", len(res.Words),
		"confidence", res.OverallConfidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (c *AzureClient) submit(ctx context.Context, rid string, in Input) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/prebuilt-layout:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(in.Bytes))
	if err != nil {
		return "", common.WrapError(common.ErrOCRServiceError, err.Error())
	}
	req.Header.Set("Content-Type", in.MIMEType)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	c.log.Info("ocr.azure.submit", "req_id", rid, "bytes", len(in.Bytes), "mime", in.MIMEType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.classify(rid, err)
	}
	defer closeBody(resp.Body, c.log, rid)

	switch {
	case resp.StatusCode == http.StatusAccepted:
		loc := resp.Header.Get("Operation-Location")
		if loc == "" {
			return "", common.WrapError(common.ErrOCRServiceError, "missing Operation-Location header")
		}
		return loc, nil
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return "", common.WrapError(common.ErrUnsupportedFormat, "azure rejected media type "+in.MIMEType)
	default:
		raw, _ := io.ReadAll(resp.Body)
		c.log.Error("ocr.azure.submit_error", "req_id", rid, "status", resp.StatusCode, "body", truncate(string(raw), 512))
		return "", common.WrapError(common.ErrOCRServiceError, fmt.Sprintf("analyze status %d", resp.StatusCode))
	}
}

func (c *AzureClient) poll(ctx context.Context, rid, opURL string) (Result, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, c.classify(rid, ctx.Err())
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return Result{}, common.WrapError(common.ErrOCRServiceError, err.Error())
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return Result{}, c.classify(rid, err)
		}
		raw, _ := io.ReadAll(resp.Body)
		closeBody(resp.Body, c.log, rid)

		if resp.StatusCode/100 != 2 {
			c.log.Error("ocr.azure.poll_error", "req_id", rid, "status", resp.StatusCode)
			return Result{}, common.WrapError(common.ErrOCRServiceError, fmt.Sprintf("poll status %d", resp.StatusCode))
		}

		var ar azureAnalyzeResult
		if err := json.Unmarshal(raw, &ar); err != nil {
			return Result{}, common.WrapError(common.ErrOCRServiceError, "decode analyze result: "+err.Error())
		}

		switch ar.Status {
		case "succeeded":
			return flattenAzure(ar), nil
		case "failed":
			return Result{}, common.WrapError(common.ErrOCRServiceError, ar.Error.Code+": "+ar.Error.Message)
		default:
			c.log.Debug("ocr.azure.poll_pending", "req_id", rid, "status", ar.Status)
		}
	}
}

func flattenAzure(ar azureAnalyzeResult) Result {
	var words []WordConfidence
	for _, p := range ar.AnalyzeResult.Pages {
		for _, w := range p.Words {
			words = append(words, WordConfidence{Token: w.Content, Score: w.Confidence})
		}
	}
	lang := "en"
	if len(ar.AnalyzeResult.Languages) > 0 {
		lang = ar.AnalyzeResult.Languages[0].Locale
	}
	return Result{
		Text:              strings.TrimSpace(ar.AnalyzeResult.Content),
		OverallConfidence: Overall(words),
		Words:             words,
		Pages:             len(ar.AnalyzeResult.Pages),
		Language:          lang,
	}
}

func (c *AzureClient) classify(rid string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		c.log.Error("ocr.azure.timeout", "req_id", rid, "error", err)
		return common.WrapError(common.ErrOCRTimeout, err.Error())
	}
	c.log.Error("ocr.azure.transport_error", "req_id", rid, "error", err)
	return common.WrapError(common.ErrOCRServiceError, err.Error())
}

func closeBody(body io.ReadCloser, log *slog.Logger, rid string) {
	if err := body.Close(); err != nil {
		log.Warn("ocr.azure.body_close_error", "req_id", rid, "error", err)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
