package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmartell/docintel/constants"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/llm"
	"github.com/jmartell/docintel/internal/ocr"
	"github.com/jmartell/docintel/internal/schema"
)

func testOCRResult(text string, confidence float32) ocr.Result {
	return ocr.Result{Text: text, OverallConfidence: confidence, Pages: 1}
}

func newTestOrchestrator(completer llm.Completer) *Orchestrator {
	o := NewOrchestrator(completer, Config{RetryBackoff: time.Millisecond}, nil)
	o.sleep = func(time.Duration) {}
	return o
}

func TestExtractHappyPath(t *testing.T) {
	sch := schema.ForType(constants.Generic)
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return `{"DocumentTitle": "Lease Agreement", "IssueDate": "2026-01-15", "ReferenceNumber": "L-88", "Summary": "12 month lease"}`, nil
	})

	res, err := newTestOrchestrator(completer).Extract(context.Background(), testOCRResult("lease text", 0.91), sch)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if res.DocumentType != constants.Generic {
		t.Fatalf("DocumentType = %s", res.DocumentType)
	}
	if res.ConfidenceScore != 0.91 {
		t.Fatalf("ConfidenceScore = %v, want the OCR confidence 0.91", res.ConfidenceScore)
	}
	if got := res.Fields["DocumentTitle"]; got != "Lease Agreement" {
		t.Fatalf("DocumentTitle = %v", got)
	}
	if len(res.Fields) != len(sch.Fields) {
		t.Fatalf("got %d fields, want exactly %d", len(res.Fields), len(sch.Fields))
	}
}

func TestExtractConformsToFieldSet(t *testing.T) {
	sch := schema.ForType(constants.Generic)
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		// one declared field, one undeclared, one nested value
		return `{"DocumentTitle": "W2", "Bogus": "drop me", "Summary": {"a": 1}}`, nil
	})

	res, err := newTestOrchestrator(completer).Extract(context.Background(), testOCRResult("text", 0.5), sch)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if _, ok := res.Fields["Bogus"]; ok {
		t.Fatal("undeclared field survived")
	}
	if res.Fields["IssueDate"] != nil {
		t.Fatalf("missing declared field should be nil, got %v", res.Fields["IssueDate"])
	}
	summary, ok := res.Fields["Summary"].(string)
	if !ok || !strings.Contains(summary, `"a":1`) {
		t.Fatalf("nested value should flatten to JSON text, got %v", res.Fields["Summary"])
	}
}

func TestExtractAcceptsFencedJSON(t *testing.T) {
	sch := schema.ForType(constants.Generic)
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "```json\n{\"DocumentTitle\": \"Invoice\"}\n```", nil
	})

	res, err := newTestOrchestrator(completer).Extract(context.Background(), testOCRResult("text", 0.8), sch)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if res.Fields["DocumentTitle"] != "Invoice" {
		t.Fatalf("DocumentTitle = %v", res.Fields["DocumentTitle"])
	}
}

func TestExtractStrictReaskRecovers(t *testing.T) {
	sch := schema.ForType(constants.Generic)
	calls := 0
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "I am sorry, I cannot help with that.", nil
		}
		if !strings.Contains(prompt, "previous answer was not valid JSON") {
			t.Errorf("re-ask prompt lacks the strict instruction")
		}
		return `{"DocumentTitle": "OK"}`, nil
	})

	res, err := newTestOrchestrator(completer).Extract(context.Background(), testOCRResult("text", 0.7), sch)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if res.Fields["DocumentTitle"] != "OK" {
		t.Fatalf("DocumentTitle = %v", res.Fields["DocumentTitle"])
	}
}

func TestExtractDoubleParseFailure(t *testing.T) {
	sch := schema.ForType(constants.DriverLicenseFront)
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "not json, ever", nil
	})

	res, err := newTestOrchestrator(completer).Extract(context.Background(), testOCRResult("text", 0.66), sch)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, common.ErrExtractionParseFailure) {
		t.Fatalf("error %v is not ErrExtractionParseFailure", err)
	}
	// best-effort result: full field set, all null, OCR confidence intact
	if len(res.Fields) != len(sch.Fields) {
		t.Fatalf("got %d fields, want %d", len(res.Fields), len(sch.Fields))
	}
	for f, v := range res.Fields {
		if v != nil {
			t.Fatalf("field %q = %v, want nil", f, v)
		}
	}
	if res.ConfidenceScore != 0.66 {
		t.Fatalf("ConfidenceScore = %v, want 0.66", res.ConfidenceScore)
	}
}

func TestExtractTransientRetry(t *testing.T) {
	sch := schema.ForType(constants.Generic)
	calls := 0
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", common.WrapError(common.ErrRateLimited, "429")
		}
		return `{"DocumentTitle": "after retry"}`, nil
	})

	var slept time.Duration
	o := NewOrchestrator(completer, Config{RetryBackoff: 250 * time.Millisecond}, nil)
	o.sleep = func(d time.Duration) { slept = d }

	res, err := o.Extract(context.Background(), testOCRResult("text", 0.9), sch)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if slept != 250*time.Millisecond {
		t.Fatalf("slept %v, want the configured backoff", slept)
	}
	if res.Fields["DocumentTitle"] != "after retry" {
		t.Fatalf("DocumentTitle = %v", res.Fields["DocumentTitle"])
	}
}

func TestExtractNonRetryableErrorPropagates(t *testing.T) {
	sch := schema.ForType(constants.Generic)
	calls := 0
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", errors.New("boom")
	})

	_, err := newTestOrchestrator(completer).Extract(context.Background(), testOCRResult("text", 0.9), sch)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, non-retryable errors must not retry", calls)
	}
}
