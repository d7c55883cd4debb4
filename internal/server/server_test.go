package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmartell/docintel/internal/classify"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/export"
	"github.com/jmartell/docintel/internal/extract"
	"github.com/jmartell/docintel/internal/llm"
	"github.com/jmartell/docintel/internal/ocr"
	"github.com/jmartell/docintel/internal/pipeline"
)

type staticRecognizer struct{ text string }

func (s *staticRecognizer) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{Text: s.text, OverallConfidence: 0.9, Pages: 1}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "{}", nil
	})
	cfg := extract.Config{RetryBackoff: time.Millisecond}
	controller := pipeline.NewController(
		&staticRecognizer{text: "lorem ipsum"},
		classify.NewDefault(),
		extract.NewOrchestrator(completer, cfg, nil),
		extract.NewRefiner(completer, cfg, nil),
		nil,
	)
	return New(
		common.ServerConfig{Addr: ":0", MaxUploadMB: 8, AllowOrigins: "*"},
		controller,
		export.NewService(nil),
		nil,
		nil,
	)
}

func multipartBody(t *testing.T, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range filenames {
		fw, err := w.CreateFormFile("documents", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte("content of " + name)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCreateRun(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, "scan1.jpg", "scan2.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, b)
	}

	var out struct {
		RunID     string `json:"run_id"`
		Succeeded int    `json:"succeeded"`
		Failed    int    `json:"failed"`
		Records   []struct {
			Filename string `json:"filename"`
			Status   string `json:"status"`
		} `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.RunID == "" {
		t.Error("missing run_id")
	}
	if out.Succeeded != 2 || out.Failed != 0 {
		t.Errorf("counts = (%d, %d)", out.Succeeded, out.Failed)
	}
	if len(out.Records) != 2 || out.Records[0].Filename != "scan1.jpg" {
		t.Errorf("records = %+v", out.Records)
	}
}

func TestCreateRunWithoutFiles(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateRunXLSX(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, "scan1.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs?format=xlsx", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("content type = %s", got)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(b) < 4 || b[0] != 'P' || b[1] != 'K' {
		t.Fatal("response is not an XLSX workbook")
	}
}

func TestListRunsWithoutStore(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}
