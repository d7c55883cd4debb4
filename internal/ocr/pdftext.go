package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jmartell/docintel/internal/common"
)

// PDFText is a local Recognizer for PDFs that carry a text layer. It never
// leaves the process, which makes it the default adapter for development and
// the fallback when no remote OCR service is configured. Confidence is
// heuristic since there is no word-level signal; each token gets the overall
// score so downstream consumers see a uniform word-confidence sequence.
type PDFText struct {
	log *slog.Logger
}

func NewPDFText(logger *slog.Logger) *PDFText {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFText{log: logger}
}

func (p *PDFText) Recognize(ctx context.Context, in Input) (Result, error) {
	start := time.Now()

	if in.MIMEType != "application/pdf" {
		return Result{}, common.WrapError(common.ErrUnsupportedFormat,
			"pdftext adapter only handles application/pdf, got "+in.MIMEType)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Preflight: reject broken PDFs before attempting text extraction.
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(in.Bytes), conf)
	if err != nil {
		p.log.Error("ocr.pdftext.preflight_failed", "filename", in.Filename, "error", err)
		return Result{}, common.WrapError(common.ErrUnsupportedFormat, "pdf preflight: "+err.Error())
	}
	pages := pctx.PageCount

	r, err := pdf.NewReader(bytes.NewReader(in.Bytes), int64(len(in.Bytes)))
	if err != nil {
		return Result{}, common.WrapError(common.ErrOCRServiceError, "open pdf: "+err.Error())
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages, keep the rest
			p.log.Warn("ocr.pdftext.page_skipped", "filename", in.Filename, "page", i, "error", err)
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	conf01 := heuristicConfidence(text)
	words := tokenize(text, conf01)

	res := Result{
		Text:              text,
		OverallConfidence: conf01,
		Words:             words,
		Pages:             pages,
		Language:          "en",
		Duration:          time.Since(start),
	}
	p.log.Info("ocr.pdftext.ok",
		"filename", in.Filename,
		"pages", pages,
		"chars", len(text),
		"confidence", res.OverallConfidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func tokenize(text string, score float32) []WordConfidence {
	fields := strings.Fields(text)
	words := make([]WordConfidence, 0, len(fields))
	for _, f := range fields {
		words = append(words, WordConfidence{Token: f, Score: score})
	}
	return words
}
