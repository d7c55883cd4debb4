package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmartell/docintel/constants"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/llm"
	"github.com/jmartell/docintel/internal/ocr"
	"github.com/jmartell/docintel/internal/schema"
)

// Result is one document's structured extraction. Fields always contains
// every key the schema declares, with nil standing in for anything
// unextractable. ConfidenceScore comes from OCR only; the language model
// never supplies or overrides it.
type Result struct {
	DocumentType    constants.DocumentType
	Fields          map[string]any
	ConfidenceScore float32
	Raw             string
}

// Config holds orchestrator behavior knobs.
type Config struct {
	RetryBackoff time.Duration // wait before the single transient retry
}

// Orchestrator drives one extraction: prompt, model call, parse, sanitize,
// validate, confidence merge. Transient adapter errors get one retry with
// backoff; malformed output gets one stricter re-ask; after that the caller
// receives a best-effort all-null Result together with the failure.
type Orchestrator struct {
	completer llm.Completer
	cfg       Config
	log       *slog.Logger
	sleep     func(time.Duration) // swapped in tests
}

func NewOrchestrator(completer llm.Completer, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	return &Orchestrator{
		completer: completer,
		cfg:       cfg,
		log:       logger,
		sleep:     time.Sleep,
	}
}

// Extract populates sch's field set from ocrRes. On unrecoverable parse
// failure the returned Result still carries the full field set (all nil) and
// the OCR confidence, alongside ErrExtractionParseFailure.
func (o *Orchestrator) Extract(ctx context.Context, ocrRes ocr.Result, sch schema.ExtractionSchema) (Result, error) {
	start := time.Now()

	out, err := o.complete(ctx, buildPrompt(sch, ocrRes.Text, false))
	if err != nil {
		return Result{}, common.WrapError(err, "extract "+string(sch.DocumentType))
	}

	fields, perr := llm.ParseObject(out)
	if perr != nil {
		// One re-ask with a stricter instruction before giving up.
		o.log.Warn("extract.reask_strict", "type", sch.DocumentType, "error", perr)
		out2, err := o.complete(ctx, buildPrompt(sch, ocrRes.Text, true))
		if err != nil {
			return Result{}, common.WrapError(err, "extract retry "+string(sch.DocumentType))
		}
		out = out2
		fields, perr = llm.ParseObject(out)
	}
	if perr != nil {
		o.log.Error("extract.parse_failed", "type", sch.DocumentType, "raw_len", len(out))
		return Result{
			DocumentType:    sch.DocumentType,
			Fields:          nullFields(sch),
			ConfidenceScore: ocr.Clamp01(ocrRes.OverallConfidence),
			Raw:             out,
		}, perr
	}

	fields = conform(fields, sch)
	if sch.DocumentType == constants.Odometer {
		applyOdometerReadings(fields, ocrRes.Text)
	}

	if err := o.validate(fields, sch); err != nil {
		o.log.Error("extract.schema_validation_failed", "type", sch.DocumentType, "error", err)
		return Result{
			DocumentType:    sch.DocumentType,
			Fields:          nullFields(sch),
			ConfidenceScore: ocr.Clamp01(ocrRes.OverallConfidence),
			Raw:             out,
		}, common.WrapError(common.ErrExtractionParseFailure, err.Error())
	}

	res := Result{
		DocumentType:    sch.DocumentType,
		Fields:          fields,
		ConfidenceScore: ocr.Clamp01(ocrRes.OverallConfidence),
		Raw:             out,
	}
	o.log.Info("extract.ok",
		"type", sch.DocumentType,
		"fields", len(fields),
		"confidence", res.ConfidenceScore,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// complete performs the adapter call with a single backoff retry on
// transient failures (RateLimited, Timeout).
func (o *Orchestrator) complete(ctx context.Context, prompt string) (string, error) {
	out, err := o.completer.Complete(ctx, prompt)
	if err != nil && common.Retryable(err) && ctx.Err() == nil {
		o.log.Warn("extract.transient_retry", "error", err, "backoff", o.cfg.RetryBackoff)
		o.sleep(o.cfg.RetryBackoff)
		out, err = o.completer.Complete(ctx, prompt)
	}
	return out, err
}

func (o *Orchestrator) validate(fields map[string]any, sch schema.ExtractionSchema) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return llm.ValidateAgainstSchema(sch.JSONSchema(), b)
}

// conform forces the parsed map onto the schema's exact field set: declared
// fields missing from the response become nil, undeclared keys are dropped,
// and structured values are flattened to their JSON text so the output shape
// stays scalar-or-null.
func conform(parsed map[string]any, sch schema.ExtractionSchema) map[string]any {
	out := make(map[string]any, len(sch.Fields))
	for _, f := range sch.Fields {
		v, ok := parsed[f]
		if !ok {
			out[f] = nil
			continue
		}
		out[f] = scalarize(v)
	}
	return out
}

func scalarize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func nullFields(sch schema.ExtractionSchema) map[string]any {
	out := make(map[string]any, len(sch.Fields))
	for _, f := range sch.Fields {
		out[f] = nil
	}
	return out
}

func buildPrompt(sch schema.ExtractionSchema, ocrText string, strict bool) string {
	var b strings.Builder
	b.WriteString(sch.PromptTemplate)
	b.WriteString("\n\nFields to extract:\n")
	for _, f := range sch.Fields {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("\nOCR text:\n-----------------------------\n")
	b.WriteString(ocrText)
	b.WriteString("\n-----------------------------\n")
	if strict {
		b.WriteString("\nYour previous answer was not valid JSON. Respond with ONLY the JSON object, ")
		b.WriteString("starting with '{' and ending with '}'. No other text of any kind.\n")
	}
	return b.String()
}
