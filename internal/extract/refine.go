package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/llm"
	"github.com/jmartell/docintel/internal/schema"
)

// Refiner runs the conditional second pass for identity documents: a narrow
// model call that normalizes formatting of the schema's RefineFields (OCR
// artifacts stripped, character set enforced). Everything else, including
// the OCR-sourced ConfidenceScore, is carried over untouched.
type Refiner struct {
	completer llm.Completer
	cfg       Config
	log       *slog.Logger
	sleep     func(time.Duration)
}

func NewRefiner(completer llm.Completer, cfg Config, logger *slog.Logger) *Refiner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	return &Refiner{
		completer: completer,
		cfg:       cfg,
		log:       logger,
		sleep:     time.Sleep,
	}
}

// Refine returns a copy of res with at most the schema's RefineFields
// replaced. On any failure (transport after retry, unparsable output) the
// original result is returned unchanged together with ErrRefinementFailure,
// which callers treat as a non-fatal annotation.
func (r *Refiner) Refine(ctx context.Context, res Result, sch schema.ExtractionSchema) (Result, error) {
	if !sch.NeedsRefinement || len(sch.RefineFields) == 0 {
		return res, nil
	}

	prompt := buildRefinePrompt(res, sch)

	out, err := r.completer.Complete(ctx, prompt)
	if err != nil && common.Retryable(err) && ctx.Err() == nil {
		r.log.Warn("refine.transient_retry", "error", err, "backoff", r.cfg.RetryBackoff)
		r.sleep(r.cfg.RetryBackoff)
		out, err = r.completer.Complete(ctx, prompt)
	}
	if err != nil {
		r.log.Error("refine.call_failed", "type", sch.DocumentType, "error", err)
		return res, common.WrapError(common.ErrRefinementFailure, err.Error())
	}

	parsed, perr := llm.ParseObject(out)
	if perr != nil {
		r.log.Error("refine.parse_failed", "type", sch.DocumentType, "raw_len", len(out))
		return res, common.WrapError(common.ErrRefinementFailure, "unparsable refinement output")
	}

	// Replace only the designated fields, and only with usable values.
	refined := res
	refined.Fields = make(map[string]any, len(res.Fields))
	for k, v := range res.Fields {
		refined.Fields[k] = v
	}
	changed := 0
	for _, f := range sch.RefineFields {
		v, ok := parsed[f]
		if !ok || v == nil {
			continue
		}
		s := normalizeIdentityValue(v)
		if s == "" {
			continue
		}
		if refined.Fields[f] != any(s) {
			changed++
		}
		refined.Fields[f] = s
	}

	r.log.Info("refine.ok", "type", sch.DocumentType, "fields_changed", changed)
	return refined, nil
}

var reLicenseChars = regexp.MustCompile(`[^A-Z0-9]`)

// normalizeIdentityValue coerces a refined value to the identity-document
// character set: uppercase alphanumerics only.
func normalizeIdentityValue(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strings.TrimSuffix(fmt.Sprintf("%.0f", t), ".")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		s = string(b)
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	return reLicenseChars.ReplaceAllString(s, "")
}

func buildRefinePrompt(res Result, sch schema.ExtractionSchema) string {
	current := make(map[string]any, len(sch.RefineFields))
	for _, f := range sch.RefineFields {
		current[f] = res.Fields[f]
	}
	b, _ := json.MarshalIndent(current, "", "  ")

	var sb strings.Builder
	sb.WriteString("You are a precision data normalizer for identification documents.\n\n")
	sb.WriteString("These values were extracted by OCR from a U.S. driver's license and may carry OCR artifacts:\n")
	sb.Write(b)
	sb.WriteString("\n\nNormalize each value:\n")
	sb.WriteString("- Remove OCR noise such as stray dashes, dots, and spaces inside identifiers.\n")
	sb.WriteString("- Remove prefixes like ID, DL, or LIC unless clearly part of the identifier.\n")
	sb.WriteString("- Keep real identifiers like \"S1234567\" or \"WDL123456\" intact.\n")
	sb.WriteString("- Uppercase letters and digits only.\n")
	sb.WriteString("\nReturn ONLY a JSON object with exactly these keys and the normalized values.\n")
	return sb.String()
}
