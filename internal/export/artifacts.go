package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmartell/docintel/internal/pipeline"
)

// Service renders run results into their downloadable artifacts: one JSON per
// document, a run summary, the processing log, and an XLSX workbook.
type Service struct {
	log *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{log: logger}
}

// SummaryRow is one line of the run summary artifact. Keys are part of the
// output contract and stay stable across document types.
type SummaryRow struct {
	Document     string `json:"document"`
	Status       string `json:"status"`
	DetectedType string `json:"detected_type,omitempty"`
	JSONFile     string `json:"json_file,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ArtifactName maps a document filename to its JSON artifact name
// ("dl_front.jpg" → "dl_front.json").
func ArtifactName(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return stem + ".json"
}

// DocumentJSON renders the per-document artifact: DocumentType and
// ConfidenceScore, every schema field at the top level (null included), plus
// raw OCR context and the processing timestamp. The shape is identical for
// every document type.
func (s *Service) DocumentJSON(rec pipeline.ProcessingRecord) ([]byte, error) {
	if rec.Result == nil {
		return nil, fmt.Errorf("record %q has no extraction result", rec.Filename)
	}

	out := make(map[string]any, len(rec.Result.Fields)+4)
	for k, v := range rec.Result.Fields {
		out[k] = v
	}
	out["DocumentType"] = rec.Result.DocumentType
	out["ConfidenceScore"] = rec.Result.ConfidenceScore
	out["RawData"] = map[string]string{
		"text":     rec.OCRText,
		"filename": rec.Filename,
	}
	out["ProcessedDate"] = rec.FinishedAt.Format("2006-01-02 15:04:05")

	return json.MarshalIndent(out, "", "  ")
}

// SummaryJSON renders the per-run summary listing.
func (s *Service) SummaryJSON(summary pipeline.RunSummary) ([]byte, error) {
	rows := make([]SummaryRow, 0, len(summary.Records))
	for _, rec := range summary.Records {
		row := SummaryRow{
			Document:     rec.Filename,
			Status:       strings.ToLower(string(rec.Status)),
			DetectedType: string(rec.DetectedType),
		}
		if rec.ErrorDetail != "" {
			row.Error = rec.ErrorDetail
		}
		if rec.Result != nil && !rec.Failed() {
			row.JSONFile = ArtifactName(rec.Filename)
		}
		rows = append(rows, row)
	}
	return json.MarshalIndent(rows, "", "  ")
}

// WriteAll writes every artifact for a finished run into dir: one JSON per
// successful document, the summary JSON, and the processing log. Returns the
// summary artifact path.
func (s *Service) WriteAll(dir string, summary pipeline.RunSummary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	for _, rec := range summary.Records {
		if rec.Result == nil || rec.Failed() {
			continue
		}
		b, err := s.DocumentJSON(rec)
		if err != nil {
			s.log.Error("export.document_json_failed", "filename", rec.Filename, "error", err)
			continue
		}
		name := ArtifactName(rec.Filename)
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		s.log.Info("export.document_json_ok", "filename", rec.Filename, "artifact", name)
	}

	stamp := summary.FinishedAt.Format("2006-01-02_15-04-05")

	sb, err := s.SummaryJSON(summary)
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	summaryPath := filepath.Join(dir, "Document_Summary_"+stamp+".json")
	if err := os.WriteFile(summaryPath, sb, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	if summary.Events != nil {
		logPath := filepath.Join(dir, "Document_Logs_"+stamp+".txt")
		if err := os.WriteFile(logPath, []byte(summary.Events.Text()), 0o644); err != nil {
			return "", fmt.Errorf("write log: %w", err)
		}
	}

	return summaryPath, nil
}
