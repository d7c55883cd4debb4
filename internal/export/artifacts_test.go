package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jmartell/docintel/constants"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/extract"
	"github.com/jmartell/docintel/internal/pipeline"
)

func testSummary() pipeline.RunSummary {
	finished := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	return pipeline.RunSummary{
		RunID: uuid.New(),
		Records: []pipeline.ProcessingRecord{
			{
				Filename:     "dl_front.jpg",
				Status:       constants.StatusSuccess,
				DetectedType: constants.DriverLicenseFront,
				TypeScore:    0.75,
				OCRText:      "DRIVER LICENSE",
				Result: &extract.Result{
					DocumentType:    constants.DriverLicenseFront,
					Fields:          map[string]any{"FullName": "JANE DOE", "LicenseNumber": "D123456", "DateOfBirth": nil},
					ConfidenceScore: 0.91,
				},
				FinishedAt: finished,
			},
			{
				Filename:    "bad.pdf",
				Status:      constants.StatusFailed,
				ErrorKind:   common.KindOCRServiceError,
				ErrorDetail: "analyze failed",
				FinishedAt:  finished,
			},
		},
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		Events:     pipeline.NewEventLog(),
	}
}

func TestArtifactName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"dl_front.jpg", "dl_front.json"},
		{"nested/dir/scan.pdf", "scan.json"},
		{"noext", "noext.json"},
	}
	for _, tt := range tests {
		if got := ArtifactName(tt.in); got != tt.want {
			t.Errorf("ArtifactName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocumentJSONShape(t *testing.T) {
	svc := NewService(nil)
	b, err := svc.DocumentJSON(testSummary().Records[0])
	if err != nil {
		t.Fatalf("DocumentJSON() error: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}

	if out["DocumentType"] != "DriverLicenseFront" {
		t.Errorf("DocumentType = %v", out["DocumentType"])
	}
	if out["ConfidenceScore"] != 0.91 {
		t.Errorf("ConfidenceScore = %v", out["ConfidenceScore"])
	}
	if out["FullName"] != "JANE DOE" {
		t.Errorf("fields must sit at the top level, FullName = %v", out["FullName"])
	}
	if v, present := out["DateOfBirth"]; !present || v != nil {
		t.Errorf("null field must be emitted as null, got (%v, %v)", v, present)
	}
	raw, ok := out["RawData"].(map[string]any)
	if !ok {
		t.Fatalf("RawData has shape %T", out["RawData"])
	}
	if raw["text"] != "DRIVER LICENSE" || raw["filename"] != "dl_front.jpg" {
		t.Errorf("RawData = %v", raw)
	}
	if out["ProcessedDate"] != "2026-03-14 10:30:00" {
		t.Errorf("ProcessedDate = %v", out["ProcessedDate"])
	}
}

func TestDocumentJSONRequiresResult(t *testing.T) {
	svc := NewService(nil)
	if _, err := svc.DocumentJSON(pipeline.ProcessingRecord{Filename: "x.pdf"}); err == nil {
		t.Fatal("expected error for a record without a result")
	}
}

func TestSummaryJSON(t *testing.T) {
	svc := NewService(nil)
	b, err := svc.SummaryJSON(testSummary())
	if err != nil {
		t.Fatalf("SummaryJSON() error: %v", err)
	}

	var rows []SummaryRow
	if err := json.Unmarshal(b, &rows); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Status != "success" || rows[0].JSONFile != "dl_front.json" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Status != "failed" || rows[1].Error == "" || rows[1].JSONFile != "" {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(nil)
	summary := testSummary()
	summary.Events.Append("dl_front.jpg", constants.StageRecorded, "SUCCESS")

	summaryPath, err := svc.WriteAll(dir, summary)
	if err != nil {
		t.Fatalf("WriteAll() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "dl_front.json")); err != nil {
		t.Errorf("missing per-document artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.json")); err == nil {
		t.Error("failed documents must not produce artifacts")
	}
	if !strings.HasPrefix(filepath.Base(summaryPath), "Document_Summary_") {
		t.Errorf("summary path = %s", summaryPath)
	}

	logs, err := filepath.Glob(filepath.Join(dir, "Document_Logs_*.txt"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one log artifact, got %v (%v)", logs, err)
	}
	content, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(content), "dl_front.jpg") {
		t.Errorf("log content = %q", content)
	}
}

func TestSummaryXLSX(t *testing.T) {
	svc := NewService(nil)
	b, err := svc.SummaryXLSX(testSummary())
	if err != nil {
		t.Fatalf("SummaryXLSX() error: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("empty workbook")
	}
	// XLSX is a zip container
	if b[0] != 'P' || b[1] != 'K' {
		t.Fatalf("workbook does not start with a zip signature: % x", b[:4])
	}
}
