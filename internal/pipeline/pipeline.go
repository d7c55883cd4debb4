package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmartell/docintel/constants"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/extract"
)

// RawDocument is one uploaded file. Immutable; owned by the controller for
// the duration of one run.
type RawDocument struct {
	Filename string
	Bytes    []byte
}

// ProcessingRecord is the per-document outcome. Exactly one exists per input
// document, immutable once the pipeline finishes that document.
type ProcessingRecord struct {
	Filename     string
	Status       constants.DocStatus
	DetectedType constants.DocumentType // zero value when OCR failed first
	TypeScore    float32
	Result       *extract.Result // best-effort even on failure, nil if never reached
	OCRText      string
	ErrorKind    common.ErrorKind
	ErrorDetail  string
	// Annotations carry non-fatal problems (RefinementFailure) that do not
	// flip Status away from SUCCESS.
	Annotations []common.ErrorKind
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Failed reports whether the record is terminally failed.
func (r ProcessingRecord) Failed() bool { return r.Status == constants.StatusFailed }

// RunSummary aggregates one batch invocation. Records keep the original
// input order regardless of processing order.
type RunSummary struct {
	RunID      uuid.UUID
	Records    []ProcessingRecord
	StartedAt  time.Time
	FinishedAt time.Time
	Events     *EventLog
}

// Counts returns (succeeded, failed, cancelled).
func (s RunSummary) Counts() (ok, failed, cancelled int) {
	for _, r := range s.Records {
		switch r.Status {
		case constants.StatusSuccess:
			ok++
		case constants.StatusFailed:
			failed++
		case constants.StatusCancelled:
			cancelled++
		}
	}
	return
}

// ProgressFunc observes per-document completion. index is the document's
// position in the input sequence; it is invoked exactly once per document,
// after the document reaches its terminal record.
type ProgressFunc func(index, total int, filename string)
