package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jmartell/docintel/constants"
	"github.com/jmartell/docintel/internal/classify"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/extract"
	"github.com/jmartell/docintel/internal/ocr"
	"github.com/jmartell/docintel/internal/schema"
)

// Controller sequences documents through OCR, classification, extraction,
// and conditional refinement. Failure isolation is per-document: one bad
// file never aborts the batch, and every input yields exactly one record.
type Controller struct {
	recognizer   ocr.Recognizer
	classifier   *classify.Classifier
	orchestrator *extract.Orchestrator
	refiner      *extract.Refiner
	workers      int
	log          *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithWorkers enables concurrent processing across documents with a bounded
// pool. Each document's internal steps still run in state-machine order, and
// the summary keeps input order; only completion order may differ.
func WithWorkers(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.workers = n
		}
	}
}

func NewController(
	recognizer ocr.Recognizer,
	classifier *classify.Classifier,
	orchestrator *extract.Orchestrator,
	refiner *extract.Refiner,
	logger *slog.Logger,
	opts ...Option,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		recognizer:   recognizer,
		classifier:   classifier,
		orchestrator: orchestrator,
		refiner:      refiner,
		workers:      1,
		log:          logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run processes documents in input order and returns the finalized summary.
// The only propagated failure is a structurally invalid batch (empty input);
// individual document failures are carried in their records. A cancelled ctx
// stops the run between documents, never mid-document, and the remaining
// documents get CANCELLED records.
func (c *Controller) Run(ctx context.Context, docs []RawDocument, onProgress ProgressFunc) (RunSummary, error) {
	if len(docs) == 0 {
		return RunSummary{}, errors.New("empty batch: at least one document is required")
	}
	if onProgress == nil {
		onProgress = func(int, int, string) {}
	}

	summary := RunSummary{
		RunID:     uuid.New(),
		Records:   make([]ProcessingRecord, len(docs)),
		StartedAt: time.Now().UTC(),
		Events:    NewEventLog(),
	}

	c.log.Info("pipeline.run.start", "run_id", summary.RunID, "documents", len(docs), "workers", c.workers)

	if c.workers > 1 {
		c.runConcurrent(ctx, docs, &summary, onProgress)
	} else {
		c.runSequential(ctx, docs, &summary, onProgress)
	}

	summary.FinishedAt = time.Now().UTC()
	ok, failed, cancelled := summary.Counts()
	c.log.Info("pipeline.run.done",
		"run_id", summary.RunID,
		"succeeded", ok,
		"failed", failed,
		"cancelled", cancelled,
		"elapsed_ms", summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	)
	return summary, nil
}

func (c *Controller) runSequential(ctx context.Context, docs []RawDocument, summary *RunSummary, onProgress ProgressFunc) {
	total := len(docs)
	for i, doc := range docs {
		if ctx.Err() != nil {
			summary.Records[i] = c.cancelledRecord(doc, summary.Events)
		} else {
			summary.Records[i] = c.processOne(ctx, doc, summary.Events)
		}
		onProgress(i, total, doc.Filename)
	}
}

func (c *Controller) runConcurrent(ctx context.Context, docs []RawDocument, summary *RunSummary, onProgress ProgressFunc) {
	total := len(docs)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, doc := range docs {
		g.Go(func() error {
			var rec ProcessingRecord
			if gctx.Err() != nil {
				rec = c.cancelledRecord(doc, summary.Events)
			} else {
				rec = c.processOne(gctx, doc, summary.Events)
			}
			mu.Lock()
			summary.Records[i] = rec
			onProgress(i, total, doc.Filename)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in records
}

// processOne walks a single document through the state machine. Any step's
// failure short-circuits to a FAILED record; refinement failure only
// annotates.
func (c *Controller) processOne(ctx context.Context, doc RawDocument, events *EventLog) ProcessingRecord {
	rec := ProcessingRecord{
		Filename:  doc.Filename,
		StartedAt: time.Now().UTC(),
	}
	events.Append(doc.Filename, constants.StageUploaded, fmt.Sprintf("%d bytes", len(doc.Bytes)))

	ext := filepath.Ext(doc.Filename)
	if constants.MapExtToFormat(ext) == "" {
		return c.failed(rec, events, common.WrapError(common.ErrUnsupportedFormat, "extension "+ext))
	}

	ocrRes, err := c.recognizer.Recognize(ctx, ocr.Input{
		Filename: doc.Filename,
		Bytes:    doc.Bytes,
		MIMEType: constants.MIMEForExt(ext),
	})
	if err != nil {
		return c.failed(rec, events, err)
	}
	rec.OCRText = ocrRes.Text
	events.Append(doc.Filename, constants.StageOCRDone,
		fmt.Sprintf("confidence=%.4f pages=%d", ocrRes.OverallConfidence, ocrRes.Pages))

	docType, score := c.classifier.Classify(doc.Filename, ocrRes.Text)
	rec.DetectedType = docType
	rec.TypeScore = score
	events.Append(doc.Filename, constants.StageTypeDetected,
		fmt.Sprintf("%s score=%.2f", docType, score))

	sch := schema.ForType(docType)

	res, err := c.orchestrator.Extract(ctx, ocrRes, sch)
	if err != nil {
		// best-effort result (all-null fields) still rides on the record
		if res.Fields != nil {
			rec.Result = &res
		}
		return c.failed(rec, events, err)
	}
	rec.Result = &res
	events.Append(doc.Filename, constants.StageExtracted,
		fmt.Sprintf("fields=%d confidence=%.4f", len(res.Fields), res.ConfidenceScore))

	if sch.NeedsRefinement {
		refined, rerr := c.refiner.Refine(ctx, res, sch)
		if rerr != nil {
			// non-fatal: keep pre-refinement values, annotate the record
			rec.Annotations = append(rec.Annotations, common.KindRefinementFailure)
			events.Append(doc.Filename, constants.StageRefined, "failed, keeping extracted values")
		} else {
			rec.Result = &refined
			events.Append(doc.Filename, constants.StageRefined, "ok")
		}
	} else {
		events.Append(doc.Filename, constants.StageSkipRefine, "")
	}

	rec.Status = constants.StatusSuccess
	rec.FinishedAt = time.Now().UTC()
	events.Append(doc.Filename, constants.StageRecorded, string(constants.StatusSuccess))
	c.log.Info("pipeline.document.ok", "filename", doc.Filename, "type", rec.DetectedType)
	return rec
}

func (c *Controller) failed(rec ProcessingRecord, events *EventLog, err error) ProcessingRecord {
	rec.Status = constants.StatusFailed
	rec.ErrorKind = common.KindOf(err)
	rec.ErrorDetail = err.Error()
	rec.FinishedAt = time.Now().UTC()
	events.Append(rec.Filename, constants.StageRecorded,
		fmt.Sprintf("%s (%s)", constants.StatusFailed, rec.ErrorKind))
	c.log.Error("pipeline.document.failed", "filename", rec.Filename, "kind", rec.ErrorKind, "error", err)
	return rec
}

func (c *Controller) cancelledRecord(doc RawDocument, events *EventLog) ProcessingRecord {
	now := time.Now().UTC()
	events.Append(doc.Filename, constants.StageRecorded, string(constants.StatusCancelled))
	return ProcessingRecord{
		Filename:    doc.Filename,
		Status:      constants.StatusCancelled,
		ErrorKind:   common.KindCancelled,
		ErrorDetail: "run aborted before this document started",
		StartedAt:   now,
		FinishedAt:  now,
	}
}
