package constants

// DocStatus is the terminal status of one document's trip through the pipeline.
type DocStatus string

// Stable values (these exact strings are stored and exported).
const (
	StatusSuccess   DocStatus = "SUCCESS"
	StatusFailed    DocStatus = "FAILED"
	StatusCancelled DocStatus = "CANCELLED" // run aborted before this document started
)

// Stage names the per-document state machine positions. A document moves
// strictly forward; any failure jumps straight to StageRecorded.
type Stage string

const (
	StageUploaded     Stage = "UPLOADED"
	StageOCRDone      Stage = "OCR_DONE"
	StageTypeDetected Stage = "TYPE_DETECTED"
	StageExtracted    Stage = "EXTRACTED"
	StageRefined      Stage = "REFINED"
	StageSkipRefine   Stage = "SKIP_REFINE"
	StageRecorded     Stage = "RECORDED"
)
