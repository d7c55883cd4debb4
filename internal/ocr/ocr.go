package ocr

import (
	"context"
	"time"
)

// WordConfidence pairs a recognized token with its score in [0,1].
type WordConfidence struct {
	Token string  `json:"token"`
	Score float32 `json:"score"`
}

// Input is raw document bytes plus the declared MIME type.
type Input struct {
	Filename string
	Bytes    []byte
	MIMEType string
}

// Result is the output of one OCR pass over a document. It is created once
// per document and never mutated afterwards.
type Result struct {
	Text              string
	OverallConfidence float32
	Words             []WordConfidence
	Pages             int
	Language          string
	Duration          time.Duration
}

// Recognizer turns document bytes into text plus confidence. Implementations
// must be idempotent per input; failures are wrapped into the common error
// taxonomy (ErrUnsupportedFormat, ErrOCRTimeout, ErrOCRServiceError).
type Recognizer interface {
	Recognize(ctx context.Context, in Input) (Result, error)
}
