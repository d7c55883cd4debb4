package common

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the stable failure code carried on a ProcessingRecord.
type ErrorKind string

const (
	KindUnsupportedFormat      ErrorKind = "UNSUPPORTED_FORMAT"
	KindOCRServiceError        ErrorKind = "OCR_SERVICE_ERROR"
	KindOCRTimeout             ErrorKind = "OCR_TIMEOUT"
	KindExtractionParseFailure ErrorKind = "EXTRACTION_PARSE_FAILURE"
	KindRefinementFailure      ErrorKind = "REFINEMENT_FAILURE"
	KindRateLimited            ErrorKind = "RATE_LIMITED"
	KindTimeout                ErrorKind = "TIMEOUT"
	KindCancelled              ErrorKind = "CANCELLED"
	KindInternal               ErrorKind = "INTERNAL"
)

// Sentinel errors for the pipeline taxonomy. Adapters wrap these so the
// controller can classify failures without knowing the provider.
var (
	ErrUnsupportedFormat      = errors.New("unsupported document format")
	ErrOCRServiceError        = errors.New("ocr service error")
	ErrOCRTimeout             = errors.New("ocr timeout")
	ErrExtractionParseFailure = errors.New("extraction output could not be parsed")
	ErrRefinementFailure      = errors.New("refinement failed")
	ErrRateLimited            = errors.New("rate limited")
	ErrTimeout                = errors.New("timeout")
	ErrCancelled              = errors.New("cancelled")
)

// KindOf maps an error to its taxonomy code. Unrecognized errors fall back to
// KindInternal so every failed record still carries a stable code.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrOCRTimeout):
		return KindOCRTimeout
	case errors.Is(err, ErrOCRServiceError):
		return KindOCRServiceError
	case errors.Is(err, ErrExtractionParseFailure):
		return KindExtractionParseFailure
	case errors.Is(err, ErrRefinementFailure):
		return KindRefinementFailure
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindInternal
	}
}

// Retryable reports whether an adapter error is transient and worth one
// backoff retry. Only rate limits and timeouts qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// WrapError annotates err without losing its taxonomy classification.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
