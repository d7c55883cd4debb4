package common

import (
	"context"
	"errors"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"unsupported format", ErrUnsupportedFormat, KindUnsupportedFormat},
		{"ocr service", WrapError(ErrOCRServiceError, "analyze"), KindOCRServiceError},
		{"ocr timeout", ErrOCRTimeout, KindOCRTimeout},
		{"parse failure", WrapError(ErrExtractionParseFailure, "bad json"), KindExtractionParseFailure},
		{"refinement", ErrRefinementFailure, KindRefinementFailure},
		{"rate limited", ErrRateLimited, KindRateLimited},
		{"timeout", ErrTimeout, KindTimeout},
		{"context deadline", context.DeadlineExceeded, KindTimeout},
		{"cancelled", context.Canceled, KindCancelled},
		{"unknown", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrRateLimited, true},
		{WrapError(ErrRateLimited, "429"), true},
		{ErrTimeout, true},
		{context.DeadlineExceeded, true},
		{ErrOCRServiceError, false},
		{ErrExtractionParseFailure, false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWrapErrorKeepsClassification(t *testing.T) {
	wrapped := WrapError(WrapError(ErrOCRTimeout, "poll"), "document scan1.jpg")
	if !errors.Is(wrapped, ErrOCRTimeout) {
		t.Fatal("wrapping lost the sentinel")
	}
	if KindOf(wrapped) != KindOCRTimeout {
		t.Fatalf("KindOf() = %s", KindOf(wrapped))
	}
	if WrapError(nil, "x") != nil {
		t.Fatal("WrapError(nil) must be nil")
	}
}
