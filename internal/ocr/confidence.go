package ocr

import (
	"math"
	"regexp"
	"strings"
)

// Overall averages word-level confidences into a single score, rounded to
// four decimals. An empty word list yields 0.
func Overall(words []WordConfidence) float32 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += float64(w.Score)
	}
	avg := sum / float64(len(words))
	return Clamp01(float32(math.Round(avg*10000) / 10000))
}

// Clamp01 forces a score into [0,1].
func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	reDateish    = regexp.MustCompile(`\b(19|20)\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	reIDish      = regexp.MustCompile(`\b[A-Z]\d{6,}\b|\b\d{6,}\b`)
	reAddressish = regexp.MustCompile(`\b(street|st\.|ave|avenue|road|rd\.|blvd|drive|dr\.)\b`)
)

// heuristicConfidence scores text extracted without a word-level confidence
// source (e.g. a PDF text layer). Signals common to scanned paperwork each
// add a fixed increment over a small base.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if reDateish.MatchString(txtL) {
		score += 0.2
	}
	if reIDish.MatchString(txt) {
		score += 0.2
	}
	if reAddressish.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.15
	}
	return Clamp01(score)
}
