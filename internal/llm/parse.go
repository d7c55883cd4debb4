package llm

import (
	"encoding/json"
	"strings"

	"github.com/jmartell/docintel/internal/common"
)

// ParseObject parses model output into a flat key→value map, tolerating the
// usual decorations: markdown code fences, leading prose, trailing
// commentary. It tries, in order:
//  1. the raw string as JSON
//  2. the content of the last ``` fence
//  3. the substring between the first '{' and the last '}'
//
// A nil map is never returned alongside a nil error.
func ParseObject(raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, common.WrapError(common.ErrExtractionParseFailure, "empty model output")
	}

	if m, ok := tryDecode(s); ok {
		return m, nil
	}

	if strings.Contains(s, "```") {
		parts := strings.Split(s, "```")
		for i := len(parts) - 1; i >= 0; i-- {
			candidate := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[i]), "json"))
			if m, ok := tryDecode(candidate); ok {
				return m, nil
			}
		}
	}

	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		if m, ok := tryDecode(s[start : end+1]); ok {
			return m, nil
		}
	}

	return nil, common.WrapError(common.ErrExtractionParseFailure, "model output is not a JSON object")
}

func tryDecode(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	if m == nil {
		return nil, false
	}
	return m, true
}
