package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in completion")

// ParseJSONObject extracts the first JSON object from a model completion.
// Markdown code fences and surrounding prose are tolerated.
func ParseJSONObject(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
