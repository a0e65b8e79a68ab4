package extract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Normalize parses free-form model output into an ordered row sequence.
// It tolerates clean {"rows":[...]} objects, bare arrays, code-fenced
// output, and JSON embedded in surrounding prose. Anything unparsable
// degrades to an empty sequence; Normalize never panics and never returns
// an error. Non-mapping array elements are dropped, order is preserved.
func Normalize(rawModelText string) []Row {
	rows, _ := parseRows(rawModelText)
	if rows == nil {
		// Degraded results must still serialize as an empty JSON array.
		rows = []Row{}
	}
	return rows
}

// parseRows keeps the parsed/unparsable distinction explicit: ok is false
// when no strategy identified a row shape.
func parseRows(text string) ([]Row, bool) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil, false
	}

	if rows, ok := decodeRows(cleaned); ok {
		return rows, true
	}

	// Direct parse failed: try the region between the first opening and
	// the last closing bracket, which handles JSON embedded in prose.
	if candidate := jsonCandidate(cleaned); candidate != "" && candidate != cleaned {
		if rows, ok := decodeRows(candidate); ok {
			return rows, true
		}
	}

	return nil, false
}

// decodeRows parses s as JSON and extracts the row sequence: the `rows`
// array of an object, or the whole payload when it is a bare array.
func decodeRows(s string) ([]Row, bool) {
	var payload any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, false
	}

	switch v := payload.(type) {
	case map[string]any:
		raw, ok := v["rows"].([]any)
		if !ok {
			return nil, false
		}
		return coerceRows(raw), true
	case []any:
		return coerceRows(v), true
	default:
		return nil, false
	}
}

// coerceRows converts array elements to rows, dropping non-mappings.
func coerceRows(items []any) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		row := make(Row, len(m))
		for k, v := range m {
			row[k] = stringify(v)
		}
		rows = append(rows, row)
	}
	return rows
}

// stringify renders a decoded JSON value as a string, best effort.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// stripFences removes markdown code fences (with or without a language
// tag) and stray backtick wrapping, then trims whitespace.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return strings.TrimSpace(strings.Trim(trimmed, "`"))
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return strings.TrimSpace(strings.Trim(trimmed, "`"))
	}

	// Drop the opening fence line (which may carry a language tag) and
	// the trailing fence if present.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// jsonCandidate returns the region between the first opening bracket and
// the last closing bracket, or "" when no such region exists.
func jsonCandidate(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	end := strings.LastIndexAny(text, "}]")
	if end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
