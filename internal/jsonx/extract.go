// Package jsonx recovers JSON values from free-form LLM text responses and
// validates them against caller-supplied schemas. Models are asked for bare
// JSON but routinely wrap it in markdown fences or prose; this package is the
// single place that mess is dealt with.
package jsonx

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ExtractJSON recovers a JSON value from an LLM text response.
//
// Preference order: a fenced code block (with or without a language label),
// then the first balanced top-level object or array literal in the raw text.
// Returns nil when nothing parses; malformed input never produces an error.
func ExtractJSON(response string) any {
	if block, ok := fencedBlock(response); ok {
		if v, ok := tryParse(block); ok {
			return v
		}
	}
	if literal, ok := firstBalancedLiteral(response); ok {
		if v, ok := tryParse(literal); ok {
			return v
		}
	}
	return nil
}

// Result is the two-stage outcome of extraction plus validation. The split
// matters operationally: "no JSON at all" is retried with a reformatted
// prompt, while "JSON that violates the contract" goes to human review.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExtractAndValidateJSON extracts a JSON value and validates it against a
// JSON Schema document. Validation failures enumerate every violated field.
func ExtractAndValidateJSON(response, schemaJSON string) Result {
	v := ExtractJSON(response)
	if v == nil {
		return Result{Success: false, Error: "Failed to extract JSON from response"}
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(v),
	)
	if err != nil {
		return Result{Success: false, Error: "JSON validation failed: " + err.Error()}
	}
	if !res.Valid() {
		details := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			details = append(details, e.String())
		}
		return Result{Success: false, Error: "JSON validation failed: " + strings.Join(details, "; ")}
	}

	return Result{Success: true, Data: v}
}

func tryParse(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// fencedBlock returns the interior of the first markdown code fence.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]

	// Skip an optional language label on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		label := strings.TrimSpace(rest[:nl])
		if label == "" || isFenceLabel(label) {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func isFenceLabel(label string) bool {
	for _, r := range label {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// firstBalancedLiteral scans for the first '{' or '[' and returns the
// substring up to its balancing close, tracking strings and escapes so
// braces inside string values do not confuse the depth count.
func firstBalancedLiteral(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
