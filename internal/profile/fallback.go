package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Helpers for reading the loosely typed structured_data bag and for light
// parsing of free-text content when a structured field is absent. Model
// output shape drifts per item type, so every read is defensive.

// strField reads a string-ish value from the bag. Numbers are formatted
// rather than dropped because models frequently return "500" as 500.
func strField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := data[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return trimFloat(t)
		case int:
			return strconv.Itoa(t)
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

// numField reads a numeric value, accepting JSON numbers and numeric strings.
func numField(data map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := data[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case int:
			return float64(t), true
		case string:
			if n, ok := parseAmount(t); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// intField reads an integer, truncating JSON floats.
func intField(data map[string]any, keys ...string) (int, bool) {
	n, ok := numField(data, keys...)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// strList reads a list of strings, tolerating mixed []any payloads.
func strList(data map[string]any, keys ...string) []string {
	for _, key := range keys {
		v, ok := data[key]
		if !ok {
			continue
		}
		raw, ok := v.([]any)
		if !ok {
			continue
		}
		var out []string
		for _, el := range raw {
			if s, ok := el.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// splitLabel splits "Maria Lopez: Head of Support" style content on the
// first colon. With no colon the whole string is the label.
func splitLabel(content string) (label, rest string) {
	if i := strings.Index(content, ":"); i >= 0 {
		return strings.TrimSpace(content[:i]), strings.TrimSpace(content[i+1:])
	}
	return strings.TrimSpace(content), ""
}

var bulletSplitter = regexp.MustCompile(`\s*(?:•|·|\n-\s|\n\*\s|;)\s*`)

// splitBullets splits multi-value free text on common bullet separators.
// Single-value content comes back as a one-element slice.
func splitBullets(content string) []string {
	parts := bulletSplitter.Split(content, -1)
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "- "))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var percentRe = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)

// extractPercent pulls the first percentage token out of free text.
func extractPercent(content string) string {
	return strings.ReplaceAll(percentRe.FindString(content), " ", "")
}

var amountRe = regexp.MustCompile(`(?:[€$£]\s*)?(\d+(?:[.,]\d+)?)`)

// parseAmount extracts the leading numeric token from free text, optionally
// currency-prefixed. A comma decimal separator is normalised to a dot.
func parseAmount(content string) (float64, bool) {
	m := amountRe.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%g", f)
}
