package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// <think>...</think> preamble emitted by reasoning models
	thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyPattern   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	controlCharPattern   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON extracts a JSON object from model output and unmarshals it into target.
// It accepts bare JSON, JSON inside markdown fences, JSON surrounded by prose,
// a leading <think> block, trailing commas and unquoted keys.
func ParseAIJSON(input string, target any) error {
	input = strings.TrimPrefix(strings.TrimSpace(input), "\ufeff")
	if input == "" {
		return fmt.Errorf("empty input")
	}
	input = thinkTagPattern.ReplaceAllString(input, "")

	for _, candidate := range jsonCandidates(input) {
		if err := json.Unmarshal([]byte(candidate), target); err == nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repairJSON(candidate)), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncateString(input, 100))
}

// jsonCandidates lists substrings worth trying, most specific first
func jsonCandidates(input string) []string {
	candidates := []string{input}
	if m := fencedJSONPattern.FindStringSubmatch(input); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start := strings.IndexByte(input, '{'); start >= 0 {
		if obj := extractBalancedBraces(input[start:], '{', '}'); obj != "" {
			candidates = append(candidates, obj)
		}
	}
	return candidates
}

// extractBalancedBraces returns the first balanced open...close span, ignoring braces inside strings
func extractBalancedBraces(input string, open, close rune) string {
	depth := 0
	inString := false
	escape := false
	start := -1

	for i, ch := range input {
		switch {
		case escape:
			escape = false
		case ch == '\\' && inString:
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			if depth == 0 {
				start = i
			}
			depth++
		case ch == close && depth > 0:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

// repairJSON fixes the mistakes models make most often
func repairJSON(s string) string {
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	s = unquotedKeyPattern.ReplaceAllString(s, `$1"$2"$3`)
	return controlCharPattern.ReplaceAllString(s, "")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
