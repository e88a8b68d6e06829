package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"notes-quiz/internal/domain"
)

// ExtractJSONObject pulls the JSON object out of model output that may carry
// <think> blocks, markdown fences or surrounding prose. The object spans
// from the first '{' to the last '}'.
func ExtractJSONObject(raw string) (json.RawMessage, error) {
	cleaned := stripThinking(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrNoUsableOutput)
	}

	candidate := cleaned[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: malformed JSON object in response", domain.ErrNoUsableOutput)
	}
	return json.RawMessage(candidate), nil
}

func stripThinking(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			return s[:start]
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
}
