package followup

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suggestion is one follow-up question offered to the user.
type Suggestion struct {
	Question string `json:"question"`
	Why      string `json:"why,omitempty"`
}

type suggestionsPayload struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Parse reads suggestions from a model reply. The reply may wrap the
// JSON object in a code fence or surround it with narrative.
func Parse(text string) ([]Suggestion, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON found in suggestions response")
	}
	var payload suggestionsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// Some models answer with a bare array.
		var list []Suggestion
		if aerr := json.Unmarshal([]byte(raw), &list); aerr != nil {
			return nil, fmt.Errorf("parse suggestions JSON: %w", err)
		}
		payload.Suggestions = list
	}
	return payload.Suggestions, nil
}

// extractJSON finds the first JSON object or array in the text,
// handling markdown code fences and surrounding narrative.
func extractJSON(text string) string {
	// Try to extract from markdown code fence
	if idx := strings.Index(text, "```json"); idx >= 0 {
		start := idx + len("```json")
		if end := strings.Index(text[start:], "```"); end >= 0 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		start := idx + len("```")
		if end := strings.Index(text[start:], "```"); end >= 0 {
			candidate := strings.TrimSpace(text[start : start+end])
			if strings.HasPrefix(candidate, "{") || strings.HasPrefix(candidate, "[") {
				return candidate
			}
		}
	}

	// Fall back to the outermost braces, then brackets.
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		return text[start : end+1]
	}
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		return text[start : end+1]
	}
	return ""
}

// clean trims entries, drops empty and case-insensitive duplicates, and
// keeps at most n.
func clean(in []Suggestion, n int) []Suggestion {
	seen := map[string]bool{}
	var out []Suggestion
	for _, s := range in {
		s.Question = strings.TrimSpace(s.Question)
		s.Why = strings.TrimSpace(s.Why)
		key := strings.ToLower(s.Question)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}
