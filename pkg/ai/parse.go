package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost value delimited by open/close.
func extractJSON(text string, open, close byte) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

func decodeObject(text string, v interface{}) error {
	if err := json.Unmarshal([]byte(extractJSON(text, '{', '}')), v); err != nil {
		return fmt.Errorf("malformed model response: %w", err)
	}
	return nil
}
