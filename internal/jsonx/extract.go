// Package jsonx extracts JSON objects from free text, tolerating the prose a
// language model wraps around its structured output.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject means no JSON object could be located in the text.
var ErrNoObject = errors.New("no JSON object found")

// ExtractObject decodes a JSON object from text into v. The contract is
// deliberately lenient: try a direct parse of the trimmed text; when the text
// does not start with '{', fall back to the greedy span from the first '{' to
// the last '}'; otherwise fail. The heuristic mirrors what the structured
// chat flow needs and nothing more.
func ExtractObject(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), v); err != nil {
			return fmt.Errorf("parse object: %w", err)
		}
		return nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err != nil {
		return fmt.Errorf("parse extracted object: %w", err)
	}
	return nil
}
