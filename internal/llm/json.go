package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/resemantic/resemantic/internal/domain"
)

// StripFences removes surrounding whitespace and a single layer of
// markdown code-fence markers (```json or ```) from a model response.
// The result is byte-identical to the un-fenced form.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}

// DecodeObject parses a model response expected to be a JSON object,
// recovering from fencing and whitespace. Parse failures surface as
// domain.ErrLLMOutput carrying the raw text.
func DecodeObject[T any](raw string) (*T, error) {
	cleaned := StripFences(raw)

	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", domain.ErrLLMOutput, err, truncate(raw, 200))
	}
	return &out, nil
}

// DecodeArray parses a model response expected to be a JSON array.
func DecodeArray[T any](raw string) ([]T, error) {
	cleaned := StripFences(raw)

	var out []T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", domain.ErrLLMOutput, err, truncate(raw, 200))
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
