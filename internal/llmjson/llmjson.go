// Package llmjson parses strict-JSON payloads out of generative model
// output, tolerating the wrapping artifacts models commonly emit.
package llmjson

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrResponseFormat indicates the model response could not be parsed as
// JSON even after stripping wrapping artifacts.
var ErrResponseFormat = eris.New("model response is not valid JSON")

// Clean strips markdown code fences and surrounding whitespace from raw
// model output. The JSON payload itself is left untouched.
func Clean(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	return strings.TrimSpace(text)
}

// Unmarshal decodes raw into v in two stages: a strict parse of the text
// as-is, then a parse of the cleaned text. Callers decide whether a
// resulting ErrResponseFormat is fatal or gets folded into a response.
func Unmarshal(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	cleaned := Clean(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return eris.Wrap(ErrResponseFormat, err.Error())
	}
	return nil
}
