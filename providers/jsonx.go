package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	moderation "github.com/heibot/moderation"
)

// ExtractJSON pulls the JSON object out of a generative model reply.
// Models often wrap the object in prose or markdown code fences, so the
// fences are stripped and the text between the first '{' and the last
// '}' is returned.
func ExtractJSON(raw string) (string, bool) {
	text := stripFences(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// DecodeJSON extracts the JSON object from raw and unmarshals it into v.
// Any failure wraps ErrMalformedResponse.
func DecodeJSON(raw string, v any) error {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return fmt.Errorf("%w: no JSON object in reply", moderation.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", moderation.ErrMalformedResponse, err)
	}
	return nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.Contains(text, "```") {
		return text
	}
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}
