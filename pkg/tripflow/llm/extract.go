package llm

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
)

// ErrNoJSON indicates no JSON object or array could be carved out of a
// model reply.
var ErrNoJSON = errors.New("no JSON payload found")

// ExtractJSON carves a JSON object or array out of a model reply.
// Handles fenced code blocks and stray prose around the payload by
// locating the first balanced brace or bracket span. The span is
// verified to be valid JSON before it is returned.
func ExtractJSON(text string) (json.RawMessage, error) {
	cleaned := stripFences(strings.TrimSpace(text))

	if json.Valid([]byte(cleaned)) && cleaned != "" {
		return json.RawMessage(cleaned), nil
	}

	span := balancedSpan(cleaned)
	if span == "" {
		return nil, ErrNoJSON
	}
	if !json.Valid([]byte(span)) {
		return nil, ErrNoJSON
	}
	return json.RawMessage(span), nil
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	rest := text[3:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[idx+1:]
	}
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}

// balancedSpan returns the first balanced {...} or [...] span in text,
// tracking string literals so braces inside them don't count.
func balancedSpan(text string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			open = text[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// DecodeList unmarshals a JSON array into typed items, skipping (not
// failing on) items that don't decode or don't satisfy valid. Skips
// are logged so degraded agent output is visible.
func DecodeList[T any](data json.RawMessage, valid func(T) bool, logger *slog.Logger) ([]T, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			if logger != nil {
				logger.Warn("skipping undecodable item",
					slog.Int("index", i),
					slog.String("error", err.Error()))
			}
			continue
		}
		if valid != nil && !valid(item) {
			if logger != nil {
				logger.Warn("skipping invalid item", slog.Int("index", i))
			}
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
