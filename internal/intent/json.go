package intent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON pulls the JSON object out of a model response. It tries, in
// order: the whole response as strict JSON, a markdown-fenced block, and
// finally the outermost balanced brace pair. Ambiguous or brace-less
// responses fail hard instead of guessing.
func extractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	if m := fencedJSONRe.FindStringSubmatch(trimmed); m != nil {
		return m[1], nil
	}

	if obj, ok := outermostObject(trimmed); ok {
		return obj, nil
	}

	return "", fmt.Errorf("no JSON object in response")
}

// outermostObject scans for the first balanced top-level brace pair,
// honoring string literals and escapes.
func outermostObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
