package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object found in planner output")

var fencePattern = regexp.MustCompile("(?s)```(\\w*)\\s*\\n(.+?)\\n?```")

// ExtractJSON returns the first JSON object in s. A fenced ```json block
// wins; otherwise the first balanced {...} in the text is used.
func ExtractJSON(s string) (string, error) {
	for _, m := range fencePattern.FindAllStringSubmatch(s, -1) {
		lang, body := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		if lang != "" && lang != "json" {
			continue
		}
		if strings.HasPrefix(body, "{") && json.Valid([]byte(body)) {
			return body, nil
		}
	}

	for start := strings.Index(s, "{"); start >= 0; {
		if obj := matchBraces(s[start:]); obj != "" && json.Valid([]byte(obj)) {
			return obj, nil
		}
		next := strings.Index(s[start+1:], "{")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

// matchBraces returns the prefix of s up to the brace closing s[0], skipping
// braces inside strings.
func matchBraces(s string) string {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
