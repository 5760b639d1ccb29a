package engine

import (
	"regexp"
	"strings"
)

var reCodeFence = regexp.MustCompile("(?s)^\\s*```(?:json|JSON)?\\s*(.*?)\\s*```\\s*$")

// StripCodeFences removes a single surrounding markdown code fence.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := reCodeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ExtractJSON returns the most plausible JSON object embedded in model text:
// the fenced body if present, else the span from the first '{' to the last
// '}'. It returns "" when no braces are found.
func ExtractJSON(s string) string {
	s = StripCodeFences(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
