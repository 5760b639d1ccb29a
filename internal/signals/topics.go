// Package signals extracts deterministic text signals from standup entries:
// topic tokens, canonical blocker labels, capability tags, and tone.
package signals

import (
	"iter"
	"slices"
	"strings"
	"unicode"
)

// MaxTopics bounds the number of tokens Topics yields for a single text.
const MaxTopics = 60

var genericStopwords = setOf(
	"the", "and", "to", "for", "of", "on", "in", "a", "an", "is", "are", "was",
	"were", "with", "by", "this", "that", "it", "as", "at", "from", "my", "our",
	"your", "into", "about", "over", "under", "between", "across", "against",
	"while", "also", "etc",
)

// domainNoise holds words that appear in nearly every standup and carry no
// signal about what someone is actually working on.
var domainNoise = setOf(
	"team", "project", "today", "yesterday", "will", "done", "doing", "added",
	"add", "work", "task", "tasks", "fix", "fixed", "issue", "issues", "setup",
	"set", "get", "make", "made", "update", "updated", "updating", "create",
	"created", "creating", "refactor", "refactored", "implement", "implemented",
	"implementation", "doc", "docs", "documentation", "readme", "file", "folder",
	"code", "repo", "api", "service", "module", "component", "page", "screen",
	"test", "tests", "testing", "unit", "integration", "select", "selector",
	"selectors", "ui", "ux",
)

// Topics returns the topic tokens of text as a lazy sequence. Text is
// lowercased, every rune outside [a-z0-9], whitespace, '-', '_' and '/' is
// treated as a separator, and tokens of two or fewer bytes or on the stop
// lists are skipped. At most MaxTopics tokens are yielded. The sequence can
// be ranged over any number of times.
func Topics(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		cleaned := strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '/':
				return r
			case unicode.IsSpace(r):
				return r
			}
			return ' '
		}, strings.ToLower(text))

		n := 0
		for _, tok := range strings.Fields(cleaned) {
			if n >= MaxTopics {
				return
			}
			if len(tok) <= 2 || IsStopword(tok) {
				continue
			}
			n++
			if !yield(tok) {
				return
			}
		}
	}
}

// TopicList collects Topics(text) into a slice.
func TopicList(text string) []string {
	return slices.Collect(Topics(text))
}

// IsStopword reports whether tok is on the generic or domain stop lists.
func IsStopword(tok string) bool {
	if _, ok := genericStopwords[tok]; ok {
		return true
	}
	_, ok := domainNoise[tok]
	return ok
}

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
