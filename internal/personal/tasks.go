// Package personal turns a single standup into coaching feedback: key tasks,
// clarity advice, tone and next-step suggestions.
package personal

import (
	"regexp"
	"strings"
	"unicode"
)

// minFragment is the length below which a split fragment is glued to the next.
const minFragment = 8

var (
	reBulletLine  = regexp.MustCompile(`^\s*(?:[-*•]|\d+\.)`)
	reLeadingVerb = regexp.MustCompile(`\b(Add|Implement|Create|Wire|Fix|Refactor|Test|Prepare|Review|Update|Configure|Set up)\b`)
	reBulletMark  = regexp.MustCompile(`^\s*(?:[-*•]+|\d+\.)\s*`)
	reSpaces      = regexp.MustCompile(`\s+`)

	reRotateCode = regexp.MustCompile(`\brotate\s*[- ]?\s*code\b`)
	reJoinByCode = regexp.MustCompile(`\bjoin\s*[- ]?\s*by\s*[- ]?\s*code\b`)
	reEndpoint   = regexp.MustCompile(`\s*endpoint\b`)
	reSynonyms   = regexp.MustCompile(`^(add|create|build)\s+`)
)

var quoteReplacer = strings.NewReplacer("“", `"`, "”", `"`, "’", "'", "\u00a0", " ")

func cleanQuotes(s string) string { return quoteReplacer.Replace(s) }

// normalizeForTasks joins wrapped lines. A newline survives only when the
// next line starts a bullet or a numbered item.
func normalizeForTasks(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r", ""), "\n")
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			if reBulletLine.MatchString(line) {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(line)
	}
	return cleanQuotes(strings.TrimSpace(sb.String()))
}

func collapse(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// splitTasks breaks free text into task fragments. Separators are newlines,
// bullets, dashes used as bullets (– —), semicolons, pipes, runs of two or
// more spaces, and ". " before a capital letter or parenthesis. A capitalized
// action verb also starts a new fragment.
func splitTasks(raw string) []string {
	s := normalizeForTasks(raw)
	if s == "" {
		return nil
	}
	s = reLeadingVerb.ReplaceAllString(s, "• ${1}")

	var parts []string
	for _, p := range segment(s) {
		p = collapse(reBulletMark.ReplaceAllString(p, ""))
		if p != "" {
			parts = append(parts, p)
		}
	}

	merged := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		cur := parts[i]
		if len(cur) < minFragment && i+1 < len(parts) {
			merged = append(merged, cur+" "+parts[i+1])
			i++
			continue
		}
		merged = append(merged, cur)
	}

	seen := make(map[string]bool, len(merged))
	out := make([]string, 0, len(merged))
	for _, m := range merged {
		c := canonical(m)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, m)
	}
	return out
}

// segment cuts s at task separators.
func segment(s string) []string {
	rs := []rune(s)
	var (
		parts []string
		cur   []rune
	)
	flush := func() {
		parts = append(parts, string(cur))
		cur = cur[:0]
	}
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\n' || r == '•' || r == '–' || r == '—' || r == ';' || r == '|':
			flush()
		case r == ' ' && i+1 < len(rs) && rs[i+1] == ' ':
			flush()
			for i+1 < len(rs) && rs[i+1] == ' ' {
				i++
			}
		case r == '.' && i+2 < len(rs) && rs[i+1] == ' ' && (unicode.IsUpper(rs[i+2]) || rs[i+2] == '('):
			flush()
			i++
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return parts
}

// canonical is the dedupe key for tasks and suggestions: case, quotes,
// spacing and the add/create/build synonyms are normalized away.
func canonical(s string) string {
	c := strings.ToLower(s)
	c = strings.NewReplacer("“", "", "”", "", `"`, "", "'", "", "’", "").Replace(c)
	c = reRotateCode.ReplaceAllString(c, "rotate-code")
	c = reJoinByCode.ReplaceAllString(c, "join-by-code")
	c = reEndpoint.ReplaceAllString(c, " endpoint")
	c = collapse(c)
	c = strings.TrimFunc(c, isEdgeNoise)
	return reSynonyms.ReplaceAllString(c, "implement ")
}

// isEdgeNoise reports runes trimmed from both ends of a canonical form.
// Layers like ". , " or "- - " are removed in one pass.
func isEdgeNoise(r rune) bool {
	return (unicode.IsPunct(r) || unicode.IsSpace(r)) && r != '#' && r != '/'
}

// normalizeSuggestion strips a leading bullet and tidies whitespace and quotes.
func normalizeSuggestion(s string) string {
	return collapse(reBulletMark.ReplaceAllString(cleanQuotes(s), ""))
}
