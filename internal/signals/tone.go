package signals

import (
	"regexp"
	"strings"

	"github.com/kalambet/huddle/internal/standup"
)

// ToneRule assigns Tone when Pattern matches the combined standup text.
type ToneRule struct {
	Tone    string
	Pattern *regexp.Regexp
}

// DefaultToneRules is the tone priority table; the first match wins and
// neutral is the fallback.
var DefaultToneRules = []ToneRule{
	{Tone: standup.ToneFrustrated, Pattern: regexp.MustCompile(`blocked|waiting|stuck|delay|urgent|panic`)},
	{Tone: standup.ToneOverwhelmed, Pattern: regexp.MustCompile(`overwhelm|too many|many things|context switch`)},
	{Tone: standup.TonePositive, Pattern: regexp.MustCompile(`done|shipped|landed|working well|happy|excited|great`)},
}

var (
	reBlockerLanguage = regexp.MustCompile(`\b(blocked|waiting|stuck|no credentials|credential|whitelist|429|rate limit)\b`)
	reHardBlocker     = regexp.MustCompile(`\b(blocked|waiting|stuck|no credentials|credential|whitelist)\b`)
)

// ToneClassifier infers tone from standup text using an ordered rule table.
type ToneClassifier struct {
	rules []ToneRule
}

// NewToneClassifier returns a classifier for rules; nil selects DefaultToneRules.
func NewToneClassifier(rules []ToneRule) *ToneClassifier {
	if rules == nil {
		rules = DefaultToneRules
	}
	return &ToneClassifier{rules: rules}
}

// Infer classifies the combined yesterday, today and blockers text.
func (c *ToneClassifier) Infer(yesterday, today, blockers string) string {
	all := strings.ToLower(yesterday + " " + today + " " + blockers)
	for _, r := range c.rules {
		if r.Pattern.MatchString(all) {
			return r.Tone
		}
	}
	return standup.ToneNeutral
}

var defaultTone = NewToneClassifier(nil)

// InferTone classifies with DefaultToneRules.
func InferTone(yesterday, today, blockers string) string {
	return defaultTone.Infer(yesterday, today, blockers)
}

// AdjustTone tempers tone when the blocker text describes a real blocker:
// positive becomes neutral, and hard waits (credentials, whitelisting,
// being stuck) always read as frustrated.
func AdjustTone(tone, blockers string) string {
	b := strings.ToLower(blockers)
	if !reBlockerLanguage.MatchString(b) {
		return tone
	}
	if reHardBlocker.MatchString(b) {
		return standup.ToneFrustrated
	}
	if tone == standup.TonePositive {
		return standup.ToneNeutral
	}
	return tone
}

// IsBlockerLike reports whether text reads like a blocker statement.
func IsBlockerLike(text string) bool {
	return reBlockerLanguage.MatchString(strings.ToLower(text))
}
