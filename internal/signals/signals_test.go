package signals

import (
	"slices"
	"strings"
	"testing"

	"github.com/kalambet/huddle/internal/standup"
)

func TestTopics_FiltersAndNormalizes(t *testing.T) {
	got := TopicList("Implemented the Rotate-Code endpoint; wired team_selectors & insights/charts for the API!")
	want := []string{"rotate-code", "endpoint", "wired", "team_selectors", "insights/charts"}
	if !slices.Equal(got, want) {
		t.Errorf("TopicList = %v, want %v", got, want)
	}
}

func TestTopics_Cap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("token")
		sb.WriteByte(byte('a' + i%26))
		sb.WriteByte(byte('a' + i/26))
		sb.WriteByte(' ')
	}
	got := TopicList(sb.String())
	if len(got) != MaxTopics {
		t.Errorf("len = %d, want %d", len(got), MaxTopics)
	}
}

func TestTopics_Restartable(t *testing.T) {
	seq := Topics("payments webhook retries and payments dashboard")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Errorf("second iteration %v differs from first %v", second, first)
	}

	// Early break must not poison later iterations.
	for range seq {
		break
	}
	if third := slices.Collect(seq); !slices.Equal(first, third) {
		t.Errorf("iteration after break = %v, want %v", third, first)
	}
}

func TestTopics_Empty(t *testing.T) {
	if got := TopicList(""); len(got) != 0 {
		t.Errorf("TopicList(\"\") = %v, want empty", got)
	}
	if got := TopicList("the and to of"); len(got) != 0 {
		t.Errorf("stopwords only = %v, want empty", got)
	}
}

func TestMatchBlockers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"direct phrase", "Still waiting on staging DB credentials", []string{"staging db credentials"}},
		{"multiple phrases", "db creds missing; payments 429 again", []string{"db creds", "payments 429"}},
		{"staging db heuristic", "no access to the staging postgres db", []string{"staging db credentials"}},
		{"db before staging", "db for staging not provisioned", []string{"staging db credentials"}},
		{"api access heuristic", "need api key access from partner", []string{"api access whitelist"}},
		{"rate limit", "Sandbox returns 429", []string{"payments 429"}},
		{"flaky heuristic", "flaky e2e tests on CI", []string{"flaky tests"}},
		{"auth heuristic", "auth token middleware broken", []string{"auth/session"}},
		{"none", "nothing blocking", []string{}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchBlockers(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("MatchBlockers(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalBlocker_Priority(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"db creds", BlockerStagingCreds},
		{"staging db user", BlockerStagingCreds},
		{"api access to staging", BlockerAPIAccess},
		{"payments sandbox 429", BlockerPayments429},
		{"rate limit", BlockerPayments429},
		{"auth middleware mismatch", BlockerAuthMismatch},
		{"auth/session", BlockerAuthSession},
		{"flaky tests", BlockerFlakyTests},
		// credentials outrank everything else
		{"staging db down and flaky tests", BlockerStagingCreds},
		// payments outrank auth
		{"429 from auth middleware", BlockerPayments429},
		{"  Vendor Contract Pending ", "vendor contract pending"},
	}
	for _, tt := range tests {
		if got := CanonicalBlocker(tt.in); got != tt.want {
			t.Errorf("CanonicalBlocker(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalBlocker_Idempotent(t *testing.T) {
	inputs := append(slices.Clone(knownPhrases),
		"Waiting on DB creds from ops",
		"API ACCESS whitelist pending",
		"random thing",
		"",
	)
	for _, in := range inputs {
		once := CanonicalBlocker(in)
		if twice := CanonicalBlocker(once); twice != once {
			t.Errorf("CanonicalBlocker not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestCanonicalizer_CustomTable(t *testing.T) {
	c := NewCanonicalizer([]BlockerRule{
		{Label: "vendor", Match: func(s string) bool { return strings.Contains(s, "vendor") }},
	})
	if got := c.Canonical("Vendor API access"); got != "vendor" {
		t.Errorf("Canonical = %q, want vendor", got)
	}
	if got := c.Canonical("db creds"); got != "db creds" {
		t.Errorf("Canonical = %q, want passthrough", got)
	}
}

func TestCanonicalBlockers_Dedupes(t *testing.T) {
	got := CanonicalBlockers("staging db credentials and db creds and staging db user")
	if !slices.Equal(got, []string{BlockerStagingCreds}) {
		t.Errorf("CanonicalBlockers = %v", got)
	}
}

func TestInferTags(t *testing.T) {
	tags := InferTags("Provisioned staging cluster", "Review auth middleware and add grafana dashboard")
	if !tags.DevOps || !tags.Auth || !tags.Metrics {
		t.Errorf("tags = %+v, want devops, auth, metrics", tags)
	}
	if tags.Payments || tags.RotateCode {
		t.Errorf("tags = %+v, unexpected payments/rotateCode", tags)
	}

	tags = InferTags("", "Implement rotate code? no: rotatecode endpoint")
	if !tags.RotateCode {
		t.Error("RotateCode = false for rotatecode")
	}
}

func TestInferTone_Priority(t *testing.T) {
	tests := []struct {
		y, td, b string
		want     string
	}{
		{"shipped the release", "great progress", "blocked on review", standup.ToneFrustrated},
		{"too many meetings", "shipped it", "", standup.ToneOverwhelmed},
		{"landed the PR", "", "", standup.TonePositive},
		{"wrote code", "more code", "", standup.ToneNeutral},
	}
	for _, tt := range tests {
		if got := InferTone(tt.y, tt.td, tt.b); got != tt.want {
			t.Errorf("InferTone(%q,%q,%q) = %q, want %q", tt.y, tt.td, tt.b, got, tt.want)
		}
	}
}

func TestAdjustTone(t *testing.T) {
	tests := []struct {
		tone, blockers, want string
	}{
		{standup.TonePositive, "waiting on staging DB creds", standup.ToneFrustrated},
		{standup.TonePositive, "payments 429", standup.ToneNeutral},
		{standup.ToneOverwhelmed, "rate limit on sandbox", standup.ToneOverwhelmed},
		{standup.TonePositive, "", standup.TonePositive},
		{standup.ToneNeutral, "no credentials for prod", standup.ToneFrustrated},
	}
	for _, tt := range tests {
		if got := AdjustTone(tt.tone, tt.blockers); got != tt.want {
			t.Errorf("AdjustTone(%q, %q) = %q, want %q", tt.tone, tt.blockers, got, tt.want)
		}
	}
}
