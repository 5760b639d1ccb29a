package team

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/signals"
	"github.com/kalambet/huddle/internal/standup"
)

func fixture() []standup.Record {
	return []standup.Record{
		{Author: "Asha", Date: "2024-05-02", Yesterday: "Implemented rotate-code endpoint", Today: "Write jest tests for rotate-code", Blockers: "Waiting on staging DB credentials"},
		{Author: "Ben", Date: "2024-05-02", Yesterday: "Provisioned staging cluster secrets", Today: "Update firewall policy for partner whitelist", Blockers: "none"},
		{Author: "Chen", Date: "2024-05-02", Yesterday: "Built insights charts", Today: "Wire team selectors to insights charts", Blockers: ""},
	}
}

type reply struct {
	text string
	err  error
}

// scriptedEngine answers Chat calls from a fixed script.
type scriptedEngine struct {
	replies []reply
	calls   int
}

func (s *scriptedEngine) Name() string { return "scripted" }

func (s *scriptedEngine) Chat(context.Context, []engine.Message, engine.ChatOptions) (string, error) {
	s.calls++
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func newTestSynth(replies ...reply) (*Synthesizer, *scriptedEngine) {
	e := &scriptedEngine{replies: replies}
	return NewSynthesizer(engine.NewInvoker(e, engine.DefaultChatOptions, 0), nil), e
}

const validOutput = `{
  "teamSummary": "3 standups: rotate-code and insights progressing; staging db credentials blocking.",
  "commonBlockers": ["staging db credentials"],
  "suggestedSyncs": [{"members": ["Chen", "Asha"], "reason": "Overlap on: charts"}],
  "risks": ["1 ppl blocked by creds"]
}`

func hasPair(syncs []standup.SyncPair, a, b, reasonPrefix string) bool {
	for _, s := range syncs {
		if len(s.Members) != 2 {
			continue
		}
		if pairKey(s.Members[0], s.Members[1]) == pairKey(a, b) && strings.HasPrefix(s.Reason, reasonPrefix) {
			return true
		}
	}
	return false
}

func TestSynthesize_UnblockPairFromDevOps(t *testing.T) {
	s, _ := newTestSynth(reply{text: validOutput})
	got, err := s.Synthesize(context.Background(), fixture())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !hasPair(got.SuggestedSyncs, "Asha", "Ben", "Unblock: staging db credentials") {
		t.Errorf("suggestedSyncs = %+v, want Asha/Ben unblock pair", got.SuggestedSyncs)
	}
	if !slices.Equal(got.CommonBlockers, []string{signals.BlockerStagingCreds}) {
		t.Errorf("commonBlockers = %v", got.CommonBlockers)
	}
	if got.BlockerCounts[signals.BlockerStagingCreds] != 1 {
		t.Errorf("blockerCounts = %v", got.BlockerCounts)
	}
	if !slices.Equal(got.Risks, []string{"1 person blocked by creds"}) {
		t.Errorf("risks = %v, want grammar-fixed model risk", got.Risks)
	}
}

func TestSynthesize_RetrySucceeds(t *testing.T) {
	s, e := newTestSynth(reply{err: errors.New("connection reset")}, reply{text: validOutput})
	got, err := s.Synthesize(context.Background(), fixture())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if e.calls != 2 {
		t.Errorf("calls = %d, want 2", e.calls)
	}
	if !strings.HasPrefix(got.TeamSummary, "3 standups") {
		t.Errorf("teamSummary = %q, want the retry's summary", got.TeamSummary)
	}
}

func TestSynthesize_DoubleFailure(t *testing.T) {
	s, _ := newTestSynth(reply{err: errors.New("503")}, reply{err: errors.New("503")})
	_, err := s.Synthesize(context.Background(), fixture())
	if !errors.Is(err, engine.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestSynthesize_EmptyBatchSkipsModel(t *testing.T) {
	s, e := newTestSynth()
	got, err := s.Synthesize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if e.calls != 0 {
		t.Errorf("model called %d times", e.calls)
	}
	if got.TeamSummary != "No standups found for this date." || got.SuggestedSyncs == nil || got.BlockerCounts == nil {
		t.Errorf("got %+v", got)
	}
}

func TestSynthesize_CoercesProse(t *testing.T) {
	s, _ := newTestSynth(reply{text: "Asha should talk to Ben."}, reply{text: "Still prose, sorry."})
	got, err := s.Synthesize(context.Background(), fixture())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.TeamSummary != summaryUnavailable {
		t.Errorf("teamSummary = %q", got.TeamSummary)
	}
	if len(got.SuggestedSyncs) != 1 || got.SuggestedSyncs[0].Reason != reasonCredsFallback {
		t.Errorf("suggestedSyncs = %+v, want credentials fallback", got.SuggestedSyncs)
	}
}

func TestSynthesize_DeterministicRisksOverride(t *testing.T) {
	records := append(fixture(), standup.Record{
		Author: "Dev", Date: "2024-05-02", Yesterday: "Payments webhook", Today: "Payments retries", Blockers: "db creds missing",
	})
	s, _ := newTestSynth(reply{text: validOutput})
	got, err := s.Synthesize(context.Background(), records)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !slices.Equal(got.Risks, []string{"2 people blocked by staging db credentials"}) {
		t.Errorf("risks = %v", got.Risks)
	}
}

func TestSynthesize_Invariants(t *testing.T) {
	s, _ := newTestSynth(reply{text: `{"teamSummary":"x","commonBlockers":[],"suggestedSyncs":[
		{"members":["Asha","Asha"],"reason":"Overlap on: team"},
		{"members":["Ben","Asha"],"reason":"short"},
		{"members":["Asha","Ben"],"reason":"Unblock: staging db credentials for rotate-code tests"},
		{"members":["Chen","Ben"],"reason":"Coordinate on it"},
		{"members":["Chen","Asha"],"reason":"a"},
		{"members":["Dana","Eli"],"reason":"b"},
		{"members":["Fay","Gus"],"reason":"c"}
	],"risks":[]}`})
	got, err := s.Synthesize(context.Background(), fixture())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(got.SuggestedSyncs) > 5 {
		t.Errorf("%d syncs, want at most 5", len(got.SuggestedSyncs))
	}
	seen := map[string]bool{}
	for _, sp := range got.SuggestedSyncs {
		if len(sp.Members) != 2 || sp.Members[0] == sp.Members[1] {
			t.Errorf("bad members %v", sp.Members)
		}
		k := pairKey(sp.Members[0], sp.Members[1])
		if seen[k] {
			t.Errorf("duplicate pair %s", k)
		}
		seen[k] = true
	}
	if !hasPair(got.SuggestedSyncs, "Asha", "Ben", "Unblock: staging db credentials for rotate-code") {
		t.Errorf("longer reason not kept: %+v", got.SuggestedSyncs)
	}
	if len(got.CommonBlockers) > 5 || len(got.Risks) > 3 {
		t.Errorf("caps violated: %+v", got)
	}
}

func TestBuildHints(t *testing.T) {
	profiles := []Profile{
		{Name: "A", Topics: []string{"rotate-code", "endpoint", "jest"}, BlockerPhrases: []string{signals.BlockerFlakyTests}},
		{Name: "B", Topics: []string{"rotate-code", "endpoint", "grafana"}, Tags: signals.Tags{Tests: true}},
		{Name: "C", Topics: []string{"unrelated"}},
	}
	got := BuildHints(profiles, nil)
	want := []standup.SyncPair{
		{Members: []string{"A", "B"}, Reason: "Stabilize flaky tests / CI"},
	}
	if len(got) != 1 || !slices.Equal(got[0].Members, want[0].Members) || got[0].Reason != want[0].Reason {
		t.Errorf("hints = %+v, want %+v (overlap pair deduped behind unblock pair)", got, want)
	}

	profiles[0].BlockerPhrases = nil
	got = BuildHints(profiles, nil)
	if len(got) != 1 || got[0].Reason != "Overlap on: endpoint, rotate-code" {
		t.Errorf("overlap hints = %+v", got)
	}
}

func TestBuildHints_SkipsSelfAndCaps(t *testing.T) {
	var profiles []Profile
	for _, n := range []string{"A", "B", "C", "D", "E", "F"} {
		profiles = append(profiles, Profile{Name: n, Topics: []string{"payments", "webhook"}})
	}
	profiles[0].BlockerPhrases = []string{signals.BlockerStagingCreds}
	profiles[0].Tags.DevOps = true

	got := BuildHints(profiles, nil)
	if len(got) != MaxHints {
		t.Fatalf("len = %d, want %d", len(got), MaxHints)
	}
	for _, h := range got {
		if h.Members[0] == h.Members[1] {
			t.Errorf("self pair %v", h.Members)
		}
	}
}

func TestEnsurePair(t *testing.T) {
	tests := []struct {
		members, universe, want []string
	}{
		{[]string{" Asha ", "Ben", "Chen"}, nil, []string{"Asha", "Ben"}},
		{[]string{"Asha", "Asha"}, []string{"Ben", "Chen"}, []string{"Ben", "Chen"}},
		{nil, []string{"Solo"}, []string{"Solo", "PM / Tech Lead"}},
		{[]string{""}, nil, []string{"PM / Tech Lead", "DevOps"}},
	}
	for _, tt := range tests {
		if got := ensurePair(tt.members, tt.universe); !slices.Equal(got, tt.want) {
			t.Errorf("ensurePair(%v, %v) = %v, want %v", tt.members, tt.universe, got, tt.want)
		}
	}
}

func TestRefineReason(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Overlap on: team, charts", reasonGenericOverlap},
		{"overlap on: code", reasonGenericOverlap},
		{"Overlap on: codegen, charts", "Overlap on: codegen, charts"},
		{"Coordinate on API", reasonRefinedCoord},
		{"Coordinate on the payments sandbox 429 retry budget", "Coordinate on the payments sandbox 429 retry budget"},
		{"  Unblock: staging db credentials ", "Unblock: staging db credentials"},
	}
	for _, tt := range tests {
		if got := refineReason(tt.in); got != tt.want {
			t.Errorf("refineReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", validOutput, true},
		{"fenced", "```json\n" + validOutput + "\n```", true},
		{"missing key", `{"teamSummary":"x","commonBlockers":[],"suggestedSyncs":[]}`, false},
		{"null list", `{"teamSummary":"x","commonBlockers":null,"suggestedSyncs":[],"risks":[]}`, false},
		{"wrong type", `{"teamSummary":1,"commonBlockers":[],"suggestedSyncs":[],"risks":[]}`, false},
		{"string sync", `{"teamSummary":"x","commonBlockers":[],"suggestedSyncs":["talk"],"risks":[]}`, false},
		{"sync without reason", `{"teamSummary":"x","commonBlockers":[],"suggestedSyncs":[{"members":["a","b"]}],"risks":[]}`, false},
		{"prose", "Here is the summary", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidOutput(tt.in); got != tt.want {
				t.Errorf("ValidOutput = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoerce_PartialObject(t *testing.T) {
	text := `Sure! {"teamSummary":"Partial","commonBlockers":["a", 3, " a "],"suggestedSyncs":["Coordinate on it", {"members":["X"]}]} done`
	got := coerce(text, []string{"Asha", "Ben"}, "")
	if got.TeamSummary != "Partial" {
		t.Errorf("teamSummary = %q", got.TeamSummary)
	}
	if !slices.Equal(got.CommonBlockers, []string{"a"}) {
		t.Errorf("commonBlockers = %v", got.CommonBlockers)
	}
	if len(got.SuggestedSyncs) != 1 || got.SuggestedSyncs[0].Reason != reasonRefinedCoord ||
		!slices.Equal(got.SuggestedSyncs[0].Members, []string{"Asha", "Ben"}) {
		t.Errorf("suggestedSyncs = %+v", got.SuggestedSyncs)
	}
}

func TestCoerce_Fallbacks(t *testing.T) {
	got := coerce("nope", []string{"Asha"}, "priorities are unclear")
	if len(got.SuggestedSyncs) != 1 || got.SuggestedSyncs[0].Reason != reasonPriorityClarif {
		t.Errorf("syncs = %+v", got.SuggestedSyncs)
	}
	if !slices.Equal(got.SuggestedSyncs[0].Members, []string{"Asha", "PM / Tech Lead"}) {
		t.Errorf("members = %v", got.SuggestedSyncs[0].Members)
	}

	got = coerce("nope", nil, "shipping things")
	if got.SuggestedSyncs[0].Reason != reasonGenericCoord {
		t.Errorf("reason = %q", got.SuggestedSyncs[0].Reason)
	}
}

func TestOverlay(t *testing.T) {
	counts := map[string]int{"flaky tests": 2, "auth/session": 2, "payments 429": 3, "x": 1, "y": 1, "z": 1}
	got := overlay(standup.TeamInsight{Risks: []string{"model risk"}}, counts)

	wantCommon := []string{"payments 429", "auth/session", "flaky tests", "x", "y"}
	if !slices.Equal(got.CommonBlockers, wantCommon) {
		t.Errorf("commonBlockers = %v, want %v", got.CommonBlockers, wantCommon)
	}
	wantRisks := []string{
		"3 people blocked by payments 429",
		"2 people blocked by auth/session",
		"2 people blocked by flaky tests",
	}
	if !slices.Equal(got.Risks, wantRisks) {
		t.Errorf("risks = %v, want %v", got.Risks, wantRisks)
	}
	if len(got.BlockerCounts) != len(counts) {
		t.Errorf("blockerCounts = %v", got.BlockerCounts)
	}
}

func TestOverlay_KeepsModelRisksWhenNoSharedBlocker(t *testing.T) {
	in := standup.TeamInsight{Risks: []string{"3 ppl on one API", "1 PPL out", "c", "d"}}
	got := overlay(in, map[string]int{"flaky tests": 1})
	want := []string{"3 people on one API", "1 person out", "c"}
	if !slices.Equal(got.Risks, want) {
		t.Errorf("risks = %v, want %v", got.Risks, want)
	}
}

func TestCountBlockers_OncePerStandup(t *testing.T) {
	counts := CountBlockers([]standup.Record{
		{Blockers: "staging db credentials; also db creds"},
		{Blockers: "staging db user missing"},
	})
	if counts[signals.BlockerStagingCreds] != 2 || len(counts) != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestAugment_BlockerFallback(t *testing.T) {
	profiles := []Profile{
		{Name: "A", BlockerPhrases: []string{signals.BlockerAuthSession}},
		{Name: "B", Tags: signals.Tags{Auth: true}},
	}
	counts := map[string]int{signals.BlockerAuthSession: 1}
	got := augment(nil, nil, profiles, nil, counts)
	if !hasPair(got, "A", "B", "Unblock: auth/session") {
		t.Errorf("syncs = %+v", got)
	}
}

func TestAugment_MergesHintsUpToFive(t *testing.T) {
	var syncs, hints []standup.SyncPair
	for i := range 4 {
		syncs = append(syncs, standup.SyncPair{Members: []string{"s", string(rune('a' + i))}, Reason: "model"})
		hints = append(hints, standup.SyncPair{Members: []string{"h", string(rune('a' + i))}, Reason: "hint"})
	}
	got := augment(syncs, hints, nil, nil, nil)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[4].Reason != "hint" {
		t.Errorf("fifth = %+v, want first hint", got[4])
	}
}

func TestSynthesize_RepeatedModelPairDoesNotCrowdOutHints(t *testing.T) {
	pair := `{"members":["Chen","Ben"],"reason":"Overlap on: firewall policy rollout"}`
	out := `{"teamSummary":"x","commonBlockers":[],"suggestedSyncs":[` +
		strings.Repeat(pair+",", 4) + pair + `],"risks":[]}`

	s, _ := newTestSynth(reply{text: out})
	got, err := s.Synthesize(context.Background(), fixture())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !hasPair(got.SuggestedSyncs, "Asha", "Ben", "Unblock: staging db credentials") {
		t.Errorf("suggestedSyncs = %+v, want Asha/Ben unblock pair", got.SuggestedSyncs)
	}
	if !hasPair(got.SuggestedSyncs, "Chen", "Ben", "Overlap on: firewall") {
		t.Errorf("suggestedSyncs = %+v, want the model pair once", got.SuggestedSyncs)
	}
}

func TestRepair_DedupesStrictPairs(t *testing.T) {
	got := repair(`{"teamSummary":"x","commonBlockers":[],"suggestedSyncs":[
		{"members":["A","B"],"reason":"short"},
		{"members":["B","A"],"reason":"Unblock: staging db credentials"},
		{"members":["A","B"],"reason":"x"}
	],"risks":[]}`, []string{"A", "B"}, "")
	if len(got.SuggestedSyncs) != 1 {
		t.Fatalf("syncs = %+v, want one pair", got.SuggestedSyncs)
	}
	if got.SuggestedSyncs[0].Reason != "Unblock: staging db credentials" {
		t.Errorf("reason = %q, want the longer one", got.SuggestedSyncs[0].Reason)
	}
}

func TestNewPairList_CountsDistinctPairs(t *testing.T) {
	p := standup.SyncPair{Members: []string{"A", "B"}, Reason: "r"}
	pl := newPairList([]standup.SyncPair{p, p, {Members: []string{"B", "A"}, Reason: "r"}})
	if pl.len() != 1 {
		t.Errorf("len = %d, want 1", pl.len())
	}
}
