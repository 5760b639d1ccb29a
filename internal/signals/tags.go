package signals

import (
	"regexp"
	"strings"
)

// Tags are capability flags inferred from what a person worked on.
type Tags struct {
	DevOps     bool `json:"devops"`
	Auth       bool `json:"auth"`
	Docs       bool `json:"docs"`
	Tests      bool `json:"tests"`
	Payments   bool `json:"payments"`
	Selectors  bool `json:"selectors"`
	RotateCode bool `json:"rotateCode"`
	Insights   bool `json:"insights"`
	Metrics    bool `json:"metrics"`
}

var (
	reDevOps     = regexp.MustCompile(`provision|secret|whitelist|firewall|cluster|staging|credential|creds|policy|infra|k8s|pod|deploy`)
	reAuth       = regexp.MustCompile(`auth|session|middleware`)
	reDocs       = regexp.MustCompile(`doc|readme|handbook|guide|api docs|swagger|openapi`)
	reTests      = regexp.MustCompile(`test|jest|vitest|ci|flaky`)
	rePayments   = regexp.MustCompile(`payment|stripe|razorpay|429|rate limit`)
	reSelectors  = regexp.MustCompile(`selector|team picker|ui wiring`)
	reRotateCode = regexp.MustCompile(`rotate-?code`)
	reInsights   = regexp.MustCompile(`insight|analytics|trend`)
	reMetrics    = regexp.MustCompile(`metric|dashboard|grafana|prometheus`)
)

// InferTags derives capability flags from yesterday's and today's work.
// Blocker text is not considered.
func InferTags(yesterday, today string) Tags {
	t := strings.ToLower(yesterday + " " + today)
	return Tags{
		DevOps:     reDevOps.MatchString(t),
		Auth:       reAuth.MatchString(t),
		Docs:       reDocs.MatchString(t),
		Tests:      reTests.MatchString(t),
		Payments:   rePayments.MatchString(t),
		Selectors:  reSelectors.MatchString(t),
		RotateCode: reRotateCode.MatchString(t),
		Insights:   reInsights.MatchString(t),
		Metrics:    reMetrics.MatchString(t),
	}
}
