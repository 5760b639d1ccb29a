package team

import (
	"regexp"

	"github.com/kalambet/huddle/internal/similarity"
	"github.com/kalambet/huddle/internal/standup"
)

// minUsefulSyncs is the target the augmentation pass tries to reach.
const minUsefulSyncs = 3

var (
	reDevOpsBlocker   = regexp.MustCompile(`db|cred|staging|api access`)
	reAuthBlocker     = regexp.MustCompile(`auth`)
	rePaymentsBlocker = regexp.MustCompile(`payment|429|rate limit`)
)

// augment merges hints into syncs, tops up to minUsefulSyncs from topic
// similarity and then from the blocker table, and finally dedupes pairs.
func augment(syncs, hints []standup.SyncPair, profiles []Profile, idf map[string]float64, counts map[string]int) []standup.SyncPair {
	pl := newPairList(syncs)

	for _, h := range hints {
		if pl.len() >= maxListItems {
			break
		}
		if len(h.Members) < 2 {
			continue
		}
		pl.add(h.Members[0], h.Members[1], refineReason(h.Reason))
	}

	if pl.len() < minUsefulSyncs {
		for _, p := range similarity.RankedPairs(topicDocs(profiles), idf, 3) {
			if pl.len() >= minUsefulSyncs {
				break
			}
			pl.add(profiles[p.I].Name, profiles[p.J].Name, overlapReason(p.Keywords))
		}
	}

	if pl.len() < minUsefulSyncs {
		r := newRoster(profiles)
		for _, bc := range SortedBlockers(counts) {
			if pl.len() >= minUsefulSyncs {
				break
			}
			blocked := firstBlocked(profiles, bc.Label)
			if blocked == nil {
				continue
			}
			var helper string
			switch {
			case reDevOpsBlocker.MatchString(bc.Label):
				helper = r.devops.name()
			case reAuthBlocker.MatchString(bc.Label):
				helper = r.auth.name()
			case rePaymentsBlocker.MatchString(bc.Label):
				helper = r.payments.name()
			}
			pl.add(blocked.Name, helper, unblockReason(bc.Label))
		}
	}

	return dedupeSyncs(pl.pairs)
}

func firstBlocked(profiles []Profile, label string) *Profile {
	for i := range profiles {
		if profiles[i].HasBlocker(label) {
			return &profiles[i]
		}
	}
	return nil
}

// dedupeSyncs collapses syncs sharing an unordered member pair, keeping the
// longer refined reason. Entries without two distinct names are dropped.
// Order follows each pair's first appearance; the result is capped.
func dedupeSyncs(syncs []standup.SyncPair) []standup.SyncPair {
	index := make(map[string]int)
	out := []standup.SyncPair{}
	for _, s := range syncs {
		members := distinctTrimmed(s.Members)
		if len(members) < 2 {
			continue
		}
		members = members[:2]
		key := pairKey(members[0], members[1])
		reason := refineReason(s.Reason)
		if i, ok := index[key]; ok {
			if len(reason) > len(out[i].Reason) {
				out[i] = standup.SyncPair{Members: members, Reason: reason}
			}
			continue
		}
		index[key] = len(out)
		out = append(out, standup.SyncPair{Members: members, Reason: reason})
	}
	return capList(out, maxListItems)
}
