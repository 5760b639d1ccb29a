// Package similarity scores topic overlap between standup authors.
package similarity

import (
	"cmp"
	"math"
	"slices"
)

// OverlapThreshold is the minimum Jaccard score for two people to be
// considered working on overlapping things.
const OverlapThreshold = 0.1

// IDF computes inverse document frequency for every token across docs,
// where each doc is one person's topic list: ln(N/(1+df)) + 1 with N
// floored at 1.
func IDF(docs [][]string) map[string]float64 {
	df := make(map[string]int)
	for _, doc := range docs {
		for tok := range toSet(doc) {
			df[tok]++
		}
	}
	n := float64(max(1, len(docs)))
	idf := make(map[string]float64, len(df))
	for tok, d := range df {
		idf[tok] = math.Log(n/float64(1+d)) + 1
	}
	return idf
}

// Jaccard returns |A∩B| / |A∪B| over the distinct tokens of a and b. The
// union is floored at 1 so two empty lists score 0.
func Jaccard(a, b []string) float64 {
	as, bs := toSet(a), toSet(b)
	inter := 0
	for tok := range as {
		if _, ok := bs[tok]; ok {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	return float64(inter) / float64(max(1, union))
}

// SharedKeywords returns up to k tokens present in both a and b, highest IDF
// first. Ties are broken alphabetically. Tokens missing from idf weigh 1.
func SharedKeywords(a, b []string, idf map[string]float64, k int) []string {
	bs := toSet(b)
	seen := make(map[string]struct{})
	var shared []string
	for _, tok := range a {
		if _, ok := bs[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		shared = append(shared, tok)
	}

	weight := func(tok string) float64 {
		if w, ok := idf[tok]; ok {
			return w
		}
		return 1
	}
	slices.SortFunc(shared, func(x, y string) int {
		if c := cmp.Compare(weight(y), weight(x)); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	if len(shared) > k {
		shared = shared[:k]
	}
	return shared
}

// Pair is a scored pairing of docs[I] and docs[J] with I < J.
type Pair struct {
	I, J     int
	Score    float64
	Keywords []string
}

// RankedPairs scores every pair of docs and returns those with a positive
// Jaccard score, best first. Equal scores keep index order.
func RankedPairs(docs [][]string, idf map[string]float64, k int) []Pair {
	var pairs []Pair
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			sim := Jaccard(docs[i], docs[j])
			if sim <= 0 {
				continue
			}
			pairs = append(pairs, Pair{
				I:        i,
				J:        j,
				Score:    sim,
				Keywords: SharedKeywords(docs[i], docs[j], idf, k),
			})
		}
	}
	slices.SortStableFunc(pairs, func(x, y Pair) int {
		return cmp.Compare(y.Score, x.Score)
	})
	return pairs
}

func toSet(tokens []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}
