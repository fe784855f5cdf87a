package domain

import (
	"errors"
	"fmt"
	"sort"
)

// RankCandidates sorts candidates by snap distance and assigns ClosestOrder
// starting at 1. Equal distances keep service order.
func RankCandidates(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SnapMeters < ranked[j].SnapMeters
	})
	for i := range ranked {
		ranked[i].ClosestOrder = i + 1
	}
	return ranked
}

// CountNameMatches counts candidates whose name similarity meets cutoff.
func CountNameMatches(candidates []Candidate, cutoff float64) int {
	var n int
	for _, c := range candidates {
		if c.Score >= cutoff {
			n++
		}
	}
	return n
}

// SelectClosest picks the ranked candidate with the smallest snap distance.
func SelectClosest(ranked []Candidate) (Candidate, error) {
	c, err := closestOf(ranked)
	if errors.Is(err, ErrAmbiguousSnap) {
		return Candidate{}, fmt.Errorf("%w, use name_match method", err)
	}
	return c, err
}

// SelectNameMatch prefers exact name matches, then candidates meeting the
// similarity cutoff, then the closest candidate overall. Within each tier the
// closest candidate wins.
func SelectNameMatch(ranked []Candidate, cutoff float64) (Candidate, error) {
	var exact, similar []Candidate
	for _, c := range ranked {
		if c.Score == 1.0 {
			exact = append(exact, c)
		}
		if c.Score >= cutoff {
			similar = append(similar, c)
		}
	}

	switch {
	case len(exact) > 0:
		return closestOf(exact)
	case len(similar) > 0:
		return closestOf(similar)
	default:
		return closestOf(ranked)
	}
}

// closestOf expects candidates ranked by distance and rejects ties at the top.
func closestOf(ranked []Candidate) (Candidate, error) {
	if len(ranked) == 0 {
		return Candidate{}, ErrNoFlowlines
	}
	if len(ranked) > 1 && ranked[0].SnapMeters == ranked[1].SnapMeters {
		return Candidate{}, ErrAmbiguousSnap
	}
	return ranked[0], nil
}
