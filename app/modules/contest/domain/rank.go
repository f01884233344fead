package contestdomain

import "sort"

// rankDense sorts participants with less (uid breaks remaining ties so the
// order is deterministic) and assigns dense ranks: equal entries share a rank
// and the next distinct entry gets the following integer.
func rankDense(participants []Participant, less func(a, b Stat) bool, tie func(a, b Stat) bool) []Ranked {
	sorted := make([]Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if less(a.Stat, b.Stat) {
			return true
		}
		if less(b.Stat, a.Stat) {
			return false
		}
		return a.UID < b.UID
	})

	out := make([]Ranked, len(sorted))
	rank := 0
	for i, p := range sorted {
		if i == 0 || !tie(sorted[i-1].Stat, p.Stat) {
			rank++
		}
		out[i] = Ranked{Rank: rank, Participant: p}
	}
	return out
}
