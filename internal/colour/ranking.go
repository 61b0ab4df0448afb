package colour

import (
	"cmp"
	"slices"
)

// Tally accumulates colour occurrence counts across frames.
// A Tally is not safe for concurrent use; a single owner feeds it.
type Tally struct {
	counts map[RGB]int
	pixels int
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[RGB]int)}
}

// Add counts every colour in the list once.
func (t *Tally) Add(colours []RGB) {
	for _, c := range colours {
		t.counts[c]++
	}
	t.pixels += len(colours)
}

// Pixels returns the total number of colours added so far.
func (t *Tally) Pixels() int {
	return t.pixels
}

// Len returns the number of distinct colours seen so far.
func (t *Tally) Len() int {
	return len(t.counts)
}

// Ranking returns the distinct colours sorted by count, most frequent first.
// Equal counts are ordered by ascending RGB value so identical input always
// produces an identical ranking.
func (t *Tally) Ranking() Ranking {
	ranking := make(Ranking, 0, len(t.counts))
	for c, n := range t.counts {
		ranking = append(ranking, Frequency{Colour: c, Count: n})
	}
	SortRanking(ranking)
	return ranking
}

// SortRanking sorts entries in place by count descending, then by colour.
func SortRanking(r Ranking) {
	slices.SortFunc(r, func(a, b Frequency) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Colour.packed(), b.Colour.packed())
	})
}
