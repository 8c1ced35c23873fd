package gate

import (
	"sort"

	"github.com/banshee-data/pitchtrace/internal/config"
)

// MarginSchedule maps frames-since-phase-start to the distance (pixels per
// frame of gap) a candidate may sit from the prediction. Knots are
// interpolated linearly; before the first knot the first margin applies
// and after the last knot the last margin holds.
type MarginSchedule []config.MarginKnot

// NewMarginSchedule copies and sorts knots by offset.
func NewMarginSchedule(knots []config.MarginKnot) MarginSchedule {
	s := append(MarginSchedule(nil), knots...)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Offset < s[j].Offset })
	return s
}

// At returns the margin per frame at the given offset.
func (s MarginSchedule) At(offset int) float64 {
	if len(s) == 0 {
		return 0
	}
	if offset <= s[0].Offset {
		return s[0].Margin
	}
	for i := 1; i < len(s); i++ {
		if offset <= s[i].Offset {
			lo, hi := s[i-1], s[i]
			t := float64(offset-lo.Offset) / float64(hi.Offset-lo.Offset)
			return lo.Margin + t*(hi.Margin-lo.Margin)
		}
	}
	return s[len(s)-1].Margin
}

// NonIncreasing reports whether the schedule never widens.
func (s MarginSchedule) NonIncreasing() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Margin > s[i-1].Margin {
			return false
		}
	}
	return true
}
