package testutil

import (
	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

// LinearTrack returns an n-frame track moving from start at vel pixels per
// frame with every sample valid.
func LinearTrack(n int, start, vel track.Position) *track.Array {
	arr := track.NewArray(n)
	for i := 0; i < n; i++ {
		_ = arr.Set(i, start.Add(vel.Scale(float64(i))))
	}
	return arr
}

// Drop clears the given frames of arr and returns it.
func Drop(arr *track.Array, frames ...int) *track.Array {
	for _, f := range frames {
		arr.Clear(f)
	}
	return arr
}

// DropRange clears frames [from, to) of arr and returns it.
func DropRange(arr *track.Array, from, to int) *track.Array {
	for f := from; f < to; f++ {
		arr.Clear(f)
	}
	return arr
}

// Reversal describes a synthetic contact clip: straight pitch flight up to
// ReverseAt-1, contact half way to ReverseAt, straight hit flight after.
type Reversal struct {
	Frames    int
	ReverseAt int
	Start     track.Position // pitch position at frame 0
	PitchVel  track.Position
	HitVel    track.Position
}

// ScenarioReversal is a 120-frame right-handed clip reversing at frame 70.
func ScenarioReversal(hand track.Hand) Reversal {
	r := Reversal{
		Frames:    120,
		ReverseAt: 70,
		Start:     track.Position{X: 1000, Y: 300},
		PitchVel:  track.Position{X: -10, Y: 0.5},
		HitVel:    track.Position{X: 12, Y: -6},
	}
	if hand == track.HandLeft {
		r.Start.X = 280
		r.PitchVel.X = -r.PitchVel.X
		r.HitVel.X = -r.HitVel.X
	}
	return r
}

// Contact returns the point where the two flights meet.
func (r Reversal) Contact() track.Position {
	return r.Start.Add(r.PitchVel.Scale(float64(r.ReverseAt) - 0.5))
}

// At returns the true ball position at frame f.
func (r Reversal) At(f int) track.Position {
	if f < r.ReverseAt {
		return r.Start.Add(r.PitchVel.Scale(float64(f)))
	}
	return r.Contact().Add(r.HitVel.Scale(float64(f) - float64(r.ReverseAt) + 0.5))
}

// Array renders the full clip with every frame valid.
func (r Reversal) Array() *track.Array {
	arr := track.NewArray(r.Frames)
	for i := 0; i < r.Frames; i++ {
		_ = arr.Set(i, r.At(i))
	}
	return arr
}
