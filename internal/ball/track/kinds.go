package track

import "fmt"

// PhaseKind identifies a motion regime within a clip.
type PhaseKind int

const (
	PhasePitch PhaseKind = iota // release to contact (or to the catcher)
	PhaseHit                    // post-contact flight
)

func (k PhaseKind) String() string {
	switch k {
	case PhasePitch:
		return "pitch"
	case PhaseHit:
		return "hit"
	default:
		return fmt.Sprintf("phase(%d)", int(k))
	}
}

// Hand is the batter's handedness. It fixes which side of the frame a
// pitch starts from and which way its x-coordinate travels.
type Hand int

const (
	HandRight Hand = iota
	HandLeft
)

func (h Hand) String() string {
	switch h {
	case HandRight:
		return "right"
	case HandLeft:
		return "left"
	default:
		return fmt.Sprintf("hand(%d)", int(h))
	}
}

// ParseHand accepts "right"/"r" and "left"/"l".
func ParseHand(s string) (Hand, error) {
	switch s {
	case "right", "r", "R":
		return HandRight, nil
	case "left", "l", "L":
		return HandLeft, nil
	default:
		return HandRight, fmt.Errorf("unknown hand %q", s)
	}
}

// PitchDirection returns the sign of the pitch's x velocity: a pitch to a
// right-handed batter travels toward decreasing x and starts in the right
// half of the frame; left-handed is mirrored.
func (h Hand) PitchDirection() float64 {
	if h == HandLeft {
		return 1
	}
	return -1
}

// MirrorX maps a frame-fraction x for this hand. Right-handed is the
// reference orientation.
func (h Hand) MirrorX(fx float64) float64 {
	if h == HandLeft {
		return 1 - fx
	}
	return fx
}

// ClipKind is the closed set of clip types the pipeline knows how to track.
type ClipKind int

const (
	ClipPitcher ClipKind = iota // pitcher-view camera, pitch phase only
	ClipBatter                  // batter-view camera, pitch phase only, hand-dependent
	ClipHit                     // pitch followed by contact and post-contact flight
)

func (k ClipKind) String() string {
	switch k {
	case ClipPitcher:
		return "pitcher"
	case ClipBatter:
		return "batter"
	case ClipHit:
		return "hit"
	default:
		return fmt.Sprintf("clip(%d)", int(k))
	}
}

// ParseClipKind is the inverse of ClipKind.String.
func ParseClipKind(s string) (ClipKind, error) {
	switch s {
	case "pitcher":
		return ClipPitcher, nil
	case "batter":
		return ClipBatter, nil
	case "hit":
		return ClipHit, nil
	default:
		return ClipPitcher, fmt.Errorf("unknown clip kind %q", s)
	}
}

// Phases lists the motion phases of the clip kind in temporal order.
func (k ClipKind) Phases() []PhaseKind {
	switch k {
	case ClipHit:
		return []PhaseKind{PhasePitch, PhaseHit}
	default:
		return []PhaseKind{PhasePitch}
	}
}

// HasContact reports whether the clip contains a bat-ball contact event.
func (k ClipKind) HasContact() bool { return k == ClipHit }
