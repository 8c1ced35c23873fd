package monitor

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/banshee-data/pitchtrace/internal/ball/fallback"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/timeutil"
)

var (
	// ErrNothingPending is returned when an answer arrives with no open prompt.
	ErrNothingPending = errors.New("no review pending")
	// ErrStalePrompt is returned when an answer names a frame other than the open prompt's.
	ErrStalePrompt = errors.New("answer does not match open prompt")
)

// Previewer renders the operator's view of one frame in the given manual mode.
type Previewer interface {
	Preview(frame int, mode fallback.State) (image.Image, error)
}

// PendingPrompt is an open annotation request.
type PendingPrompt struct {
	fallback.Prompt
	IssuedAt time.Time
}

// PendingConfirm is an open track confirmation request.
type PendingConfirm struct {
	Track    *track.Array
	IssuedAt time.Time
}

// Review bridges the orchestrator's blocking Annotator and Confirmer calls
// to an operator answering over HTTP. One prompt and one confirmation may
// be open at a time; the orchestrator never issues both at once.
type Review struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	prompt   *PendingPrompt
	confirm  *PendingConfirm
	answers  chan fallback.Response
	verdicts chan bool

	previewer Previewer
}

var (
	_ fallback.Annotator = (*Review)(nil)
	_ fallback.Confirmer = (*Review)(nil)
)

// NewReview creates a Review. previewer may be nil, in which case no frame
// image is served.
func NewReview(previewer Previewer, clock timeutil.Clock) *Review {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Review{
		clock:     clock,
		answers:   make(chan fallback.Response, 1),
		verdicts:  make(chan bool, 1),
		previewer: previewer,
	}
}

// ShowFrameAndWait publishes p and blocks until Answer is called for it or
// ctx is done.
func (r *Review) ShowFrameAndWait(ctx context.Context, p fallback.Prompt) (fallback.Response, error) {
	r.mu.Lock()
	drain(r.answers)
	issued := r.clock.Now()
	r.prompt = &PendingPrompt{Prompt: p, IssuedAt: issued}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.prompt = nil
		r.mu.Unlock()
	}()

	select {
	case resp := <-r.answers:
		logf("%s frame %d: %s after %s", p.Clip, p.Frame, resp.Action, r.clock.Since(issued).Round(time.Millisecond))
		return resp, nil
	case <-ctx.Done():
		return fallback.Response{}, ctx.Err()
	}
}

// Answer delivers the operator's response for the open prompt on frame.
func (r *Review) Answer(frame int, resp fallback.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prompt == nil {
		return ErrNothingPending
	}
	if r.prompt.Frame != frame {
		return ErrStalePrompt
	}
	select {
	case r.answers <- resp:
		return nil
	default:
		// Already answered and not yet consumed.
		return ErrNothingPending
	}
}

// Confirm publishes t for review and blocks until Verdict is called or ctx
// is done.
func (r *Review) Confirm(ctx context.Context, t *track.Array) (bool, error) {
	r.mu.Lock()
	drain(r.verdicts)
	r.confirm = &PendingConfirm{Track: t.Clone(), IssuedAt: r.clock.Now()}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.confirm = nil
		r.mu.Unlock()
	}()

	select {
	case ok := <-r.verdicts:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Verdict accepts or rejects the open confirmation.
func (r *Review) Verdict(accept bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.confirm == nil {
		return ErrNothingPending
	}
	select {
	case r.verdicts <- accept:
		return nil
	default:
		return ErrNothingPending
	}
}

// Pending returns copies of the open prompt and confirmation, if any.
func (r *Review) Pending() (*PendingPrompt, *PendingConfirm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var p *PendingPrompt
	var c *PendingConfirm
	if r.prompt != nil {
		cp := *r.prompt
		p = &cp
	}
	if r.confirm != nil {
		cp := *r.confirm
		c = &cp
	}
	return p, c
}

// PreviewImage renders the frame for the open prompt.
func (r *Review) PreviewImage() (image.Image, error) {
	p, _ := r.Pending()
	if p == nil {
		return nil, ErrNothingPending
	}
	if r.previewer == nil {
		return nil, errors.New("no previewer configured")
	}
	return r.previewer.Preview(p.Frame, p.Mode)
}

func drain[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
