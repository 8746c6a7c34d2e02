// Package session owns the append-only log of decoded frames for one
// producer session.
package session

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"videotouch-go/internal/frame"
	"videotouch-go/internal/types"
)

// Sentinel is the payload the producer sends once it has no more frames.
const Sentinel = "EOQ"

const ackPrefix = "Got "

var ErrStopped = errors.New("session stopped")

type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

// Ack is the outcome of one submission. Reply is what goes back to the
// producer; Err is for local diagnostics only.
type Ack struct {
	Reply    string
	Record   *types.FrameRecord
	Err      error
	Terminal bool
}

// Accumulator is single-writer: callers serving several producers create one
// per producer.
type Accumulator struct {
	id      string
	layout  frame.Layout
	logger  zerolog.Logger
	state   State
	records []types.FrameRecord
}

type Option func(*Accumulator)

func WithLayout(layout frame.Layout) Option {
	return func(a *Accumulator) {
		a.layout = layout
	}
}

// WithLogger sets the sink for decode failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Accumulator) {
		a.logger = logger
	}
}

// WithID names the session; an empty id keeps the generated one.
func WithID(id string) Option {
	return func(a *Accumulator) {
		if id != "" {
			a.id = id
		}
	}
}

func New(opts ...Option) *Accumulator {
	a := &Accumulator{
		id:     uuid.NewString(),
		layout: frame.DefaultLayout(),
		logger: zerolog.Nop(),
		state:  Running,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With().Str("session", a.id).Logger()
	return a
}

func (a *Accumulator) ID() string {
	return a.id
}

func (a *Accumulator) State() State {
	return a.state
}

func (a *Accumulator) IsTerminal(raw string) bool {
	return raw == Sentinel
}

// Submit evaluates one inbound payload exactly once. Decode failures are
// reported through Ack.Err and the sink; the returned error is only set once
// the session has stopped.
func (a *Accumulator) Submit(raw string) (Ack, error) {
	if a.state == Stopped {
		return Ack{}, ErrStopped
	}
	if a.IsTerminal(raw) {
		a.state = Stopped
		a.logger.Info().Int("frames", len(a.records)).Msg("session ended by sentinel")
		return Ack{Terminal: true}, nil
	}

	ack := Ack{Reply: ackPrefix + raw}
	record, err := a.layout.Decode(raw)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Stringer("kind", frame.KindOf(err)).
			Str("payload", raw).
			Msg("frame decode failed")
		ack.Err = err
		return ack, nil
	}

	a.records = append(a.records, record)
	a.logger.Debug().
		Int("frame_num", record.FrameNum).
		Int64("time_ms", record.TimeMs).
		Str("gesture", record.Gesture).
		Float64("rect", record.Rect).
		Msg("frame decoded")
	stored := record.Clone()
	ack.Record = &stored
	return ack, nil
}

// Records returns a copy of the log in arrival order.
func (a *Accumulator) Records() []types.FrameRecord {
	out := make([]types.FrameRecord, len(a.records))
	for i, record := range a.records {
		out[i] = record.Clone()
	}
	return out
}

func (a *Accumulator) Len() int {
	return len(a.records)
}
