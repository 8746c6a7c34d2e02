package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"videotouch-go/internal/frame"
	"videotouch-go/internal/session"
	"videotouch-go/internal/types"
)

// Conn is one side of a strict request/reply channel. Recv returns
// ErrTimeout when nothing arrived in time so the caller can check for
// cancellation.
type Conn interface {
	Recv() (string, error)
	Send(reply string) error
	Close() error
}

var (
	ErrTimeout = errors.New("receive timed out")
	ErrClosed  = errors.New("connection closed")
)

// RawRecorder captures every inbound payload along with how it was handled.
type RawRecorder interface {
	Record(entry types.RawEntry) error
}

type Options struct {
	// Records receives every decoded frame. Sends block until the reader
	// takes the frame or ctx ends.
	Records  chan<- types.FrameRecord
	Recorder RawRecorder
	Stats    *Stats
	Logger   *zerolog.Logger
	// LogEvery samples repeated transport and recorder errors.
	LogEvery uint32
}

type Stats struct {
	Received   atomic.Uint64
	Decoded    atomic.Uint64
	Malformed  atomic.Uint64
	Structural atomic.Uint64
	Replies    atomic.Uint64
	RecvErrors atomic.Uint64
	DecodeNs   atomic.Uint64
}

func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"received_total":            s.Received.Load(),
		"decoded_total":             s.Decoded.Load(),
		"malformed_number_total":    s.Malformed.Load(),
		"structural_mismatch_total": s.Structural.Load(),
		"replies_total":             s.Replies.Load(),
		"recv_errors_total":         s.RecvErrors.Load(),
		"decode_nanos_total":        s.DecodeNs.Load(),
	}
}

type Summary struct {
	Session  string
	Received uint64
	Decoded  int
	Stopped  bool
}

// Serve runs the request/reply loop until the producer sends the sentinel,
// ctx is cancelled or the connection fails to send. Every request is fully
// handled and answered before the next one is read.
func Serve(ctx context.Context, conn Conn, acc *session.Accumulator, opts Options) (Summary, error) {
	if opts.Stats == nil {
		opts.Stats = &Stats{}
	}
	if opts.LogEvery < 1 {
		opts.LogEvery = 1
	}
	base := zerolog.Nop()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	logger := base.With().Str("session", acc.ID()).Logger()
	sampled := logger.Sample(&zerolog.BasicSampler{N: opts.LogEvery})

	summary := Summary{Session: acc.ID()}
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			summary.Decoded = acc.Len()
			return summary, ctx.Err()
		default:
		}

		raw, err := conn.Recv()
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if errors.Is(err, ErrClosed) {
			summary.Decoded = acc.Len()
			return summary, err
		}
		if err != nil {
			opts.Stats.RecvErrors.Add(1)
			sampled.Error().Err(err).Msg("ingest recv error")
			continue
		}
		seq++
		summary.Received = seq
		opts.Stats.Received.Add(1)

		start := time.Now()
		ack, err := acc.Submit(raw)
		opts.Stats.DecodeNs.Add(uint64(time.Since(start).Nanoseconds()))
		if err != nil {
			summary.Decoded = acc.Len()
			summary.Stopped = true
			return summary, err
		}

		entry := types.RawEntry{Session: acc.ID(), Seq: seq, Payload: raw}
		switch {
		case ack.Terminal:
			entry.Outcome = types.OutcomeSentinel
		case ack.Err != nil:
			entry.Outcome = types.OutcomeRejected
			kind := frame.KindOf(ack.Err)
			entry.Kind = kind.String()
			if kind == frame.KindMalformedNumber {
				opts.Stats.Malformed.Add(1)
			} else {
				opts.Stats.Structural.Add(1)
			}
		default:
			entry.Outcome = types.OutcomeDecoded
			opts.Stats.Decoded.Add(1)
		}
		if opts.Recorder != nil {
			if err := opts.Recorder.Record(entry); err != nil {
				sampled.Error().Err(err).Msg("raw log write failed")
			}
		}

		// The producer expects no answer to the sentinel.
		if ack.Terminal {
			summary.Decoded = acc.Len()
			summary.Stopped = true
			logger.Info().Uint64("received", seq).Int("decoded", summary.Decoded).Msg("producer ended session")
			return summary, nil
		}

		if err := conn.Send(ack.Reply); err != nil {
			summary.Decoded = acc.Len()
			return summary, err
		}
		opts.Stats.Replies.Add(1)

		if ack.Record != nil && opts.Records != nil {
			select {
			case <-ctx.Done():
				summary.Decoded = acc.Len()
				return summary, ctx.Err()
			case opts.Records <- *ack.Record:
			}
		}
	}
}
