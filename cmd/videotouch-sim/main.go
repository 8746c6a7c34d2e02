package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videotouch-go/internal/ingest"
	"videotouch-go/internal/logging"
	"videotouch-go/internal/session"
	"videotouch-go/internal/simulator"
)

// Plays the producer role: sends simulated frames over REQ, waits for each
// acknowledgement, then ends the session with the sentinel.
func main() {
	var (
		endpoint = flag.String("endpoint", "tcp://127.0.0.1:7000", "ZMQ endpoint of the server")
		frames   = flag.Int("frames", 300, "Number of frames to send (0 runs until interrupted)")
		rate     = flag.Float64("rate", 30, "Frames per second")
		dropRate = flag.Float64("drop-rate", 0.1, "Share of frames without a hand")
		timeout  = flag.Duration("timeout", 5*time.Second, "Reply timeout")
		logLevel = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	logger := logging.Init("videotouch-sim", *logLevel, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := ingest.Dial(*endpoint, *timeout)
	if err != nil {
		logger.Fatal().Err(err).Str("endpoint", *endpoint).Msg("failed to connect")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(simulator.Interval(*rate))
	defer ticker.Stop()

	sent := 0
loop:
	for *frames == 0 || sent < *frames {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		timeMs := time.Now().UnixMilli()
		sample := simulator.Sample{FrameNum: sent, TimeMs: timeMs}
		if rng.Float64() >= *dropRate {
			sample = simulator.Hand(sent, timeMs, rng)
		}
		if err := conn.Send(simulator.Format(sample)); err != nil {
			logger.Fatal().Err(err).Msg("send failed")
		}
		reply, err := conn.Recv()
		if err != nil {
			logger.Fatal().Err(err).Int("frame", sent).Msg("no reply from server")
		}
		logger.Debug().Int("frame", sent).Int("reply_bytes", len(reply)).Msg("acknowledged")
		sent++
	}

	if err := conn.Send(session.Sentinel); err != nil {
		logger.Fatal().Err(err).Msg("sentinel send failed")
	}
	// Close lingers until the sentinel is flushed; Shutdown waits for that.
	if err := conn.Close(); err != nil {
		logger.Error().Err(err).Msg("socket close failed")
	}
	if err := ingest.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("zmq shutdown failed")
	}
	logger.Info().Int("frames", sent).Msg("session ended")
}
