package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"videotouch-go/internal/config"
	"videotouch-go/internal/frame"
	"videotouch-go/internal/ingest"
	"videotouch-go/internal/logging"
	"videotouch-go/internal/output"
	"videotouch-go/internal/processing"
	"videotouch-go/internal/server"
	"videotouch-go/internal/session"
	"videotouch-go/internal/simulator"
	"videotouch-go/internal/types"
)

func main() {
	defaults := config.Default()
	var (
		configPath    = flag.String("config", "", "Path to a TOML config file")
		port          = flag.Int("port", defaults.Port, "HTTP port for the observer UI")
		endpoint      = flag.String("endpoint", defaults.Endpoint, "ZMQ REP endpoint to bind")
		sessionID     = flag.String("session-id", defaults.SessionID, "Session identifier (generated when empty)")
		recvTimeout   = flag.Duration("recv-timeout", defaults.RecvTimeout, "Receive poll interval")
		debug         = flag.Bool("debug", defaults.Debug, "Feed the session from the built-in simulator instead of ZMQ")
		debugRate     = flag.Float64("debug-rate", defaults.DebugRate, "Simulated frames per second")
		debugDropRate = flag.Float64("debug-drop-rate", defaults.DebugDropRate, "Share of simulated frames without a hand")
		uiRate        = flag.Duration("ui-rate", defaults.UIRate, "Snapshot interval for websocket clients")
		statsEvery    = flag.Duration("stats-every", defaults.StatsEvery, "Interval between ingest stats log lines")
		rawLogEnabled = flag.Bool("raw-log", defaults.RawLogEnabled, "Capture every inbound payload to disk")
		rawLogDir     = flag.String("raw-log-dir", defaults.RawLogDir, "Directory for raw payload captures")
		logEvery      = flag.Uint("log-every", uint(defaults.LogEvery), "Log every Nth repeated ingest error")
		logLevel      = flag.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
		logJSON       = flag.Bool("log-json", defaults.LogJSON, "Log JSON lines instead of console output")
		globalRows    = flag.Int("global-rows", defaults.Layout.GlobalRows, "Number of global landmark rows per frame")
		arity         = flag.Int("arity", defaults.Layout.Arity, "Components per landmark row (0 infers)")
	)
	flag.Parse()

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			bootLogger := logging.Init("videotouch-server", "info", false)
			bootLogger.Fatal().Err(err).Msg("config")
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "endpoint":
			cfg.Endpoint = *endpoint
		case "session-id":
			cfg.SessionID = *sessionID
		case "recv-timeout":
			cfg.RecvTimeout = *recvTimeout
		case "debug":
			cfg.Debug = *debug
		case "debug-rate":
			cfg.DebugRate = *debugRate
		case "debug-drop-rate":
			cfg.DebugDropRate = *debugDropRate
		case "ui-rate":
			cfg.UIRate = *uiRate
		case "stats-every":
			cfg.StatsEvery = *statsEvery
		case "raw-log":
			cfg.RawLogEnabled = *rawLogEnabled
		case "raw-log-dir":
			cfg.RawLogDir = *rawLogDir
		case "log-every":
			cfg.LogEvery = uint32(*logEvery)
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-json":
			cfg.LogJSON = *logJSON
		case "global-rows":
			cfg.Layout.GlobalRows = *globalRows
		case "arity":
			cfg.Layout.Arity = *arity
		}
	})

	logger := logging.Init("videotouch-server", cfg.LogLevel, cfg.LogJSON)
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := frame.DefaultLayout()
	layout.GlobalRows = cfg.Layout.GlobalRows
	layout.Arity = cfg.Layout.Arity
	acc := session.New(
		session.WithLayout(layout),
		session.WithLogger(logger),
		session.WithID(cfg.SessionID),
	)

	var conn ingest.Conn
	source := "zmq"
	if cfg.Debug {
		source = "simulator"
		conn = ingest.NewLoopback(simulator.Stream(ctx, cfg.DebugRate, cfg.DebugDropRate), cfg.RecvTimeout)
	} else {
		zconn, err := ingest.Bind(cfg.Endpoint, cfg.RecvTimeout)
		if err != nil {
			logger.Fatal().Err(err).Str("endpoint", cfg.Endpoint).Msg("failed to bind")
		}
		conn = zconn
	}
	defer conn.Close()

	var recorder ingest.RawRecorder
	if cfg.RawLogEnabled {
		writer, err := output.NewRawLogWriter(cfg.RawLogDir, "payloads")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start raw log")
		}
		logger.Info().Str("path", writer.Path()).Msg("capturing raw payloads")
		recorder = writer
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error().Err(err).Msg("raw log close failed")
			}
		}()
	}

	var (
		stats     ingest.Stats
		agg       = processing.NewAggregator()
		records   = make(chan types.FrameRecord, 128)
		uiMessage = make(chan any, 16)
		statusMu  sync.Mutex
		status    = map[string]any{
			"session":    acc.ID(),
			"source":     source,
			"state":      session.Running.String(),
			"last_frame": "",
		}
	)
	setStatus := func(key string, value any) {
		statusMu.Lock()
		status[key] = value
		statusMu.Unlock()
	}

	go func() {
		defer close(uiMessage)
		ticker := time.NewTicker(cfg.UIRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case record, ok := <-records:
				if !ok {
					flushSnapshot(agg, uiMessage)
					return
				}
				index := agg.AddRecord(record)
				setStatus("last_frame", time.Now().Format(time.RFC3339))
				select {
				case uiMessage <- types.UIFrame{Type: "frame", Index: index, Record: record}:
				default:
				}
			case <-ticker.C:
				flushSnapshot(agg, uiMessage)
			}
		}
	}()

	go func() {
		if cfg.StatsEvery <= 0 {
			return
		}
		ticker := time.NewTicker(cfg.StatsEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logStats(logger, &stats)
			}
		}
	}()

	srv := server.New(cfg, server.Options{
		Records: agg,
		Logger:  &logger,
		StatusFn: func() map[string]any {
			statusMu.Lock()
			defer statusMu.Unlock()
			out := make(map[string]any, len(status)+2)
			for k, v := range status {
				out[k] = v
			}
			out["metrics"] = stats.Snapshot()
			out["session_stats"] = agg.Stats()
			return out
		},
		SnapshotFn: func() any {
			snapshot, ok := agg.Snapshot()
			if !ok {
				return nil
			}
			return snapshot
		},
	})
	go func() {
		logger.Info().Int("port", cfg.Port).Msgf("observer UI at http://localhost:%d", cfg.Port)
		if err := srv.Run(ctx, uiMessage); err != nil {
			logger.Error().Err(err).Msg("observer server stopped")
		}
	}()

	logger.Info().Str("session", acc.ID()).Str("source", source).Str("endpoint", cfg.Endpoint).Msg("waiting for frames")
	summary, err := ingest.Serve(ctx, conn, acc, ingest.Options{
		Records:  records,
		Recorder: recorder,
		Stats:    &stats,
		Logger:   &logger,
		LogEvery: cfg.LogEvery,
	})
	close(records)
	setStatus("state", acc.State().String())
	logStats(logger, &stats)

	switch {
	case err == nil:
		logger.Info().Uint64("received", summary.Received).Int("frames", summary.Decoded).Msg("communication ended")
	case errors.Is(err, context.Canceled):
		logger.Info().Int("frames", summary.Decoded).Msg("interrupted")
	default:
		logger.Error().Err(err).Int("frames", summary.Decoded).Msg("ingest stopped")
	}
}

func flushSnapshot(agg *processing.Aggregator, uiMessages chan<- any) {
	snapshot, ok := agg.Snapshot()
	if !ok {
		return
	}
	select {
	case uiMessages <- snapshot:
	default:
	}
}

func logStats(logger zerolog.Logger, stats *ingest.Stats) {
	logger.Info().
		Uint64("received", stats.Received.Load()).
		Uint64("decoded", stats.Decoded.Load()).
		Uint64("malformed_number", stats.Malformed.Load()).
		Uint64("structural_mismatch", stats.Structural.Load()).
		Msg("ingest stats")
}
