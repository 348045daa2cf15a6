// Command sinestream plays a continuous sine tone.
//
// Samples are generated in fixed blocks, encoded as native-endian float32
// and written to the selected sink, whose blocking writes pace the loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/drgolem/go-sinestream/internal/config"
	"github.com/drgolem/go-sinestream/internal/metrics"
	"github.com/drgolem/go-sinestream/sink"
	"github.com/drgolem/go-sinestream/stream"
	"github.com/drgolem/go-sinestream/wave"
)

func main() {
	cfg, err := config.LoadFromOS()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.ListDevices {
		if err := sink.ListDevices(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to list devices:", err)
			os.Exit(1)
		}
		return
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("stream failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create logger:", err)
		os.Exit(1)
	}
	return logger
}

func run(cfg *config.Config, logger *zap.Logger) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}

	frames := cfg.Frames()
	logger.Info("sinestream starting",
		zap.Uint("sampleRate", cfg.SampleRate),
		zap.Uint("frequency", cfg.Frequency),
		zap.Int("framesPerBlock", frames),
		zap.Duration("blockDuration", cfg.BlockDuration()),
		zap.String("sink", string(cfg.Sink)),
		zap.Int("queueBlocks", cfg.QueueBlocks),
		zap.Duration("duration", cfg.Duration))
	if cfg.AboveNyquist() {
		logger.Warn("frequency is at or above half the sample rate and will alias",
			zap.Uint("frequency", cfg.Frequency),
			zap.Uint("nyquist", cfg.SampleRate/2))
	}

	gen, err := wave.NewSine(uint32(cfg.Frequency), uint32(cfg.SampleRate))
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	out, err := sink.Open(cfg.Sink, sink.Options{
		SampleRate:     int(cfg.SampleRate),
		FramesPerBlock: frames,
		Latency:        cfg.Latency,
		Device:         cfg.Device,
		Path:           cfg.OutPath,
		Name:           "sinestream",
		Logger:         logger.Named("sink"),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close sink: %w", cerr))
		}
	}()

	st, err := stream.New(gen, out, stream.Options{
		FramesPerBlock: frames,
		QueueBlocks:    cfg.QueueBlocks,
		MaxBlocks:      cfg.MaxBlocks(),
		Logger:         logger.Named("stream"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sink != sink.KindFile || cfg.OutPath != "-" {
		fmt.Fprintln(os.Stderr, "Press Ctrl-C to stop.")
	}

	err = st.Run(ctx)
	if ctx.Err() != nil {
		logger.Info("interrupted")
	}

	st.LogDiagnostics()
	if cfg.Debug {
		st.PrintDiagnostics(os.Stderr, cfg.BlockDuration())
	}
	return err
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
