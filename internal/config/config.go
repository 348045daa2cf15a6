// Package config holds the startup parameters of sinestream.
//
// Parameters are fixed for the lifetime of the process. Each flag takes its
// default from a SINESTREAM_* environment variable when one is set.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/drgolem/go-sinestream/sink"
)

const (
	DefaultFrequency  = 440
	DefaultSampleRate = 44100
	// BlocksPerSecond sets the default block length: 10 ms.
	BlocksPerSecond = 100
)

type Config struct {
	Frequency  uint
	SampleRate uint
	// FramesPerBlock of 0 means SampleRate / BlocksPerSecond.
	FramesPerBlock int
	Sink           sink.Kind
	Device         int
	OutPath        string
	Latency        time.Duration
	// QueueBlocks > 0 runs generation and sink writes on separate goroutines
	// with this many blocks of buffering between them.
	QueueBlocks int
	// Duration of 0 streams until interrupted.
	Duration    time.Duration
	MetricsAddr string
	ListDevices bool
	Debug       bool
}

// Frames returns the block length in frames.
func (c *Config) Frames() int {
	if c.FramesPerBlock == 0 {
		return int(c.SampleRate / BlocksPerSecond)
	}
	return c.FramesPerBlock
}

// BlockDuration is the playback time of one block.
func (c *Config) BlockDuration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// MaxBlocks converts Duration to a block count, rounding up. 0 means unbounded.
func (c *Config) MaxBlocks() int {
	if c.Duration <= 0 {
		return 0
	}
	frames := int64(c.Duration.Seconds()*float64(c.SampleRate) + 0.5)
	perBlock := int64(c.Frames())
	return int((frames + perBlock - 1) / perBlock)
}

// AboveNyquist reports whether the tone will alias.
func (c *Config) AboveNyquist() bool {
	return 2*c.Frequency >= c.SampleRate
}

// Validate rejects parameters the streaming loop cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SampleRate == 0 {
		errs = append(errs, errors.New("sample rate must be positive"))
	}
	if c.SampleRate > 1<<32-1 || c.Frequency > 1<<32-1 {
		errs = append(errs, errors.New("frequency and sample rate must fit in 32 bits"))
	}
	if c.Frequency == 0 {
		errs = append(errs, errors.New("frequency must be positive"))
	}
	if c.FramesPerBlock < 0 {
		errs = append(errs, fmt.Errorf("frames per block must be positive, got %d", c.FramesPerBlock))
	} else if c.SampleRate > 0 && c.Frames() == 0 {
		errs = append(errs, fmt.Errorf("sample rate %d is too low for the default block length; set frames per block", c.SampleRate))
	}
	if c.QueueBlocks < 0 {
		errs = append(errs, fmt.Errorf("queue depth must not be negative, got %d", c.QueueBlocks))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must not be negative, got %v", c.Duration))
	}
	if c.Latency < 0 {
		errs = append(errs, fmt.Errorf("latency must not be negative, got %v", c.Latency))
	}
	if !slices.Contains(sink.Kinds, c.Sink) {
		errs = append(errs, fmt.Errorf("unknown sink %q (use %v)", c.Sink, sink.Kinds))
	}
	if c.Sink == sink.KindFile && c.OutPath == "" {
		errs = append(errs, errors.New("file sink needs -out"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load parses args (without the program name) into a Config. Environment
// variables are read through getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("sinestream", flag.ContinueOnError)
	env := envDefaults{getenv: getenv}

	cfg := &Config{}
	fs.UintVar(&cfg.Frequency, "freq", env.getUint("SINESTREAM_FREQ", DefaultFrequency), "Sine frequency in Hz")
	fs.UintVar(&cfg.SampleRate, "samplerate", env.getUint("SINESTREAM_SAMPLERATE", DefaultSampleRate), "Sample rate in Hz")
	fs.IntVar(&cfg.FramesPerBlock, "frames", env.getInt("SINESTREAM_FRAMES", 0), "Frames per block (0 = samplerate/100, 10 ms)")
	sinkName := fs.String("sink", env.getString("SINESTREAM_SINK", string(sink.KindPulse)), fmt.Sprintf("Output sink: %v", sink.Kinds))
	fs.IntVar(&cfg.Device, "device", env.getInt("SINESTREAM_DEVICE", -1), "PortAudio output device index (-1 = default)")
	fs.StringVar(&cfg.OutPath, "out", env.getString("SINESTREAM_OUT", ""), "File sink path, - for stdout")
	fs.DurationVar(&cfg.Latency, "latency", env.getDuration("SINESTREAM_LATENCY", 0), "Requested sink latency (0 = sink default)")
	fs.IntVar(&cfg.QueueBlocks, "queue", env.getInt("SINESTREAM_QUEUE", 0), "Blocks buffered between generator and sink (0 = single loop)")
	fs.DurationVar(&cfg.Duration, "duration", env.getDuration("SINESTREAM_DURATION", 0), "Stop after this much audio (0 = run until interrupted)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", env.getString("SINESTREAM_METRICS_ADDR", ""), "Serve Prometheus metrics on this address")
	fs.BoolVar(&cfg.ListDevices, "list", false, "List PortAudio output devices and exit")
	fs.BoolVar(&cfg.Debug, "debug", env.getBool("SINESTREAM_DEBUG", false), "Development logging")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintln(out, "Usage: sinestream [options]")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Streams a continuous sine tone as mono native-endian float32 samples.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Examples:")
		fmt.Fprintln(out, "  sinestream")
		fmt.Fprintln(out, "  sinestream -sink portaudio -device 1 -freq 1000 -samplerate 48000")
		fmt.Fprintln(out, "  sinestream -sink file -out - | pacat --format=float32ne --channels=1 --rate=44100")
		fmt.Fprintln(out, "  sinestream -sink file -out tone.f32 -duration 5s")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if env.err != nil {
		return nil, env.err
	}
	cfg.Sink = sink.Kind(*sinkName)
	return cfg, nil
}

// LoadFromOS parses os.Args and the process environment.
func LoadFromOS() (*Config, error) {
	return Load(os.Args[1:], os.Getenv)
}

// envDefaults reads flag defaults from the environment, keeping the first
// malformed value as an error.
type envDefaults struct {
	getenv func(string) string
	err    error
}

func (e *envDefaults) lookup(key string) (string, bool) {
	if e.getenv == nil {
		return "", false
	}
	v := e.getenv(key)
	return v, v != ""
}

func (e *envDefaults) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("environment %s=%q: %w", key, v, err)
	}
}

func (e *envDefaults) getString(key, fallback string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return fallback
}

func (e *envDefaults) getInt(key string, fallback int) int {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return n
}

func (e *envDefaults) getUint(key string, fallback uint) uint {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 0)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return uint(n)
}

func (e *envDefaults) getBool(key string, fallback bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return b
}

func (e *envDefaults) getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return d
}
