package config

import (
	"strings"
	"testing"
	"time"

	"github.com/drgolem/go-sinestream/sink"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, envMap(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Frequency != 440 || cfg.SampleRate != 44100 {
		t.Errorf("defaults = %d Hz @ %d Hz, want 440 @ 44100", cfg.Frequency, cfg.SampleRate)
	}
	if cfg.Frames() != 441 {
		t.Errorf("Frames() = %d, want 441", cfg.Frames())
	}
	if cfg.BlockDuration() != 10*time.Millisecond {
		t.Errorf("BlockDuration() = %v, want 10ms", cfg.BlockDuration())
	}
	if cfg.Sink != sink.KindPulse || cfg.Device != -1 || cfg.QueueBlocks != 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	env := envMap(map[string]string{
		"SINESTREAM_FREQ":       "1000",
		"SINESTREAM_SAMPLERATE": "48000",
		"SINESTREAM_SINK":       "file",
		"SINESTREAM_OUT":        "-",
		"SINESTREAM_QUEUE":      "4",
	})

	cfg, err := Load([]string{"-freq", "250", "-duration", "2s"}, env)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Frequency != 250 {
		t.Errorf("Frequency = %d, want flag value 250", cfg.Frequency)
	}
	if cfg.SampleRate != 48000 || cfg.Sink != sink.KindFile || cfg.OutPath != "-" || cfg.QueueBlocks != 4 {
		t.Errorf("environment defaults not applied: %+v", cfg)
	}
	if cfg.Duration != 2*time.Second {
		t.Errorf("Duration = %v, want 2s", cfg.Duration)
	}
}

func TestLoadBadEnv(t *testing.T) {
	_, err := Load(nil, envMap(map[string]string{"SINESTREAM_FRAMES": "ten"}))
	if err == nil || !strings.Contains(err.Error(), "SINESTREAM_FRAMES") {
		t.Errorf("Load error = %v, want one naming SINESTREAM_FRAMES", err)
	}
}

func TestLoadBadFlag(t *testing.T) {
	if _, err := Load([]string{"-freq", "-3"}, envMap(nil)); err == nil {
		t.Error("Load with a negative frequency flag should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Frequency: 440, SampleRate: 44100, Sink: sink.KindPulse, Device: -1}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"Valid", func(*Config) {}, ""},
		{"ZeroSampleRate", func(c *Config) { c.SampleRate = 0 }, "sample rate"},
		{"ZeroFrequency", func(c *Config) { c.Frequency = 0 }, "frequency"},
		{"NegativeFrames", func(c *Config) { c.FramesPerBlock = -1 }, "frames per block"},
		{"RateTooLowForDefaultBlock", func(c *Config) { c.SampleRate = 50 }, "too low"},
		{"RateLowWithExplicitBlock", func(c *Config) { c.SampleRate = 50; c.Frequency = 5; c.FramesPerBlock = 1 }, ""},
		{"NegativeQueue", func(c *Config) { c.QueueBlocks = -2 }, "queue"},
		{"NegativeDuration", func(c *Config) { c.Duration = -time.Second }, "duration"},
		{"UnknownSink", func(c *Config) { c.Sink = "jack" }, "unknown sink"},
		{"FileWithoutOut", func(c *Config) { c.Sink = sink.KindFile }, "-out"},
		{"AboveNyquistAllowed", func(c *Config) { c.Frequency = 30000 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMaxBlocks(t *testing.T) {
	tests := []struct {
		duration time.Duration
		frames   int
		want     int
	}{
		{0, 0, 0},
		{time.Second, 0, 100},
		{15 * time.Millisecond, 0, 2},
		{time.Second, 1000, 45},
		{time.Second, 1, 44100},
	}

	for _, tt := range tests {
		cfg := &Config{SampleRate: 44100, FramesPerBlock: tt.frames, Duration: tt.duration}
		if got := cfg.MaxBlocks(); got != tt.want {
			t.Errorf("MaxBlocks(%v, %d frames) = %d, want %d", tt.duration, tt.frames, got, tt.want)
		}
	}
}

func TestAboveNyquist(t *testing.T) {
	if (&Config{Frequency: 440, SampleRate: 44100}).AboveNyquist() {
		t.Error("440 Hz at 44100 Hz reported as aliasing")
	}
	if !(&Config{Frequency: 22050, SampleRate: 44100}).AboveNyquist() {
		t.Error("22050 Hz at 44100 Hz not reported as aliasing")
	}
}
