// Package sink delivers encoded sample blocks to audio outputs.
//
// Every sink accepts blocks of native-endian float32 mono samples at the
// sample rate it was opened with. Write blocks until the output has taken the
// whole block; that blocking is what paces the producer, so sinks never
// buffer without bound.
package sink

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Sink is a playback output for encoded sample blocks.
type Sink interface {
	// Write blocks until block has been accepted by the output. A failed
	// write is not retried: the sink is unusable afterwards.
	Write(block []byte) error
	// Close flushes what was written and releases the output.
	Close() error
}

// UnderflowCounter is implemented by sinks that can tell when the output
// ran out of samples between writes.
type UnderflowCounter interface {
	Underflows() uint64
}

// outputPoll is how often pull-model sinks check their output for a failure.
const outputPoll = 20 * time.Millisecond

var (
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("sink: closed")
	// ErrUnavailable is returned when a sink was compiled out of this build.
	ErrUnavailable = errors.New("sink: not available in this build")
)

// Kind names a sink implementation.
type Kind string

const (
	KindPulse     Kind = "pulse"
	KindPortAudio Kind = "portaudio"
	KindOto       Kind = "oto"
	KindFile      Kind = "file"
)

// Kinds lists every sink name Open understands.
var Kinds = []Kind{KindPulse, KindPortAudio, KindOto, KindFile}

// Options describes the stream negotiated with the output once at startup.
type Options struct {
	SampleRate int
	// FramesPerBlock is the size of the blocks that will be written.
	FramesPerBlock int
	// Latency is the requested output latency; zero leaves it to the output.
	Latency time.Duration
	// Device is the PortAudio device index; negative selects the default.
	Device int
	// Path is the file sink destination, "-" for standard output.
	Path string
	// Name identifies the stream to sound servers that show one.
	Name   string
	Logger *zap.Logger
}

func (o *Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Options) name() string {
	if o.Name == "" {
		return "sinestream"
	}
	return o.Name
}

func (o *Options) validate() error {
	if o.SampleRate <= 0 {
		return fmt.Errorf("sink: sample rate must be positive, got %d", o.SampleRate)
	}
	if o.FramesPerBlock <= 0 {
		return fmt.Errorf("sink: frames per block must be positive, got %d", o.FramesPerBlock)
	}
	return nil
}

// Open opens the sink of the given kind.
func Open(kind Kind, opts Options) (Sink, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	switch kind {
	case KindPulse:
		return opened(OpenPulse(opts))
	case KindPortAudio:
		return opened(OpenPortAudio(opts))
	case KindOto:
		return opened(OpenOto(opts))
	case KindFile:
		return opened(OpenFile(opts))
	default:
		return nil, fmt.Errorf("sink: unknown kind %q", kind)
	}
}

// opened keeps a failed open from producing a non-nil Sink holding a nil pointer.
func opened[S Sink](s S, err error) (Sink, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
