package sink

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"

	"github.com/drgolem/go-sinestream/sample"
)

// Pulse plays through a PulseAudio (or PipeWire-pulse) server as a mono
// float32 playback stream in host byte order.
type Pulse struct {
	client *pulse.Client
	stream *pulse.PlaybackStream
	pipe   *Pipe
	log    *zap.Logger
}

// pulseReader feeds the playback stream from the pipe and turns the end of
// the pipe into the library's end-of-data marker.
type pulseReader struct {
	r      io.Reader
	format byte
}

func (r *pulseReader) Read(buf []byte) (int, error) {
	n, err := r.r.Read(buf)
	if errors.Is(err, io.EOF) {
		err = pulse.EndOfData
	}
	return n, err
}

func (r *pulseReader) Format() byte { return r.format }

func pulseFormat() byte {
	if sample.NativeLittleEndian() {
		return proto.FormatFloat32LE
	}
	return proto.FormatFloat32BE
}

// OpenPulse connects to the sound server and starts a playback stream.
func OpenPulse(opts Options) (*Pulse, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.logger()

	client, err := pulse.NewClient(pulse.ClientApplicationName(opts.name()))
	if err != nil {
		return nil, fmt.Errorf("sink: connect to pulse server: %w", err)
	}

	p := &Pulse{client: client, pipe: NewPipe(), log: log}

	playbackOpts := []pulse.PlaybackOption{
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(opts.SampleRate),
	}
	if opts.Latency > 0 {
		playbackOpts = append(playbackOpts, pulse.PlaybackLatency(opts.Latency.Seconds()))
	}

	reader := &pulseReader{r: p.pipe.Reader(), format: pulseFormat()}
	stream, err := client.NewPlayback(reader, playbackOpts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("sink: create pulse playback: %w", err)
	}
	p.stream = stream
	p.pipe.Watch(stream.Error, outputPoll)
	stream.Start()

	log.Info("pulse playback started",
		zap.Int("sampleRate", opts.SampleRate),
		zap.Duration("latency", opts.Latency))
	return p, nil
}

// Write blocks until the playback stream has read block.
func (p *Pulse) Write(block []byte) error {
	return p.pipe.Write(block)
}

// Close plays out what was written, then disconnects.
func (p *Pulse) Close() error {
	if !p.pipe.closeWrite() {
		return nil
	}
	err := p.stream.Error()
	if err == nil {
		p.stream.Drain()
		err = p.stream.Error()
	}
	if p.stream.Underflow() {
		p.log.Warn("pulse playback underflowed")
	}
	p.stream.Close()
	p.client.Close()
	if err != nil {
		return fmt.Errorf("sink: pulse playback: %w", err)
	}
	return nil
}
