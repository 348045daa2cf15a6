//go:build !headless

package sink

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/drgolem/go-sinestream/portaudio"
)

// PortAudio writes blocks with PortAudio's blocking Pa_WriteStream.
type PortAudio struct {
	stream *portaudio.OutputStream
	closed bool
}

// OpenPortAudio opens and starts a mono float32 output stream on opts.Device.
func OpenPortAudio(opts Options) (*PortAudio, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.logger()

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("sink: initialize portaudio: %w", err)
	}

	st, err := portaudio.OpenOutputStream(portaudio.OutputParameters{
		Device:   opts.Device,
		Channels: 1,
		Format:   portaudio.SampleFmtFloat32,
		Latency:  opts.Latency,
	}, float64(opts.SampleRate), opts.FramesPerBlock)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("sink: open portaudio stream: %w", err)
	}

	if err := st.Start(); err != nil {
		st.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("sink: start portaudio stream: %w", err)
	}

	log.Info("portaudio playback started",
		zap.String("version", portaudio.VersionText()),
		zap.Int("device", st.Parameters().Device),
		zap.Int("sampleRate", opts.SampleRate),
		zap.Int("framesPerBuffer", opts.FramesPerBlock))
	return &PortAudio{stream: st}, nil
}

// Write blocks in Pa_WriteStream until PortAudio has room for block.
func (s *PortAudio) Write(block []byte) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.stream.Write(block); err != nil {
		return fmt.Errorf("sink: portaudio write: %w", err)
	}
	return nil
}

// Underflows counts writes that found the device had run dry.
func (s *PortAudio) Underflows() uint64 {
	return s.stream.Underflows()
}

// Close stops the stream after queued output has played.
func (s *PortAudio) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if err := s.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("terminate: %w", err))
	}
	return errors.Join(errs...)
}

// ListDevices prints the PortAudio output devices to w.
func ListDevices(w io.Writer) error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	fmt.Fprintf(w, "PortAudio version: %s\n", portaudio.VersionText())

	def, _ := portaudio.DefaultOutputDevice()
	devices, err := portaudio.OutputDevices()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\nAvailable Output Devices:")
	fmt.Fprintln(w, "=========================")
	for _, d := range devices {
		marker := ""
		if def != nil && def.Index == d.Index {
			marker = " (default)"
		}
		fmt.Fprintf(w, "Device %d: %s%s\n", d.Index, d.Name, marker)
		fmt.Fprintf(w, "  Channels: %d output\n", d.MaxOutputChannels)
		fmt.Fprintf(w, "  Sample Rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "  Low Latency: %.1f ms\n", float64(d.DefaultLowOutputLatency.Microseconds())/1000)
		fmt.Fprintf(w, "  High Latency: %.1f ms\n", float64(d.DefaultHighOutputLatency.Microseconds())/1000)
		fmt.Fprintln(w)
	}
	return nil
}
