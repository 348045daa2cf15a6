package portaudio

/*
#include <portaudio.h>
*/
import "C"
import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"
)

// clipOff is paClipOff: samples are expected to already be in [-1, 1].
const clipOff = 0x00000001

// codeOutputUnderflowed is paOutputUnderflowed. Pa_WriteStream returns it
// when the device ran dry before this write; the data was still written.
const codeOutputUnderflowed = int(C.paOutputUnderflowed)

// OutputParameters selects the device and layout of an output stream.
type OutputParameters struct {
	// Device is a PortAudio device index; negative selects the default output device.
	Device   int
	Channels int
	Format   SampleFormat
	// Latency is the suggested output latency. Zero picks the device's
	// default high output latency, which blocking writes need to avoid underruns.
	Latency time.Duration
}

// OutputStream is an output-only stream driven by blocking writes.
type OutputStream struct {
	stream     unsafe.Pointer
	params     OutputParameters
	sampleRate float64
	frameSize  int
	started    bool
	underflows atomic.Uint64
}

// OpenOutputStream validates params against the device and opens a stream
// in blocking I/O mode with clipping disabled.
func OpenOutputStream(params OutputParameters, sampleRate float64, framesPerBuffer int) (*OutputStream, error) {
	if params.Channels <= 0 {
		return nil, errors.New("portaudio: channel count must be positive")
	}
	if framesPerBuffer <= 0 {
		return nil, errors.New("portaudio: framesPerBuffer must be positive")
	}
	if sampleRate <= 0 {
		return nil, errors.New("portaudio: sample rate must be positive")
	}
	if params.Format.Size() == 0 {
		return nil, fmt.Errorf("portaudio: unsupported sample format %v", params.Format)
	}

	var (
		di  *DeviceInfo
		err error
	)
	if params.Device < 0 {
		di, err = DefaultOutputDevice()
	} else {
		di, err = Device(params.Device)
	}
	if err != nil {
		return nil, err
	}
	params.Device = di.Index
	if params.Channels > di.MaxOutputChannels {
		return nil, fmt.Errorf("portaudio: device %q supports %d output channels, %d requested",
			di.Name, di.MaxOutputChannels, params.Channels)
	}

	latency := params.Latency
	if latency <= 0 {
		latency = di.DefaultHighOutputLatency
	}

	outParams := C.PaStreamParameters{
		device:           C.PaDeviceIndex(params.Device),
		channelCount:     C.int(params.Channels),
		sampleFormat:     C.PaSampleFormat(params.Format),
		suggestedLatency: C.PaTime(latency.Seconds()),
	}

	if errCode := C.Pa_IsFormatSupported(nil, &outParams, C.double(sampleRate)); errCode != C.paFormatIsSupported {
		return nil, newError(errCode)
	}

	s := &OutputStream{
		params:     params,
		sampleRate: sampleRate,
		frameSize:  params.Channels * params.Format.Size(),
	}

	errCode := C.Pa_OpenStream(&s.stream,
		nil,
		&outParams,
		C.double(sampleRate),
		C.ulong(framesPerBuffer),
		C.ulong(clipOff),
		nil,
		nil)
	if errCode != C.paNoError {
		return nil, newError(errCode)
	}

	return s, nil
}

// Parameters returns the parameters the stream was opened with, with Device resolved.
func (s *OutputStream) Parameters() OutputParameters { return s.params }

// SampleRate returns the stream's sample rate in Hz.
func (s *OutputStream) SampleRate() float64 { return s.sampleRate }

// FrameSize is the byte size of one interleaved frame.
func (s *OutputStream) FrameSize() int { return s.frameSize }

// Start begins playback.
func (s *OutputStream) Start() error {
	if s.stream == nil {
		return &Error{Code: int(C.paBadStreamPtr)}
	}
	if errCode := C.Pa_StartStream(s.stream); errCode != C.paNoError {
		return newError(errCode)
	}
	s.started = true
	return nil
}

// Stop waits for queued output to play, then stops the stream.
func (s *OutputStream) Stop() error {
	if s.stream == nil {
		return &Error{Code: int(C.paBadStreamPtr)}
	}
	if !s.started {
		return nil
	}
	if errCode := C.Pa_StopStream(s.stream); errCode != C.paNoError {
		return newError(errCode)
	}
	s.started = false
	return nil
}

// Close stops the stream if needed and releases it. Safe to call twice.
func (s *OutputStream) Close() error {
	if s.stream == nil {
		return nil
	}
	var errs []error
	if err := s.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop stream: %w", err))
	}
	if errCode := C.Pa_CloseStream(s.stream); errCode != C.paNoError {
		errs = append(errs, fmt.Errorf("close stream: %w", newError(errCode)))
	}
	s.stream = nil
	return errors.Join(errs...)
}

// WriteAvailable returns the number of frames that can be written without blocking.
func (s *OutputStream) WriteAvailable() (int, error) {
	if s.stream == nil {
		return 0, &Error{Code: int(C.paBadStreamPtr)}
	}
	wa := C.Pa_GetStreamWriteAvailable(s.stream)
	if wa < 0 {
		return 0, &Error{Code: int(wa)}
	}
	return int(wa), nil
}

// Write sends interleaved frames to the stream and blocks until PortAudio
// has accepted all of them. len(buf) must be a whole number of frames.
// An underflow before the write is counted in Underflows, not returned.
func (s *OutputStream) Write(buf []byte) error {
	if s.stream == nil {
		return &Error{Code: int(C.paBadStreamPtr)}
	}
	if len(buf) == 0 {
		return errors.New("portaudio: buffer is empty")
	}
	if len(buf)%s.frameSize != 0 {
		return fmt.Errorf("portaudio: buffer of %d bytes is not a whole number of %d-byte frames",
			len(buf), s.frameSize)
	}

	frames := len(buf) / s.frameSize
	errCode := C.Pa_WriteStream(s.stream, unsafe.Pointer(&buf[0]), C.ulong(frames))
	underflowed, err := writeStatus(int(errCode))
	if underflowed {
		s.underflows.Add(1)
	}
	return err
}

// Underflows is the number of writes that found the device had run dry.
// Safe to call from any goroutine.
func (s *OutputStream) Underflows() uint64 { return s.underflows.Load() }

// writeStatus classifies a Pa_WriteStream result. An underflow is reported
// but is not an error.
func writeStatus(code int) (underflowed bool, err error) {
	switch code {
	case int(C.paNoError):
		return false, nil
	case codeOutputUnderflowed:
		return true, nil
	default:
		return false, newError(C.PaError(code))
	}
}
