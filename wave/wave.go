// Package wave generates mono sample blocks for streaming playback.
package wave

import (
	"errors"
	"math"
)

// ErrZeroSampleRate is returned when an oscillator is built with a sample rate of 0.
var ErrZeroSampleRate = errors.New("wave: sample rate must be positive")

// Generator fills caller-owned sample blocks. Successive calls continue the
// waveform where the previous block ended, so the output does not depend on
// how it is split into blocks.
type Generator interface {
	// Update overwrites every element of buf and returns buf.
	Update(buf []float32) []float32
}

// Sine is a fixed-frequency sine oscillator.
//
// The phase is kept as an integer: the sample index modulo the sample rate.
// The angle for sample n is 2π·((frequency·n) mod sampleRate)/sampleRate, with
// the product and the reduction done in integer arithmetic and converted to
// floating point once per sample, so the frequency does not drift however
// long the oscillator runs.
type Sine struct {
	frequency  uint64
	sampleRate uint64
	step       uint64 // in [0, sampleRate)
	multiplier float64
}

var _ Generator = (*Sine)(nil)

// NewSine returns an oscillator at frequency Hz sampled at sampleRate Hz,
// starting at phase 0.
//
// Frequencies at or above sampleRate/2 are accepted and alias.
func NewSine(frequency, sampleRate uint32) (*Sine, error) {
	if sampleRate == 0 {
		return nil, ErrZeroSampleRate
	}
	return &Sine{
		frequency:  uint64(frequency),
		sampleRate: uint64(sampleRate),
		multiplier: 2 * math.Pi / float64(sampleRate),
	}, nil
}

// Frequency is the tone frequency in Hz.
func (s *Sine) Frequency() uint32 { return uint32(s.frequency) }

// SampleRate is the output sample rate in Hz.
func (s *Sine) SampleRate() uint32 { return uint32(s.sampleRate) }

// Step returns the index of the next sample modulo the sample rate.
func (s *Sine) Step() uint32 { return uint32(s.step) }

// Update fills buf with the next len(buf) samples and returns it.
func (s *Sine) Update(buf []float32) []float32 {
	// frequency < 2^32 and phase < sampleRate < 2^32, so phase+frequency
	// never overflows uint64.
	freq := s.frequency % s.sampleRate
	phase := (s.step * s.frequency) % s.sampleRate
	for i := range buf {
		buf[i] = float32(math.Sin(float64(phase) * s.multiplier))
		phase += freq
		if phase >= s.sampleRate {
			phase -= s.sampleRate
		}
	}
	s.step = (s.step + uint64(len(buf))%s.sampleRate) % s.sampleRate
	return buf
}
