package wave

import (
	"errors"
	"math"
	"testing"
)

func mustSine(t *testing.T, frequency, sampleRate uint32) *Sine {
	t.Helper()
	s, err := NewSine(frequency, sampleRate)
	if err != nil {
		t.Fatalf("NewSine(%d, %d) failed: %v", frequency, sampleRate, err)
	}
	return s
}

func TestNewSineZeroSampleRate(t *testing.T) {
	if _, err := NewSine(440, 0); !errors.Is(err, ErrZeroSampleRate) {
		t.Errorf("NewSine(440, 0) error = %v, want ErrZeroSampleRate", err)
	}
}

func TestBlockContinuity(t *testing.T) {
	tests := []struct {
		name       string
		frequency  uint32
		sampleRate uint32
		blocks     []int
	}{
		{"440Hz/44100 10ms", 440, 44100, []int{441, 441, 441, 441}},
		{"uneven blocks", 440, 44100, []int{1, 440, 1000, 3, 44100, 7}},
		{"1kHz/48000", 1000, 48000, []int{480, 17, 480, 9000}},
		{"above nyquist", 30000, 44100, []int{100, 200, 300}},
		{"frequency equals rate", 8000, 8000, []int{5, 5}},
		{"tiny rate", 3, 7, []int{2, 9, 1, 13}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			for _, n := range tt.blocks {
				total += n
			}
			want := mustSine(t, tt.frequency, tt.sampleRate).Update(make([]float32, total))

			chunked := mustSine(t, tt.frequency, tt.sampleRate)
			pos := 0
			for _, n := range tt.blocks {
				got := chunked.Update(make([]float32, n))
				for i, v := range got {
					if math.Float32bits(v) != math.Float32bits(want[pos+i]) {
						t.Fatalf("sample %d: chunked %v, single call %v", pos+i, v, want[pos+i])
					}
				}
				pos += n
			}
		})
	}
}

func TestSingleFrameBlocks(t *testing.T) {
	const n = 3 * 44100
	want := mustSine(t, 440, 44100).Update(make([]float32, n))

	s := mustSine(t, 440, 44100)
	buf := make([]float32, 1)
	for i := range n {
		s.Update(buf)
		if math.Float32bits(buf[0]) != math.Float32bits(want[i]) {
			t.Fatalf("sample %d: got %v, want %v", i, buf[0], want[i])
		}
	}
}

func TestStepWraps(t *testing.T) {
	s := mustSine(t, 440, 44100)
	buf := make([]float32, 441)

	total := 0
	for range 250 {
		s.Update(buf)
		total += len(buf)
		if want := uint32(total % 44100); s.Step() != want {
			t.Fatalf("after %d samples Step() = %d, want %d", total, s.Step(), want)
		}
	}

	s.Update(make([]float32, 100000))
	total += 100000
	if want := uint32(total % 44100); s.Step() != want {
		t.Errorf("after %d samples Step() = %d, want %d", total, s.Step(), want)
	}
}

func TestSineValues(t *testing.T) {
	const (
		freq = 440
		rate = 44100
	)
	s := mustSine(t, freq, rate)
	buf := make([]float32, 441)

	first := s.Update(buf)
	if first[0] != 0 {
		t.Errorf("first sample = %v, want 0", first[0])
	}

	// Run to the 441st block and check its last sample and the first sample
	// of the next block against the absolute sample index.
	for range 439 {
		s.Update(buf)
	}
	last := s.Update(buf)[440]
	next := s.Update(make([]float32, 1))[0]

	at := func(n int) float64 {
		return math.Sin(2 * math.Pi * float64(freq) * float64(n) / rate)
	}
	if d := math.Abs(float64(last) - at(441*441-1)); d > 1e-6 {
		t.Errorf("sample %d = %v, want %v", 441*441-1, last, at(441*441-1))
	}
	if d := math.Abs(float64(next) - at(441*441)); d > 1e-6 {
		t.Errorf("sample %d = %v, want %v", 441*441, next, at(441*441))
	}
}

func TestSinePeriodicity(t *testing.T) {
	// 441 Hz at 44100 Hz repeats exactly every 100 samples.
	s := mustSine(t, 441, 44100)
	buf := s.Update(make([]float32, 10000))
	for i := 100; i < len(buf); i++ {
		if math.Float32bits(buf[i]) != math.Float32bits(buf[i-100]) {
			t.Fatalf("sample %d = %v, differs from sample %d = %v", i, buf[i], i-100, buf[i-100])
		}
	}
}

func TestSineRange(t *testing.T) {
	s := mustSine(t, 997, 44100)
	for i, v := range s.Update(make([]float32, 44100)) {
		if v < -1 || v > 1 {
			t.Fatalf("sample %d = %v out of [-1, 1]", i, v)
		}
	}
}

func TestUpdateEmptyBuffer(t *testing.T) {
	s := mustSine(t, 440, 44100)
	s.Update(make([]float32, 10))
	if got := s.Update(nil); len(got) != 0 {
		t.Errorf("Update(nil) returned %d samples", len(got))
	}
	if s.Step() != 10 {
		t.Errorf("Step() = %d after empty update, want 10", s.Step())
	}
}

func BenchmarkSineUpdate(b *testing.B) {
	s, _ := NewSine(440, 44100)
	buf := make([]float32, 441)
	b.ReportAllocs()
	for b.Loop() {
		s.Update(buf)
	}
}
