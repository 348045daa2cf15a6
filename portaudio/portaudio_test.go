package portaudio

import (
	"errors"
	"testing"
)

// initOrSkip initializes PortAudio, skipping the test on hosts without it.
func initOrSkip(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() { _ = Terminate() })
}

func TestInitializeTerminate(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	if err := Terminate(); err != nil {
		t.Errorf("Terminate failed: %v", err)
	}
}

// TestMultipleInitialize tests reference counting behavior
func TestMultipleInitialize(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	if err := Initialize(); err != nil {
		t.Fatalf("Second Initialize failed: %v", err)
	}

	if err := Terminate(); err != nil {
		t.Errorf("First Terminate failed: %v", err)
	}
	if !isInitialized() {
		t.Error("library terminated while a reference is still held")
	}
	if err := Terminate(); err != nil {
		t.Errorf("Second Terminate failed: %v", err)
	}
	if isInitialized() {
		t.Error("library still initialized after matching Terminate")
	}

	// Extra Terminate is a no-op
	if err := Terminate(); err != nil {
		t.Errorf("unmatched Terminate: %v", err)
	}
}

func TestNotInitialized(t *testing.T) {
	if isInitialized() {
		t.Skip("library initialized by another test")
	}
	if _, err := DeviceCount(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DeviceCount() error = %v, want ErrNotInitialized", err)
	}
	if _, err := DefaultOutputDevice(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DefaultOutputDevice() error = %v, want ErrNotInitialized", err)
	}
}

func TestSampleFormatSize(t *testing.T) {
	tests := []struct {
		name     string
		format   SampleFormat
		expected int
	}{
		{"Float32", SampleFmtFloat32, 4},
		{"Int32", SampleFmtInt32, 4},
		{"Int24", SampleFmtInt24, 3},
		{"Int16", SampleFmtInt16, 2},
		{"Int8", SampleFmtInt8, 1},
		{"UInt8", SampleFmtUInt8, 1},
		{"Unknown", SampleFormat(0x4000), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if size := tt.format.Size(); size != tt.expected {
				t.Errorf("%v.Size() = %d, want %d", tt.format, size, tt.expected)
			}
		})
	}
}

func TestHostErrorText(t *testing.T) {
	err := &HostError{Text: "Unanticipated host error", HostErrorCode: -32, HostErrorText: "Broken pipe"}
	want := "Unanticipated host error [host API error -32: Broken pipe]"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err.HostErrorText = ""
	want = "Unanticipated host error [host API error -32]"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWriteStatus(t *testing.T) {
	const badStreamPtr = -9988

	tests := []struct {
		name          string
		code          int
		wantUnderflow bool
		wantCode      int // 0 = no error
	}{
		{"NoError", 0, false, 0},
		{"Underflowed", codeOutputUnderflowed, true, 0},
		{"BadStream", badStreamPtr, false, badStreamPtr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			underflowed, err := writeStatus(tt.code)
			if underflowed != tt.wantUnderflow {
				t.Errorf("underflowed = %v, want %v", underflowed, tt.wantUnderflow)
			}
			if tt.wantCode == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var paErr *Error
			if !errors.As(err, &paErr) || paErr.Code != tt.wantCode {
				t.Errorf("error = %v, want code %d", err, tt.wantCode)
			}
		})
	}
}

func TestOpenOutputStreamValidation(t *testing.T) {
	tests := []struct {
		name       string
		params     OutputParameters
		sampleRate float64
		frames     int
	}{
		{"ZeroChannels", OutputParameters{Device: -1, Channels: 0, Format: SampleFmtFloat32}, 44100, 441},
		{"ZeroFrames", OutputParameters{Device: -1, Channels: 1, Format: SampleFmtFloat32}, 44100, 0},
		{"ZeroRate", OutputParameters{Device: -1, Channels: 1, Format: SampleFmtFloat32}, 0, 441},
		{"BadFormat", OutputParameters{Device: -1, Channels: 1, Format: SampleFormat(0x4000)}, 44100, 441},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenOutputStream(tt.params, tt.sampleRate, tt.frames); err == nil {
				t.Error("OpenOutputStream should fail")
			}
		})
	}
}

func TestOutputDevices(t *testing.T) {
	initOrSkip(t)

	devices, err := OutputDevices()
	if err != nil {
		t.Fatalf("OutputDevices failed: %v", err)
	}
	for _, d := range devices {
		if d.MaxOutputChannels <= 0 {
			t.Errorf("device %d (%s) has no output channels", d.Index, d.Name)
		}
	}
	t.Logf("Found %d output devices", len(devices))

	if _, err := Device(-1); err == nil {
		t.Error("Device(-1) should fail")
	}
}

func TestOutputStreamLifecycle(t *testing.T) {
	initOrSkip(t)

	if _, err := DefaultOutputDevice(); err != nil {
		t.Skip("No default output device available")
	}

	st, err := OpenOutputStream(OutputParameters{
		Device:   -1,
		Channels: 1,
		Format:   SampleFmtFloat32,
	}, 44100, 441)
	if err != nil {
		t.Skipf("float32 mono output not supported: %v", err)
	}
	defer st.Close()

	if st.FrameSize() != 4 {
		t.Errorf("FrameSize() = %d, want 4", st.FrameSize())
	}

	if err := st.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 441 frames of silence
	if err := st.Write(make([]byte, 441*4)); err != nil {
		t.Errorf("Write failed: %v", err)
	}
	if err := st.Write(make([]byte, 7)); err == nil {
		t.Error("Write with a partial frame should fail")
	}
	if err := st.Write(nil); err == nil {
		t.Error("Write with an empty buffer should fail")
	}

	if err := st.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := st.Write(make([]byte, 4)); err == nil {
		t.Error("Write on a closed stream should fail")
	}
}
