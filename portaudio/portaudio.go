// Package portaudio is a small cgo binding to the PortAudio blocking I/O API.
//
// Only what a push-style player needs is exposed: library lifetime,
// output device discovery and output streams fed through Write. Write maps
// to Pa_WriteStream and blocks until PortAudio has room for the data, which
// is what paces a producer loop built on top of it.
//
//	if err := portaudio.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	defer portaudio.Terminate()
//
//	st, err := portaudio.OpenOutputStream(portaudio.OutputParameters{
//	    Device:   -1,
//	    Channels: 1,
//	    Format:   portaudio.SampleFmtFloat32,
//	}, 44100, 441)
//	...
//	st.Start()
//	st.Write(buf)
//
// # Thread Safety
//
// Initialize and Terminate are safe to call from any goroutine. An
// OutputStream must be used by one goroutine at a time.
package portaudio

/*
#cgo pkg-config: portaudio-2.0
#include <portaudio.h>

PaDeviceIndex Pa_GetDefaultOutputDevice(void);
const PaHostErrorInfo* Pa_GetLastHostErrorInfo(void);
*/
import "C"
import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// initialized is the Initialize reference count
	initialized int
	initMu      sync.Mutex
)

// SampleFormat is a PortAudio sample format (paFloat32, paInt16, ...).
type SampleFormat int

const (
	SampleFmtFloat32 SampleFormat = C.paFloat32
	SampleFmtInt32   SampleFormat = C.paInt32
	SampleFmtInt24   SampleFormat = C.paInt24
	SampleFmtInt16   SampleFormat = C.paInt16
	SampleFmtInt8    SampleFormat = C.paInt8
	SampleFmtUInt8   SampleFormat = C.paUInt8
)

// Size returns the number of bytes one sample occupies, or 0 for unknown formats.
func (f SampleFormat) Size() int {
	switch f {
	case SampleFmtFloat32, SampleFmtInt32:
		return 4
	case SampleFmtInt24:
		return 3
	case SampleFmtInt16:
		return 2
	case SampleFmtInt8, SampleFmtUInt8:
		return 1
	default:
		return 0
	}
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFmtFloat32:
		return "float32"
	case SampleFmtInt32:
		return "int32"
	case SampleFmtInt24:
		return "int24"
	case SampleFmtInt16:
		return "int16"
	case SampleFmtInt8:
		return "int8"
	case SampleFmtUInt8:
		return "uint8"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// Error is a PortAudio error code.
type Error struct {
	Code int
}

func (e *Error) Error() string {
	return ErrorText(e.Code)
}

// HostError is returned for paUnanticipatedHostError and carries the
// details reported by the host API (ALSA, CoreAudio, WASAPI, ...).
type HostError struct {
	Code          int
	Text          string
	HostApiType   int
	HostErrorCode int
	HostErrorText string
}

func (e *HostError) Error() string {
	if e.HostErrorText != "" {
		return fmt.Sprintf("%s [host API error %d: %s]", e.Text, e.HostErrorCode, e.HostErrorText)
	}
	return fmt.Sprintf("%s [host API error %d]", e.Text, e.HostErrorCode)
}

// ErrNotInitialized is returned by calls made outside Initialize/Terminate.
var ErrNotInitialized = errors.New("portaudio: library not initialized")

// ErrorText returns PortAudio's message for an error code.
func ErrorText(code int) string {
	return C.GoString(C.Pa_GetErrorText(C.PaError(code)))
}

func newError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}

	if code == C.paUnanticipatedHostError {
		if hostErr := C.Pa_GetLastHostErrorInfo(); hostErr != nil {
			return &HostError{
				Code:          int(code),
				Text:          C.GoString(C.Pa_GetErrorText(code)),
				HostApiType:   int(hostErr.hostApiType),
				HostErrorCode: int(hostErr.errorCode),
				HostErrorText: C.GoString(hostErr.errorText),
			}
		}
	}

	return &Error{Code: int(code)}
}

// VersionText returns the PortAudio library version string.
func VersionText() string {
	return C.GoString(C.Pa_GetVersionInfo().versionText)
}

// Initialize initializes PortAudio. Calls are reference counted: each
// successful Initialize must be paired with a Terminate, and the library is
// only shut down by the last one.
func Initialize() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized == 0 {
		if errCode := C.Pa_Initialize(); errCode != C.paNoError {
			return newError(errCode)
		}
	}
	initialized++
	return nil
}

// Terminate releases one Initialize reference.
func Terminate() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized == 0 {
		return nil
	}

	initialized--
	if initialized == 0 {
		if errCode := C.Pa_Terminate(); errCode != C.paNoError {
			initialized++
			return newError(errCode)
		}
	}
	return nil
}

func isInitialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return initialized > 0
}

// DeviceInfo describes the output side of a PortAudio device.
type DeviceInfo struct {
	Index                    int
	Name                     string
	HostApiIndex             int
	MaxOutputChannels        int
	DefaultLowOutputLatency  time.Duration
	DefaultHighOutputLatency time.Duration
	DefaultSampleRate        float64
}

func seconds(t C.PaTime) time.Duration {
	return time.Duration(float64(t) * float64(time.Second))
}

// DeviceCount returns the number of devices PortAudio knows about.
func DeviceCount() (int, error) {
	if !isInitialized() {
		return 0, ErrNotInitialized
	}
	dc := int(C.Pa_GetDeviceCount())
	if dc < 0 {
		return 0, &Error{Code: dc}
	}
	return dc, nil
}

// Device returns the description of the device at index.
func Device(index int) (*DeviceInfo, error) {
	if !isInitialized() {
		return nil, ErrNotInitialized
	}
	di := C.Pa_GetDeviceInfo(C.PaDeviceIndex(index))
	if di == nil {
		return nil, fmt.Errorf("portaudio: invalid device index %d", index)
	}

	return &DeviceInfo{
		Index:                    index,
		Name:                     C.GoString(di.name),
		HostApiIndex:             int(di.hostApi),
		MaxOutputChannels:        int(di.maxOutputChannels),
		DefaultLowOutputLatency:  seconds(di.defaultLowOutputLatency),
		DefaultHighOutputLatency: seconds(di.defaultHighOutputLatency),
		DefaultSampleRate:        float64(di.defaultSampleRate),
	}, nil
}

// OutputDevices returns every device with at least one output channel.
func OutputDevices() ([]*DeviceInfo, error) {
	count, err := DeviceCount()
	if err != nil {
		return nil, err
	}

	var devices []*DeviceInfo
	for i := range count {
		di, err := Device(i)
		if err != nil {
			return nil, err
		}
		if di.MaxOutputChannels > 0 {
			devices = append(devices, di)
		}
	}
	return devices, nil
}

// DefaultOutputDevice returns the host's default output device.
func DefaultOutputDevice() (*DeviceInfo, error) {
	if !isInitialized() {
		return nil, ErrNotInitialized
	}
	index := int(C.Pa_GetDefaultOutputDevice())
	if index < 0 {
		return nil, errors.New("portaudio: no default output device available")
	}
	return Device(index)
}
