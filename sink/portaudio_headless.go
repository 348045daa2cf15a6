//go:build headless

package sink

import "io"

// PortAudio is compiled out of headless builds.
type PortAudio struct{}

// OpenPortAudio always fails with ErrUnavailable.
func OpenPortAudio(Options) (*PortAudio, error) {
	return nil, ErrUnavailable
}

func (*PortAudio) Write([]byte) error { return ErrUnavailable }

func (*PortAudio) Close() error { return nil }

// ListDevices always fails with ErrUnavailable.
func ListDevices(io.Writer) error {
	return ErrUnavailable
}
