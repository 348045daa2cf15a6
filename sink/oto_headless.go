//go:build headless

package sink

// Oto is compiled out of headless builds.
type Oto struct{}

// OpenOto always fails with ErrUnavailable.
func OpenOto(Options) (*Oto, error) {
	return nil, ErrUnavailable
}

func (*Oto) Write([]byte) error { return ErrUnavailable }

func (*Oto) Close() error { return nil }
