package sink

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Writer is a sink over an io.Writer. The stream is raw native-endian
// float32 mono, e.g. for `pacat --format=float32ne --channels=1`.
// Writes go straight to the writer so that a blocking pipe paces the
// producer.
type Writer struct {
	w      io.Writer
	closer io.Closer
	closed bool
}

// NewWriter returns a sink writing to w. If w is an io.Closer it is closed
// by Close.
func NewWriter(w io.Writer) *Writer {
	s := &Writer{w: w}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenFile creates opts.Path, or uses standard output for "-".
func OpenFile(opts Options) (*Writer, error) {
	log := opts.logger()
	switch opts.Path {
	case "":
		return nil, errors.New("sink: file sink needs a path")
	case "-":
		log.Info("writing raw float32 samples to stdout")
		// stdout is not ours to close
		return &Writer{w: os.Stdout}, nil
	}

	f, err := os.Create(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	log.Info("writing raw float32 samples", zap.String("path", opts.Path))
	return NewWriter(f), nil
}

// Write passes block to the underlying writer.
func (s *Writer) Write(block []byte) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.w.Write(block); err != nil {
		return fmt.Errorf("sink: write: %w", err)
	}
	return nil
}

// Close closes the underlying writer when it owns it.
func (s *Writer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
