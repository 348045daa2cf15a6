package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Pipe is a sink feeding a pull-model output, one that reads samples from an
// io.Reader on its own goroutine. Write returns once the output has read the
// whole block, so the output's read rate paces the writer.
//
// An output that stops reading because it failed would leave Write blocked.
// Watch polls the output's error and breaks the pipe when it reports one,
// which fails the blocked Write with that error.
type Pipe struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	// err reports a failure of the output, checked before every write.
	err func() error
}

// NewPipe returns a Pipe; the output reads from Reader.
func NewPipe() *Pipe {
	r, w := io.Pipe()
	return &Pipe{r: r, w: w, stop: make(chan struct{})}
}

// Reader is the end the output consumes. It returns io.EOF after Close and
// the output's error after a failure seen by Watch.
func (p *Pipe) Reader() io.Reader { return p.r }

// Watch checks outputErr every interval until Close. The first error it sees
// fails any blocked Write and every later one. Call it at most once, after
// the output exists.
func (p *Pipe) Watch(outputErr func() error, every time.Duration) {
	p.mu.Lock()
	p.err = outputErr
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				if err := outputErr(); err != nil {
					p.r.CloseWithError(err)
					return
				}
			}
		}
	}()
}

// Write blocks until the output has read the whole block or has failed.
func (p *Pipe) Write(block []byte) error {
	p.mu.Lock()
	closed, outputErr := p.closed, p.err
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if outputErr != nil {
		if err := outputErr(); err != nil {
			return fmt.Errorf("sink: output failed: %w", err)
		}
	}
	if _, err := p.w.Write(block); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return ErrClosed
		}
		return fmt.Errorf("sink: output failed: %w", err)
	}
	return nil
}

// Close signals end of data to the output and fails a Write still waiting
// for it with ErrClosed.
func (p *Pipe) Close() error {
	p.closeWrite()
	return nil
}

// closeWrite reports whether this call did the closing.
func (p *Pipe) closeWrite() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	close(p.stop)
	p.w.Close()
	return true
}
