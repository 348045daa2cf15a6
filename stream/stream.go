// Package stream runs the synthesis loop: fill a sample block, encode it,
// hand it to the sink, repeat.
//
// The sink's blocking Write is the only pacing. Nothing in the loop sleeps
// or keeps time; a slow sink slows generation down to its rate.
//
// Single loop (default):
//
//	┌───────────────┐   ┌───────────────┐   ┌──────────────────────┐
//	│ gen.Update    │──▶│ sample.Encode │──▶│ sink.Write (blocks)  │──┐
//	└───────────────┘   └───────────────┘   └──────────────────────┘  │
//	        ▲───────────────────────────────────────────────────────────┘
//
// Pipelined (QueueBlocks > 0):
//
//	Producer goroutine       Ring buffer (QueueBlocks)     Writer
//	┌──────────────────┐     ┌──────────────────┐     ┌──────────────────────┐
//	│ Update + Encode  │─W─▶│ whole blocks, FIFO │──R─▶│ sink.Write (blocks)  │
//	└──────────────────┘     └──────────────────┘     └──────────────────────┘
//
// In the pipelined form a full ring blocks the producer, so sink backpressure
// still reaches the generator, and blocks reach the sink in the order they
// were generated.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"
	"go.uber.org/zap"

	"github.com/drgolem/go-sinestream/internal/metrics"
	"github.com/drgolem/go-sinestream/sample"
	"github.com/drgolem/go-sinestream/sink"
	"github.com/drgolem/go-sinestream/wave"
)

// ErrAlreadyRunning is returned by Run while another Run is in progress.
var ErrAlreadyRunning = errors.New("stream: already running")

// Options configures a Streamer.
type Options struct {
	// FramesPerBlock is the number of samples per block; must be positive.
	FramesPerBlock int
	// QueueBlocks > 0 decouples generation from sink writes with a queue of
	// this many blocks. 0 runs everything on the calling goroutine.
	QueueBlocks int
	// MaxBlocks stops the stream after this many blocks; 0 runs until the
	// context is cancelled.
	MaxBlocks int
	Logger    *zap.Logger
}

// Streamer owns the generator and both block buffers for its lifetime.
type Streamer struct {
	gen  wave.Generator
	sink sink.Sink
	opts Options
	log  *zap.Logger

	samples []float32
	block   []byte

	running atomic.Bool

	// Diagnostics
	blocksGenerated atomic.Uint64
	blocksWritten   atomic.Uint64
	framesWritten   atomic.Uint64
	writeErrors     atomic.Uint64
	maxWriteNs      atomic.Int64
	totalWriteNs    atomic.Int64
	minQueueFill    atomic.Int64
}

// New allocates the sample and byte blocks once; Run reuses them for every block.
func New(gen wave.Generator, s sink.Sink, opts Options) (*Streamer, error) {
	if gen == nil {
		return nil, errors.New("stream: generator is nil")
	}
	if s == nil {
		return nil, errors.New("stream: sink is nil")
	}
	if opts.FramesPerBlock <= 0 {
		return nil, fmt.Errorf("stream: frames per block must be positive, got %d", opts.FramesPerBlock)
	}
	if opts.QueueBlocks < 0 {
		return nil, fmt.Errorf("stream: queue depth must not be negative, got %d", opts.QueueBlocks)
	}
	if opts.MaxBlocks < 0 {
		return nil, fmt.Errorf("stream: block limit must not be negative, got %d", opts.MaxBlocks)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	st := &Streamer{
		gen:     gen,
		sink:    s,
		opts:    opts,
		log:     log,
		samples: make([]float32, opts.FramesPerBlock),
		block:   make([]byte, sample.BlockSize(opts.FramesPerBlock)),
	}
	st.minQueueFill.Store(-1)
	return st, nil
}

// Run streams until ctx is cancelled, MaxBlocks blocks have been written, or
// the sink fails. Cancellation is checked once per block and is not an
// error; a sink failure is returned and ends the stream.
//
// Run does not close the sink.
func (s *Streamer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.log.Debug("stream running",
		zap.Int("framesPerBlock", s.opts.FramesPerBlock),
		zap.Int("blockBytes", len(s.block)),
		zap.Int("queueBlocks", s.opts.QueueBlocks),
		zap.Int("maxBlocks", s.opts.MaxBlocks))

	if s.opts.QueueBlocks > 0 {
		return s.runPipelined(ctx)
	}
	return s.runLoop(ctx)
}

func (s *Streamer) more(n int) bool {
	return s.opts.MaxBlocks == 0 || n < s.opts.MaxBlocks
}

// next generates and encodes the next block into s.block.
func (s *Streamer) next() []byte {
	block := sample.Encode(s.gen.Update(s.samples), s.block)
	s.blocksGenerated.Add(1)
	return block
}

func (s *Streamer) runLoop(ctx context.Context) error {
	for n := 0; s.more(n); n++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.write(s.next()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Streamer) runPipelined(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	blockBytes := len(s.block)
	ring := ringbuffer.New(blockBytes * s.opts.QueueBlocks).SetBlocking(true)

	// Cancellation (from the caller or a failed write) unblocks both ends.
	stop := context.AfterFunc(ctx, func() {
		ring.CloseWithError(context.Cause(ctx))
	})
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.produce(ctx, ring)
	}()

	err := s.consume(ring, blockBytes)
	cancel(err)
	wg.Wait()
	metrics.QueuedBytes.Set(0)
	return err
}

// produce fills the ring with whole blocks. Only this goroutine touches the
// generator and the Streamer's block buffers.
func (s *Streamer) produce(ctx context.Context, ring *ringbuffer.RingBuffer) {
	for n := 0; s.more(n); n++ {
		if ctx.Err() != nil {
			return
		}
		if _, err := ring.Write(s.next()); err != nil {
			// ring closed by cancellation
			return
		}
	}
	ring.CloseWriter()
}

// consume reads whole blocks from the ring in order and writes them to the sink.
func (s *Streamer) consume(ring *ringbuffer.RingBuffer, blockBytes int) error {
	buf := make([]byte, blockBytes)
	for {
		fill := int64(ring.Length())
		metrics.QueuedBytes.Set(float64(fill))
		if lowest := s.minQueueFill.Load(); lowest < 0 || fill < lowest {
			s.minQueueFill.Store(fill)
		}

		if _, err := io.ReadFull(ring, buf); err != nil {
			// io.EOF once the producer has finished and the ring is
			// drained; any other error means the ring was closed on
			// cancellation.
			return nil
		}

		if err := s.write(buf); err != nil {
			return err
		}
	}
}

// write hands one block to the sink and records how long it blocked.
func (s *Streamer) write(block []byte) error {
	start := time.Now()
	err := s.sink.Write(block)
	duration := time.Since(start)

	metrics.WriteDuration.Observe(float64(duration) / float64(time.Millisecond))
	s.totalWriteNs.Add(int64(duration))
	if int64(duration) > s.maxWriteNs.Load() {
		s.maxWriteNs.Store(int64(duration))
	}

	if err != nil {
		s.writeErrors.Add(1)
		metrics.WriteErrorsTotal.Inc()
		return fmt.Errorf("stream: sink write: %w", err)
	}

	frames := len(block) / sample.Float32Size
	s.blocksWritten.Add(1)
	s.framesWritten.Add(uint64(frames))
	metrics.BlocksWrittenTotal.Inc()
	metrics.FramesWrittenTotal.Add(float64(frames))
	return nil
}
