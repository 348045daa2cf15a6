package stream

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/drgolem/go-sinestream/sink"
)

// Diagnostics is a snapshot of a Streamer's counters.
type Diagnostics struct {
	FramesPerBlock int
	QueueBlocks    int

	BlocksGenerated uint64
	BlocksWritten   uint64
	FramesWritten   uint64
	WriteErrors     uint64
	// Underflows is reported by sinks that can detect the output running dry.
	Underflows uint64

	AvgWrite time.Duration
	MaxWrite time.Duration

	// MinQueueFill is the lowest queue fill seen by the writer in bytes,
	// -1 when the stream did not run pipelined.
	MinQueueFill int64
}

// Diagnostics returns a snapshot of the counters. Safe to call while Run is active.
func (s *Streamer) Diagnostics() Diagnostics {
	d := Diagnostics{
		FramesPerBlock:  s.opts.FramesPerBlock,
		QueueBlocks:     s.opts.QueueBlocks,
		BlocksGenerated: s.blocksGenerated.Load(),
		BlocksWritten:   s.blocksWritten.Load(),
		FramesWritten:   s.framesWritten.Load(),
		WriteErrors:     s.writeErrors.Load(),
		MaxWrite:        time.Duration(s.maxWriteNs.Load()),
		MinQueueFill:    s.minQueueFill.Load(),
	}
	if u, ok := s.sink.(sink.UnderflowCounter); ok {
		d.Underflows = u.Underflows()
	}
	if writes := d.BlocksWritten + d.WriteErrors; writes > 0 {
		d.AvgWrite = time.Duration(s.totalWriteNs.Load() / int64(writes))
	}
	return d
}

// PrintDiagnostics writes a human-readable report to w. blockDuration is the
// playback time of one block, used as the expected write time.
func (s *Streamer) PrintDiagnostics(w io.Writer, blockDuration time.Duration) {
	d := s.Diagnostics()
	if d.BlocksWritten == 0 && d.WriteErrors == 0 {
		return
	}

	mode := "single loop"
	if d.QueueBlocks > 0 {
		mode = fmt.Sprintf("pipelined, queue %d blocks", d.QueueBlocks)
	}
	fmt.Fprintf(w, "\nDiagnostics (%d writes, %d frames/block, %s):\n",
		d.BlocksWritten+d.WriteErrors, d.FramesPerBlock, mode)
	fmt.Fprintf(w, "  Write duration:     avg %.2f ms,  max %.2f ms  (expected ~%.2f ms)\n",
		ms(d.AvgWrite), ms(d.MaxWrite), ms(blockDuration))
	fmt.Fprintf(w, "  Frames written:     %d (%d blocks generated)\n", d.FramesWritten, d.BlocksGenerated)
	if d.MinQueueFill >= 0 {
		fmt.Fprintf(w, "  Min queue fill:     %d bytes\n", d.MinQueueFill)
	}
	if d.Underflows > 0 {
		fmt.Fprintf(w, "  Underflows:         %d\n", d.Underflows)
	}
	if d.WriteErrors > 0 {
		fmt.Fprintf(w, "  Write errors:       %d\n", d.WriteErrors)
	}
}

// LogDiagnostics logs the counters as one structured entry.
func (s *Streamer) LogDiagnostics() {
	d := s.Diagnostics()
	s.log.Info("stream diagnostics",
		zap.Uint64("blocksGenerated", d.BlocksGenerated),
		zap.Uint64("blocksWritten", d.BlocksWritten),
		zap.Uint64("framesWritten", d.FramesWritten),
		zap.Uint64("writeErrors", d.WriteErrors),
		zap.Uint64("underflows", d.Underflows),
		zap.Duration("avgWrite", d.AvgWrite),
		zap.Duration("maxWrite", d.MaxWrite),
		zap.Int64("minQueueFill", d.MinQueueFill))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
