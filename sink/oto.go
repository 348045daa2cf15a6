//go:build !headless

package sink

import (
	"errors"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/drgolem/go-sinestream/sample"
)

// drainPoll is how often Close checks whether oto has played out.
const drainPoll = 10 * time.Millisecond

// Oto plays through the platform audio API via oto. oto only takes
// little-endian float32, so this sink is unavailable on big-endian hosts.
type Oto struct {
	player   *oto.Player
	pipe     *Pipe
	maxDrain time.Duration
	log      *zap.Logger
}

// OpenOto creates the oto context and starts a player reading from the sink.
func OpenOto(opts Options) (*Oto, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !sample.NativeLittleEndian() {
		return nil, errors.New("sink: oto needs little-endian float32 samples")
	}
	log := opts.logger()

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   opts.Latency,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: create oto context: %w", err)
	}
	<-ready

	s := &Oto{pipe: NewPipe(), log: log}
	s.player = ctx.NewPlayer(s.pipe.Reader())
	s.pipe.Watch(s.player.Err, outputPoll)

	// Keep oto's read-ahead to two blocks so writes stay paced by playback.
	blockBytes := sample.BlockSize(opts.FramesPerBlock)
	s.player.SetBufferSize(2 * blockBytes)
	s.maxDrain = 2*opts.Latency + 2*time.Duration(opts.FramesPerBlock)*time.Second/time.Duration(opts.SampleRate) + time.Second

	s.player.Play()
	log.Info("oto playback started",
		zap.Int("sampleRate", opts.SampleRate),
		zap.Int("bufferBytes", 2*blockBytes))
	return s, nil
}

// Write blocks until the player has read block.
func (s *Oto) Write(block []byte) error {
	return s.pipe.Write(block)
}

// Close waits for buffered samples to play, bounded by the configured
// latency, then closes the player.
func (s *Oto) Close() error {
	if !s.pipe.closeWrite() {
		return nil
	}
	deadline := time.Now().Add(s.maxDrain)
	for s.player.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(drainPoll)
	}
	return errors.Join(s.player.Err(), s.player.Close())
}
