package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Source renders interleaved stereo PCM into a frame.
type Source interface {
	Render(frame []int16)
}

// ErrStopped is returned by Acquire once Run has returned.
var ErrStopped = errors.New("audio output stopped")

// Pipeline pulls frames from a Source and outputs them at real-time rate.
type Pipeline struct {
	frameCh chan []int16
	ready   chan struct{} // closed when Run starts
	stopped chan struct{} // closed when Run returns
	once    sync.Once
	endOnce sync.Once

	mu      sync.RWMutex
	frames  int64
	started time.Time
}

// NewPipeline creates an audio pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		frameCh: make(chan []int16, 100),
		ready:   make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Pipeline) Frames() <-chan []int16 {
	return p.frameCh
}

// Acquire waits until the pipeline is running. It fails if ctx is already
// done, if ctx ends first, or if Run has returned.
func (p *Pipeline) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("audio output not acquired: %w", err)
	}
	select {
	case <-p.stopped:
		return ErrStopped
	case <-p.ready:
	case <-ctx.Done():
		return fmt.Errorf("audio output not running: %w", ctx.Err())
	}
	select {
	case <-p.stopped:
		return ErrStopped
	default:
		return nil
	}
}

// Status returns the number of frames rendered and the time since Run began.
func (p *Pipeline) Status() (frames int64, uptime time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.started.IsZero() {
		return p.frames, 0
	}
	return p.frames, time.Since(p.started)
}

// Run renders frames from src on every tick. Blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, src Source) {
	defer close(p.frameCh)
	defer p.endOnce.Do(func() { close(p.stopped) })

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()
	p.once.Do(func() { close(p.ready) })
	log.Printf("Audio pipeline running (%d Hz, %d ch, %v frames)", SampleRate, Channels, FrameDuration)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame := make([]int16, FrameSamples)
		src.Render(frame)

		select {
		case p.frameCh <- frame:
		case <-ctx.Done():
			return
		}

		p.mu.Lock()
		p.frames++
		p.mu.Unlock()
	}
}
