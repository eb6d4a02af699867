// Package session runs one live performance at a time: it classifies an
// analysis, builds the voices and patterns for the resulting style, and
// renders them as PCM.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/satindergrewal/chromavinyl/internal/analysis"
	"github.com/satindergrewal/chromavinyl/internal/audio"
	"github.com/satindergrewal/chromavinyl/internal/mood"
	"github.com/satindergrewal/chromavinyl/internal/pattern"
	"github.com/satindergrewal/chromavinyl/internal/style"
	"github.com/satindergrewal/chromavinyl/internal/synth"
	"github.com/satindergrewal/chromavinyl/internal/transport"
)

// State is the session lifecycle.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

// Output is the audio device a session plays through.
type Output interface {
	// Acquire blocks until the output can play, or fails.
	Acquire(ctx context.Context) error
}

// AudioStartError means the audio output could not be acquired. The session
// stays Idle; callers should report it rather than retry.
type AudioStartError struct {
	Cause error
}

func (e *AudioStartError) Error() string {
	return fmt.Sprintf("audio start failed: %v", e.Cause)
}

func (e *AudioStartError) Unwrap() error { return e.Cause }

// Summary describes a started performance.
type Summary struct {
	Category  mood.Category `json:"category"`
	StyleName string        `json:"style_name"`
	Tempo     int           `json:"tempo"`
}

// Status is a snapshot of the session.
type Status struct {
	State    State   `json:"-"`
	Playing  bool    `json:"playing"`
	Summary  Summary `json:"summary"`
	VolumeDB float64 `json:"volume_db"`
	Position string  `json:"position"`
}

// Resources counts what a session currently holds.
type Resources struct {
	Voices   int `json:"voices"`
	Effects  int `json:"effects"`
	Patterns int `json:"patterns"`
}

// Session owns the transport, voices, effects and patterns of a performance.
// Start and Stop are serialized; Render may run concurrently with both.
type Session struct {
	out    Output
	audio  *synth.Context
	master *synth.Master
	clock  *transport.SampleClock

	opMu sync.Mutex

	mu       sync.Mutex
	tr       *transport.Transport
	state    State
	rack     *synth.Rack
	patterns pattern.Set
	summary  Summary
	observe  func(pattern.Trigger)
}

// New creates an idle session rendering at sampleRate, with the master set
// to the given volume level.
func New(out Output, sampleRate int, volume float64) *Session {
	clock := transport.NewSampleClock(sampleRate)
	s := &Session{
		out:    out,
		audio:  synth.NewContext(sampleRate),
		master: synth.NewMaster(LevelToDB(volume)),
		clock:  clock,
		tr:     transport.New(clock),
	}
	return s
}

// Start stops any running performance, then starts one for a. A nil or
// partial analysis falls back to defaults rather than failing.
func (s *Session) Start(ctx context.Context, a *analysis.Result) (Summary, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.stop(); err != nil {
		log.Printf("Stop before start: %v", err)
	}

	if err := s.out.Acquire(ctx); err != nil {
		return Summary{}, &AudioStartError{Cause: err}
	}

	category := mood.Classify(a)
	def := style.For(category, a.AverageBrightness())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tr.SetBPM(float64(def.Tempo))
	rack, err := synth.Build(s.audio, def)
	if err != nil {
		return Summary{}, fmt.Errorf("build voices: %w", err)
	}
	s.rack = rack
	s.patterns = pattern.Compile(def)

	targets := []pattern.Target{rack.Lead, rack.Pad, rack.Bass, rack.Kick, rack.Snare, rack.Hihat}
	for i, seq := range s.patterns.All() {
		if err := seq.Start(s.tr, targets[i], s.notify); err != nil {
			if terr := s.teardown(); terr != nil {
				err = errors.Join(err, terr)
			}
			return Summary{}, fmt.Errorf("start %s pattern: %w", seq.Lane, err)
		}
	}
	s.tr.Start()

	s.state = Playing
	s.summary = Summary{Category: category, StyleName: def.Name, Tempo: def.Tempo}
	log.Printf("Now playing: %s (category: %s, tempo: %d BPM)", def.Name, category, def.Tempo)
	return s.summary, nil
}

// Stop ends the performance and releases everything it holds. Stopping an
// idle session does nothing.
func (s *Session) Stop() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.stop()
}

func (s *Session) stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return nil
	}
	err := s.teardown()
	log.Printf("Stopped: %s", s.summary.StyleName)
	s.summary = Summary{}
	return err
}

// teardown disposes patterns, then voices and effects, then clears the
// transport. Every step runs even if an earlier one fails. Caller holds mu.
func (s *Session) teardown() error {
	var errs []error
	for _, seq := range s.patterns.All() {
		if seq == nil {
			continue
		}
		if err := seq.Dispose(); err != nil {
			log.Printf("Dispose %s pattern: %v", seq.Lane, err)
			errs = append(errs, fmt.Errorf("dispose %s pattern: %w", seq.Lane, err))
		}
	}
	if s.rack != nil {
		if err := s.rack.Dispose(); err != nil {
			log.Printf("Dispose voices: %v", err)
			errs = append(errs, err)
		}
	}
	s.tr.Stop()
	s.tr.Cancel()

	s.rack = nil
	s.patterns = pattern.Set{}
	s.state = Idle
	return errors.Join(errs...)
}

// LevelToDB maps a [0,1] volume level to master gain: 0 is -60 dB, anything
// else is (level-1)*40 dB. Levels outside [0,1] are clamped.
func LevelToDB(level float64) float64 {
	level = min(max(level, 0), 1)
	if level == 0 {
		return -60
	}
	return (level - 1) * 40
}

// SetVolume sets the master level. It applies immediately whether or not
// the session is playing.
func (s *Session) SetVolume(level float64) {
	s.master.SetVolume(LevelToDB(level))
}

// Volume returns the master level in dB.
func (s *Session) Volume() float64 {
	return s.master.Volume()
}

// IsPlaying reports whether a performance is running.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Playing
}

// Subscribe sets fn to be called for every pattern trigger. fn runs on the
// render goroutine and must not block. A nil fn unsubscribes.
func (s *Session) Subscribe(fn func(pattern.Trigger)) {
	s.mu.Lock()
	s.observe = fn
	s.mu.Unlock()
}

func (s *Session) notify(t pattern.Trigger) {
	if s.observe != nil {
		s.observe(t)
	}
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:    s.state,
		Playing:  s.state == Playing,
		Summary:  s.summary,
		VolumeDB: s.master.Volume(),
		Position: s.tr.BarsBeats(),
	}
}

// Resources reports live voices, effects and scheduled patterns.
func (s *Session) Resources() Resources {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Resources{
		Voices:   s.audio.Live(synth.KindVoice),
		Effects:  s.audio.Live(synth.KindEffect),
		Patterns: s.tr.Scheduled(),
	}
}

// Render fills an interleaved stereo frame. The transport advances one
// sample at a time, so triggers land on the exact sample they are due.
func (s *Session) Render(frame []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gain := s.master.Gain()
	for i := 0; i+audio.Channels <= len(frame); i += audio.Channels {
		var x float64
		if s.rack != nil {
			s.tr.Poll()
			x = synth.SoftClip(s.rack.Sample() * gain)
		}
		v := audio.ToPCM(x)
		for c := range audio.Channels {
			frame[i+c] = v
		}
		s.clock.Advance(1)
	}
}
