// Package pattern compiles a style into looping step sequences and binds
// them to a transport.
package pattern

import (
	"errors"
	"fmt"
	"time"

	"github.com/satindergrewal/chromavinyl/internal/style"
	"github.com/satindergrewal/chromavinyl/internal/transport"
)

var (
	ErrRunning  = errors.New("pattern: already running")
	ErrDisposed = errors.New("pattern: already disposed")
)

// Lane names the voice a sequence drives.
type Lane int

const (
	LaneMelody Lane = iota
	LaneChords
	LaneBass
	LaneKick
	LaneSnare
	LaneHihat
)

func (l Lane) String() string {
	switch l {
	case LaneMelody:
		return "melody"
	case LaneChords:
		return "chords"
	case LaneBass:
		return "bass"
	case LaneKick:
		return "kick"
	case LaneSnare:
		return "snare"
	case LaneHihat:
		return "hihat"
	}
	return "unknown"
}

// MarshalText lets lanes appear by name in JSON.
func (l Lane) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText parses a lane name.
func (l *Lane) UnmarshalText(b []byte) error {
	for c := LaneMelody; c <= LaneHihat; c++ {
		if c.String() == string(b) {
			*l = c
			return nil
		}
	}
	return fmt.Errorf("pattern: unknown lane %q", b)
}

// Step is one slot of a sequence. Inactive steps are rests.
type Step struct {
	Active     bool
	Pitches    []style.Pitch
	Hold       transport.Subdivision
	AttackOnly bool
}

// Target is the voice a sequence triggers.
type Target interface {
	TriggerAttack(pitches ...style.Pitch)
	TriggerAttackRelease(hold time.Duration, pitches ...style.Pitch)
}

// Trigger describes one fired step.
type Trigger struct {
	Lane    Lane
	Step    int
	Tick    transport.Ticks
	Pitches []style.Pitch
}

// Sequence is a looping step sequence at a fixed subdivision.
type Sequence struct {
	Lane        Lane
	Subdivision transport.Subdivision
	Steps       []Step

	tr       *transport.Transport
	id       transport.EventID
	running  bool
	disposed bool
}

// LoopTicks is the length of one full cycle.
func (s *Sequence) LoopTicks() transport.Ticks {
	return transport.Ticks(len(s.Steps)) * s.Subdivision.Ticks()
}

// Running reports whether the sequence is scheduled on a transport.
func (s *Sequence) Running() bool { return s.running }

// Start schedules the sequence on tr from tick zero. Each active step
// triggers target; observe, if non-nil, is told about every trigger.
func (s *Sequence) Start(tr *transport.Transport, target Target, observe func(Trigger)) error {
	if s.disposed {
		return ErrDisposed
	}
	if s.running {
		return ErrRunning
	}
	if len(s.Steps) == 0 {
		return nil
	}
	s.tr = tr
	s.id = tr.ScheduleRepeat(func(e transport.Event) {
		i := e.Iteration % len(s.Steps)
		step := s.Steps[i]
		if !step.Active {
			return
		}
		if step.AttackOnly {
			target.TriggerAttack(step.Pitches...)
		} else {
			target.TriggerAttackRelease(tr.Duration(step.Hold.Ticks()), step.Pitches...)
		}
		if observe != nil {
			observe(Trigger{Lane: s.Lane, Step: i, Tick: e.Tick, Pitches: step.Pitches})
		}
	}, s.Subdivision.Ticks(), 0)
	s.running = true
	return nil
}

// Stop unschedules the sequence. It can be started again.
func (s *Sequence) Stop() {
	if !s.running {
		return
	}
	s.tr.Clear(s.id)
	s.tr = nil
	s.running = false
}

// Dispose stops the sequence for good.
func (s *Sequence) Dispose() error {
	if s.disposed {
		return ErrDisposed
	}
	s.Stop()
	s.disposed = true
	return nil
}

// Set is the six sequences of one style.
type Set struct {
	Melody, Chords, Bass, Kick, Snare, Hihat *Sequence
}

// All returns the sequences in start order.
func (s Set) All() []*Sequence {
	return []*Sequence{s.Melody, s.Chords, s.Bass, s.Kick, s.Snare, s.Hihat}
}
