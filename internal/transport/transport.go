package transport

import (
	"fmt"
	"math"
	"time"
)

// PPQ is the number of ticks per quarter note.
const PPQ = 192

// Ticks is a position or length on the transport grid.
type Ticks int64

// Subdivision is a note value expressed in ticks.
type Subdivision Ticks

const (
	Whole        Subdivision = PPQ * 4
	Half         Subdivision = PPQ * 2
	Quarter      Subdivision = PPQ
	Eighth       Subdivision = PPQ / 2
	Sixteenth    Subdivision = PPQ / 4
	ThirtySecond Subdivision = PPQ / 8
)

// Ticks returns the length of the subdivision.
func (s Subdivision) Ticks() Ticks { return Ticks(s) }

func (s Subdivision) String() string {
	if s <= 0 {
		return "0n"
	}
	return fmt.Sprintf("%dn", int(Whole/s))
}

// Beats converts ticks to quarter-note beats.
func (t Ticks) Beats() float64 { return float64(t) / PPQ }

// State is the run state of a Transport.
type State int

const (
	Stopped State = iota
	Started
)

func (s State) String() string {
	if s == Started {
		return "started"
	}
	return "stopped"
}

// EventID identifies a scheduled repeat.
type EventID int

// Event is delivered to a repeat callback each time it fires.
type Event struct {
	ID        EventID
	Tick      Ticks
	Iteration int
}

type repeat struct {
	id       EventID
	fn       func(Event)
	interval Ticks
	start    Ticks
	next     Ticks
	count    int
	cleared  bool
}

// Transport is the shared musical clock. It converts clock time into ticks at
// the current tempo and fires scheduled repeats in tick order; repeats due on
// the same tick fire in the order they were scheduled.
//
// A Transport is not safe for concurrent use.
type Transport struct {
	clock    Clock
	bpm      float64
	state    State
	position float64
	last     time.Duration
	repeats  []*repeat
	nextID   EventID
}

// New creates a stopped transport at 120 BPM.
func New(clock Clock) *Transport {
	return &Transport{clock: clock, bpm: 120}
}

// SetBPM sets the tempo. Non-positive values are ignored.
func (t *Transport) SetBPM(bpm float64) {
	if bpm > 0 {
		t.bpm = bpm
	}
}

// BPM returns the tempo.
func (t *Transport) BPM() float64 { return t.bpm }

// State returns whether the transport is running.
func (t *Transport) State() State { return t.state }

// Position returns the current tick position.
func (t *Transport) Position() Ticks { return Ticks(math.Floor(t.position + 1e-6)) }

// ScheduleRepeat calls fn every interval ticks starting at start.
func (t *Transport) ScheduleRepeat(fn func(Event), interval, start Ticks) EventID {
	if interval <= 0 {
		interval = 1
	}
	t.nextID++
	t.repeats = append(t.repeats, &repeat{
		id:       t.nextID,
		fn:       fn,
		interval: interval,
		start:    start,
		next:     start,
	})
	return t.nextID
}

// Clear removes a scheduled repeat. It reports whether id was scheduled.
func (t *Transport) Clear(id EventID) bool {
	for i, r := range t.repeats {
		if r.id == id {
			r.cleared = true
			t.repeats = append(t.repeats[:i], t.repeats[i+1:]...)
			return true
		}
	}
	return false
}

// Cancel removes every scheduled repeat.
func (t *Transport) Cancel() {
	for _, r := range t.repeats {
		r.cleared = true
	}
	t.repeats = nil
}

// Scheduled returns the number of scheduled repeats.
func (t *Transport) Scheduled() int { return len(t.repeats) }

// Start begins advancing from the current position.
func (t *Transport) Start() {
	if t.state == Started {
		return
	}
	t.state = Started
	t.last = t.clock.Now()
}

// Stop halts the transport and rewinds it to zero. Scheduled repeats stay
// scheduled and restart from their start tick on the next Start.
func (t *Transport) Stop() {
	t.state = Stopped
	t.position = 0
	for _, r := range t.repeats {
		r.next = r.start
		r.count = 0
	}
}

// Poll advances the position by the clock time elapsed since the last poll
// and fires every repeat that has come due.
func (t *Transport) Poll() {
	if t.state != Started {
		return
	}
	now := t.clock.Now()
	if elapsed := now - t.last; elapsed > 0 {
		t.position += elapsed.Seconds() * t.bpm / 60 * PPQ
	}
	t.last = now
	t.fireDue()
}

func (t *Transport) fireDue() {
	limit := t.position + 1e-6
	for {
		var due *repeat
		for _, r := range t.repeats {
			if float64(r.next) <= limit && (due == nil || r.next < due.next) {
				due = r
			}
		}
		if due == nil {
			return
		}
		ev := Event{ID: due.id, Tick: due.next, Iteration: due.count}
		due.next += due.interval
		due.count++
		due.fn(ev)
	}
}

// Duration converts ticks to wall time at the current tempo.
func (t *Transport) Duration(ticks Ticks) time.Duration {
	seconds := float64(ticks) / PPQ * 60 / t.bpm
	return time.Duration(seconds * float64(time.Second))
}

// BarsBeats formats the position as bars:beats:sixteenths in 4/4, zero based.
func (t *Transport) BarsBeats() string {
	pos := t.Position()
	bar := pos / (PPQ * 4)
	beat := (pos % (PPQ * 4)) / PPQ
	sixteenth := (pos % PPQ) / (PPQ / 4)
	return fmt.Sprintf("%d:%d:%d", bar, beat, sixteenth)
}
