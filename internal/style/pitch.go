package style

import (
	"fmt"
	"math"
	"strconv"
)

// Pitch is a MIDI note number. Rest marks a silent step.
type Pitch int

// Rest is a step with no note.
const Rest Pitch = -1

// Chord is a set of pitches sounded together, root first.
type Chord []Pitch

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

var pitchNames = [12]string{"C", "C#", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}

// ParsePitch parses scientific pitch notation such as "C4", "Eb3" or "F#2".
func ParsePitch(name string) (Pitch, error) {
	if len(name) < 2 {
		return Rest, fmt.Errorf("pitch %q: too short", name)
	}
	base, ok := semitones[name[0]]
	if !ok {
		return Rest, fmt.Errorf("pitch %q: unknown note letter", name)
	}
	rest := name[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return Rest, fmt.Errorf("pitch %q: bad octave: %w", name, err)
	}
	p := Pitch((octave+1)*12 + base)
	if p < 0 || p > 127 {
		return Rest, fmt.Errorf("pitch %q: out of MIDI range", name)
	}
	return p, nil
}

// MustPitch is ParsePitch for literal tables; it panics on bad input.
func MustPitch(name string) Pitch {
	p, err := ParsePitch(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Frequency returns the equal-tempered frequency in Hz (A4 = 440).
func (p Pitch) Frequency() float64 {
	return 440 * math.Pow(2, float64(p-69)/12)
}

// IsRest reports whether p is a rest.
func (p Pitch) IsRest() bool { return p < 0 }

func (p Pitch) String() string {
	if p.IsRest() {
		return "-"
	}
	return pitchNames[int(p)%12] + strconv.Itoa(int(p)/12-1)
}

// Root returns the first pitch of the chord, or Rest if it is empty.
func (c Chord) Root() Pitch {
	if len(c) == 0 {
		return Rest
	}
	return c[0]
}

func notes(names ...string) []Pitch {
	out := make([]Pitch, len(names))
	for i, n := range names {
		if n == "" {
			out[i] = Rest
			continue
		}
		out[i] = MustPitch(n)
	}
	return out
}

func chord(names ...string) Chord {
	return Chord(notes(names...))
}
