package style

import (
	"math"

	"github.com/satindergrewal/chromavinyl/internal/mood"
)

// Definition is the full set of musical parameters for one mood category.
type Definition struct {
	Name           string         `json:"name"`
	Category       mood.Category  `json:"category"`
	Tempo          int            `json:"tempo"`
	LeadInstrument LeadInstrument `json:"lead_instrument"`
	Scale          []Pitch        `json:"scale"`
	Melody         []Pitch        `json:"melody"`
	Chords         []Chord        `json:"chords"`
	BassPattern    BassPattern    `json:"bass_pattern"`
	DrumStyle      DrumStyle      `json:"drum_style"`
}

// Roots returns the root pitch of every chord in order.
func (d Definition) Roots() []Pitch {
	roots := make([]Pitch, len(d.Chords))
	for i, c := range d.Chords {
		roots[i] = c.Root()
	}
	return roots
}

// TempoBand describes how brightness nudges a category's tempo:
// Base + floor(brightness/Divisor). A zero Divisor means a fixed tempo.
// Brightness is clamped to [MinBrightness, MaxBrightness] and the result is
// never below MinTempo.
type TempoBand struct {
	Base    int
	Divisor float64
}

// Brightness range of an 8-bit luminance average.
const (
	MinBrightness = 0
	MaxBrightness = 255
)

// MinTempo is the slowest tempo a band yields.
const MinTempo = 1

// Tempo returns the tempo for the given brightness.
func (b TempoBand) Tempo(brightness float64) int {
	tempo := b.Base
	if b.Divisor != 0 {
		if math.IsNaN(brightness) {
			brightness = MinBrightness
		}
		brightness = min(max(brightness, MinBrightness), MaxBrightness)
		tempo += int(math.Floor(brightness / b.Divisor))
	}
	return max(tempo, MinTempo)
}

var tempoBands = map[mood.Category]TempoBand{
	mood.BrightWarm:  {Base: 120, Divisor: 10},
	mood.DarkCool:    {Base: 60, Divisor: 5},
	mood.Intense:     {Base: 100, Divisor: 4},
	mood.SoftPastel:  {Base: 80, Divisor: 6},
	mood.NatureGreen: {Base: 90, Divisor: 7},
	mood.Balanced:    {Base: 100},
}

// BandFor returns the tempo band of a category; unknown categories get Balanced's.
func BandFor(c mood.Category) TempoBand {
	if b, ok := tempoBands[c]; ok {
		return b
	}
	return tempoBands[mood.Balanced]
}

// For builds a fresh Definition for the category at the given brightness.
// Unknown categories fall back to the balanced style.
func For(c mood.Category, brightness float64) Definition {
	if !c.Valid() {
		c = mood.Balanced
	}
	d := definition(c)
	d.Category = c
	d.Tempo = BandFor(c).Tempo(brightness)
	return d
}

// Catalog returns every style at the given brightness in category order.
func Catalog(brightness float64) []Definition {
	out := make([]Definition, 0, len(mood.Categories))
	for _, c := range mood.Categories {
		out = append(out, For(c, brightness))
	}
	return out
}

func definition(c mood.Category) Definition {
	switch c {
	case mood.BrightWarm:
		return Definition{
			Name:           "Bright Pop",
			LeadInstrument: LeadPiano,
			Scale:          notes("C4", "D4", "E4", "F4", "G4", "A4", "B4", "C5"),
			Melody: notes(
				"C4", "E4", "G4", "E4",
				"D4", "F4", "A4", "F4",
				"E4", "G4", "C5", "G4",
				"F4", "D4", "E4", "C4",
			),
			Chords: []Chord{
				chord("C3", "E3", "G3"),
				chord("F3", "A3", "C4"),
				chord("G3", "B3", "D4"),
				chord("C3", "E3", "G3"),
			},
			BassPattern: BassBouncy,
			DrumStyle:   DrumsUpbeat,
		}
	case mood.DarkCool:
		return Definition{
			Name:           "Dark Ambient",
			LeadInstrument: LeadPad,
			Scale:          notes("C3", "Eb3", "F3", "G3", "Bb3", "C4", "Eb4", "F4"),
			Melody: notes(
				"C4", "", "Eb4", "",
				"G3", "", "Bb3", "",
				"F3", "", "C4", "",
				"Eb4", "", "C4", "",
			),
			Chords: []Chord{
				chord("C2", "Eb2", "G2", "Bb2"),
				chord("F2", "Ab2", "C3", "Eb3"),
				chord("G2", "Bb2", "D3", "F3"),
				chord("C2", "Eb2", "G2", "Bb2"),
			},
			BassPattern: BassDeepDrone,
			DrumStyle:   DrumsMinimal,
		}
	case mood.Intense:
		return Definition{
			Name:           "Electronic",
			LeadInstrument: LeadSynth,
			Scale:          notes("C4", "D4", "Eb4", "F4", "G4", "Ab4", "Bb4", "C5"),
			Melody: notes(
				"C4", "C4", "Eb4", "Eb4",
				"F4", "F4", "G4", "G4",
				"Ab4", "Ab4", "G4", "G4",
				"F4", "Eb4", "D4", "C4",
			),
			Chords: []Chord{
				chord("C3", "Eb3", "G3"),
				chord("Ab2", "C3", "Eb3"),
				chord("Bb2", "D3", "F3"),
				chord("C3", "Eb3", "G3"),
			},
			BassPattern: BassPulsingHeavy,
			DrumStyle:   DrumsElectronicHard,
		}
	case mood.SoftPastel:
		return Definition{
			Name:           "Bossa Nova Jazz",
			LeadInstrument: LeadSoftSynth,
			Scale:          notes("C4", "D4", "E4", "F4", "G4", "A4", "B4", "C5"),
			Melody: notes(
				"E4", "", "G4", "F4",
				"E4", "D4", "", "C4",
				"D4", "", "F4", "E4",
				"D4", "C4", "", "B3",
			),
			Chords: []Chord{
				chord("C3", "E3", "G3", "B3"),
				chord("D3", "F#3", "A3", "C4"),
				chord("E3", "G3", "B3", "D4"),
				chord("F3", "A3", "C4", "E4"),
			},
			BassPattern: BassWalkingSmooth,
			DrumStyle:   DrumsBrushSoft,
		}
	case mood.NatureGreen:
		return Definition{
			Name:           "Acoustic Folk",
			LeadInstrument: LeadGuitar,
			Scale:          notes("C4", "D4", "E4", "G4", "A4", "C5"),
			Melody: notes(
				"C4", "D4", "E4", "G4",
				"A4", "G4", "E4", "D4",
				"E4", "G4", "A4", "C5",
				"A4", "G4", "E4", "C4",
			),
			Chords: []Chord{
				chord("C3", "E3", "G3"),
				chord("A2", "C3", "E3"),
				chord("F3", "A3", "C4"),
				chord("G3", "B3", "D4"),
			},
			BassPattern: BassFingerstyle,
			DrumStyle:   DrumsAcoustic,
		}
	}
	return Definition{
		Name:           "Balanced Sound",
		LeadInstrument: LeadPiano,
		Scale:          notes("C4", "D4", "E4", "F4", "G4", "A4", "B4", "C5"),
		Melody: notes(
			"C4", "D4", "E4", "F4",
			"G4", "A4", "B4", "C5",
			"B4", "A4", "G4", "F4",
			"E4", "D4", "C4", "C4",
		),
		Chords: []Chord{
			chord("C3", "E3", "G3"),
			chord("G3", "B3", "D4"),
			chord("A3", "C4", "E4"),
			chord("F3", "A3", "C4"),
		},
		BassPattern: BassStandard,
		DrumStyle:   DrumsModerate,
	}
}
