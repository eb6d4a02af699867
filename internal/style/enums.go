package style

// LeadInstrument selects the timbre and envelope of the melody voice.
type LeadInstrument int

const (
	LeadPiano LeadInstrument = iota
	LeadPad
	LeadSynth
	LeadSoftSynth
	LeadGuitar
)

func (l LeadInstrument) String() string {
	switch l {
	case LeadPiano:
		return "piano"
	case LeadPad:
		return "pad"
	case LeadSynth:
		return "synth_lead"
	case LeadSoftSynth:
		return "soft_synth"
	case LeadGuitar:
		return "guitar"
	}
	return "unknown"
}

// MarshalText encodes the instrument by name.
func (l LeadInstrument) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// BassPattern selects the bass rhythm template and bass timbre.
type BassPattern int

const (
	BassStandard BassPattern = iota
	BassBouncy
	BassDeepDrone
	BassPulsingHeavy
	BassWalkingSmooth
	BassFingerstyle
)

func (b BassPattern) String() string {
	switch b {
	case BassStandard:
		return "standard"
	case BassBouncy:
		return "bouncy"
	case BassDeepDrone:
		return "deep_drone"
	case BassPulsingHeavy:
		return "pulsing_heavy"
	case BassWalkingSmooth:
		return "walking_smooth"
	case BassFingerstyle:
		return "fingerstyle"
	}
	return "unknown"
}

// MarshalText encodes the pattern by name.
func (b BassPattern) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// DrumStyle selects the kick, snare and hi-hat step grids.
type DrumStyle int

const (
	DrumsModerate DrumStyle = iota
	DrumsUpbeat
	DrumsMinimal
	DrumsElectronicHard
	DrumsBrushSoft
	DrumsAcoustic
)

func (d DrumStyle) String() string {
	switch d {
	case DrumsModerate:
		return "moderate"
	case DrumsUpbeat:
		return "upbeat"
	case DrumsMinimal:
		return "minimal"
	case DrumsElectronicHard:
		return "electronic_hard"
	case DrumsBrushSoft:
		return "brush_soft"
	case DrumsAcoustic:
		return "acoustic"
	}
	return "unknown"
}

// MarshalText encodes the style by name.
func (d DrumStyle) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
