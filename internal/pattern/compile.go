package pattern

import (
	"github.com/satindergrewal/chromavinyl/internal/style"
	"github.com/satindergrewal/chromavinyl/internal/transport"
)

// Compile turns a style into its six sequences. It has no side effects.
func Compile(def style.Definition) Set {
	return Set{
		Melody: melody(def),
		Chords: chords(def),
		Bass:   bass(def),
		Kick:   drum(LaneKick, kickGrid(def.DrumStyle), transport.Eighth, style.MustPitch("C1")),
		Snare:  drum(LaneSnare, snareGrid(def.DrumStyle), transport.Sixteenth, style.Rest),
		Hihat:  drum(LaneHihat, hihatGrid(def.DrumStyle), transport.ThirtySecond, style.Rest),
	}
}

func melody(def style.Definition) *Sequence {
	seq := &Sequence{Lane: LaneMelody, Subdivision: transport.Eighth}
	for _, p := range def.Melody {
		seq.Steps = append(seq.Steps, Step{
			Active:     !p.IsRest(),
			Pitches:    []style.Pitch{p},
			Hold:       transport.Eighth,
			AttackOnly: def.LeadInstrument == style.LeadGuitar,
		})
	}
	return seq
}

func chords(def style.Definition) *Sequence {
	seq := &Sequence{Lane: LaneChords, Subdivision: transport.Half}
	for _, c := range def.Chords {
		seq.Steps = append(seq.Steps, Step{Active: len(c) > 0, Pitches: c, Hold: transport.Half})
	}
	return seq
}

// bassTemplate is the rhythm played over one chord. Every template spans a
// half note, the length of one chord step.
type bassTemplate struct {
	sub  transport.Subdivision
	hold transport.Subdivision
	hits []bool
}

func bassTemplateFor(b style.BassPattern) bassTemplate {
	switch b {
	case style.BassBouncy:
		return bassTemplate{transport.Eighth, transport.Sixteenth, grid(1, 0, 1, 0)}
	case style.BassDeepDrone:
		return bassTemplate{transport.Half, transport.Whole, grid(1)}
	case style.BassPulsingHeavy:
		return bassTemplate{transport.Sixteenth, transport.Sixteenth, grid(1, 1, 1, 1, 0, 0, 0, 0)}
	case style.BassWalkingSmooth:
		return bassTemplate{transport.Quarter, transport.Quarter, grid(1, 0)}
	case style.BassFingerstyle:
		return bassTemplate{transport.Eighth, transport.Eighth, grid(1, 0, 1, 0)}
	}
	return bassTemplate{transport.Quarter, transport.Quarter, grid(1, 0)}
}

func bass(def style.Definition) *Sequence {
	tpl := bassTemplateFor(def.BassPattern)
	seq := &Sequence{Lane: LaneBass, Subdivision: tpl.sub}
	for _, root := range def.Roots() {
		for _, hit := range tpl.hits {
			seq.Steps = append(seq.Steps, Step{
				Active:  hit && !root.IsRest(),
				Pitches: []style.Pitch{root},
				Hold:    tpl.hold,
			})
		}
	}
	return seq
}

type drumGrid struct {
	sub  transport.Subdivision
	hits []bool
}

func kickGrid(d style.DrumStyle) drumGrid {
	switch d {
	case style.DrumsUpbeat:
		return drumGrid{transport.Eighth, grid(1, 0, 0, 0, 1, 0, 1, 0)}
	case style.DrumsMinimal:
		return drumGrid{transport.Quarter, grid(1, 0, 0, 0, 0, 0, 0, 0)}
	case style.DrumsElectronicHard:
		return drumGrid{transport.Eighth, grid(1, 0, 1, 0, 1, 0, 1, 0)}
	case style.DrumsBrushSoft:
		return drumGrid{transport.Eighth, grid(1, 0, 0, 1, 0, 0, 0, 0)}
	case style.DrumsAcoustic:
		return drumGrid{transport.Eighth, grid(1, 0, 0, 0, 1, 0, 0, 0)}
	}
	return drumGrid{transport.Eighth, grid(1, 0, 0, 0, 1, 0, 0, 0)}
}

func snareGrid(d style.DrumStyle) drumGrid {
	switch d {
	case style.DrumsUpbeat:
		return drumGrid{transport.Eighth, grid(0, 0, 1, 0, 0, 0, 1, 0)}
	case style.DrumsMinimal:
		return drumGrid{transport.Quarter, grid(0, 0, 0, 0, 1, 0, 0, 0)}
	case style.DrumsElectronicHard:
		return drumGrid{transport.Eighth, grid(0, 0, 1, 0, 0, 0, 1, 1)}
	case style.DrumsBrushSoft:
		return drumGrid{transport.Eighth, grid(0, 1, 0, 0, 0, 1, 0, 0)}
	case style.DrumsAcoustic:
		return drumGrid{transport.Eighth, grid(0, 0, 1, 0, 0, 1, 1, 0)}
	}
	return drumGrid{transport.Eighth, grid(0, 0, 1, 0, 0, 0, 1, 0)}
}

func hihatGrid(d style.DrumStyle) drumGrid {
	switch d {
	case style.DrumsUpbeat:
		return drumGrid{transport.Eighth, grid(1, 1, 1, 1, 1, 1, 1, 1)}
	case style.DrumsMinimal:
		return drumGrid{transport.Quarter, grid(1, 0, 1, 0)}
	case style.DrumsElectronicHard:
		return drumGrid{transport.Sixteenth, grid(1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)}
	case style.DrumsBrushSoft:
		return drumGrid{transport.Eighth, grid(1, 0, 1, 0, 1, 0, 1, 0)}
	case style.DrumsAcoustic:
		return drumGrid{transport.Eighth, grid(1, 1, 1, 1)}
	}
	return drumGrid{transport.Sixteenth, grid(1, 1, 1, 1, 1, 1, 1, 1)}
}

func drum(lane Lane, g drumGrid, hold transport.Subdivision, p style.Pitch) *Sequence {
	seq := &Sequence{Lane: lane, Subdivision: g.sub}
	var pitches []style.Pitch
	if !p.IsRest() {
		pitches = []style.Pitch{p}
	}
	for _, hit := range g.hits {
		seq.Steps = append(seq.Steps, Step{Active: hit, Pitches: pitches, Hold: hold})
	}
	return seq
}

func grid(bits ...int) []bool {
	out := make([]bool, len(bits))
	for i, b := range bits {
		out[i] = b != 0
	}
	return out
}
