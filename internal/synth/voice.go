package synth

import (
	"time"

	"github.com/satindergrewal/chromavinyl/internal/style"
)

// Role is the part a voice plays in the arrangement.
type Role int

const (
	RoleLead Role = iota
	RolePad
	RoleBass
	RoleKick
	RoleSnare
	RoleHihat
)

func (r Role) String() string {
	switch r {
	case RoleLead:
		return "lead"
	case RolePad:
		return "pad"
	case RoleBass:
		return "bass"
	case RoleKick:
		return "kick"
	case RoleSnare:
		return "snare"
	case RoleHihat:
		return "hihat"
	}
	return "unknown"
}

// Preset is a timbre, level and route for a voice.
type Preset struct {
	Name     string
	VolumeDB float64
	Route    Route
	build    func(sampleRate int) instrument
}

// Voice is one synthesized instrument owned by a rack.
type Voice struct {
	Role     Role
	Preset   string
	VolumeDB float64
	Route    Route

	gain float64
	inst instrument
	rate int
	res  *resource
}

func newVoice(ctx *Context, role Role, p Preset) (*Voice, error) {
	res, err := ctx.allocate("voice:"+role.String()+":"+p.Name, KindVoice)
	if err != nil {
		return nil, err
	}
	return &Voice{
		Role:     role,
		Preset:   p.Name,
		VolumeDB: p.VolumeDB,
		Route:    p.Route,
		gain:     DBToGain(p.VolumeDB),
		inst:     p.build(ctx.SampleRate),
		rate:     ctx.SampleRate,
		res:      res,
	}, nil
}

// TriggerAttack starts notes that are never released by the voice itself.
func (v *Voice) TriggerAttack(pitches ...style.Pitch) {
	v.trigger(-1, pitches)
}

// TriggerAttackRelease starts notes and releases them after hold.
// Percussion voices accept no pitches.
func (v *Voice) TriggerAttackRelease(hold time.Duration, pitches ...style.Pitch) {
	n := int(hold.Seconds() * float64(v.rate))
	if n < 0 {
		n = 0
	}
	v.trigger(n, pitches)
}

func (v *Voice) trigger(hold int, pitches []style.Pitch) {
	if len(pitches) == 0 {
		v.inst.trigger(style.Rest, hold)
		return
	}
	for _, p := range pitches {
		v.inst.trigger(p, hold)
	}
}

// Sample renders the next output sample at the voice level.
func (v *Voice) Sample() float64 {
	return v.inst.sample() * v.gain
}

// Dispose releases the voice.
func (v *Voice) Dispose() error {
	return v.res.release()
}

// LeadPreset returns the lead timbre for an instrument choice.
func LeadPreset(l style.LeadInstrument) Preset {
	switch l {
	case style.LeadPad:
		return Preset{Name: "pad", VolumeDB: -18, Route: ToReverb, build: func(rate int) instrument {
			return newPolySynth(Sawtooth, Envelope{Attack: 2.0, Decay: 1.0, Sustain: 0.9, Release: 4.0}, rate)
		}}
	case style.LeadSynth:
		return Preset{Name: "synth_lead", VolumeDB: -10, Route: ToDelay, build: func(rate int) instrument {
			return newFMSynth(8, 20, Square, Envelope{Attack: 0.001, Decay: 0.1, Sustain: 0.4, Release: 0.5}, rate)
		}}
	case style.LeadSoftSynth:
		return Preset{Name: "soft_synth", VolumeDB: -12, Route: ToDelay, build: func(rate int) instrument {
			return newPolySynth(Triangle, Envelope{Attack: 0.05, Decay: 0.3, Sustain: 0.5, Release: 2.0}, rate)
		}}
	case style.LeadGuitar:
		return Preset{Name: "guitar", VolumeDB: -8, Route: ToReverb, build: func(rate int) instrument {
			return newPluckSynth(1, 4000, 0.9, rate)
		}}
	}
	return Preset{Name: "piano", VolumeDB: -8, Route: ToDelay, build: func(rate int) instrument {
		return newPolySynth(Sine, Envelope{Attack: 0.01, Decay: 0.2, Sustain: 0.3, Release: 1.0}, rate)
	}}
}

// PadPreset is the chord voice shared by every style.
func PadPreset() Preset {
	return Preset{Name: "pad", VolumeDB: -22, Route: ToReverb, build: func(rate int) instrument {
		return newPolySynth(Sawtooth, Envelope{Attack: 0.8, Decay: 0.3, Sustain: 0.7, Release: 2}, rate)
	}}
}

// BassPreset returns the bass timbre for a bass pattern.
func BassPreset(b style.BassPattern) Preset {
	if b == style.BassDeepDrone {
		return Preset{Name: "drone", VolumeDB: -8, Route: ToMaster, build: func(rate int) instrument {
			return newMonoSynth(Sine, Envelope{Attack: 0.1, Decay: 0.3, Sustain: 0.9, Release: 1.0}, 800, rate)
		}}
	}
	return Preset{Name: "pluck_bass", VolumeDB: -10, Route: ToMaster, build: func(rate int) instrument {
		return newMonoSynth(Triangle, Envelope{Attack: 0.01, Decay: 0.2, Sustain: 0.3, Release: 0.5}, 2400, rate)
	}}
}

// KickPreset, SnarePreset and HihatPreset are the same for every style.
func KickPreset() Preset {
	return Preset{Name: "membrane", VolumeDB: -5, Route: ToMaster, build: func(rate int) instrument {
		return newMembraneSynth(0.05, 6, Envelope{Attack: 0.001, Decay: 0.4, Sustain: 0.01, Release: 0.4}, rate)
	}}
}

func SnarePreset() Preset {
	return Preset{Name: "noise", VolumeDB: -15, Route: ToMaster, build: func(rate int) instrument {
		return newNoiseSynth(Envelope{Attack: 0.001, Decay: 0.2, Sustain: 0.01, Release: 0.2}, rate)
	}}
}

func HihatPreset() Preset {
	return Preset{Name: "metal", VolumeDB: -25, Route: ToMaster, build: func(rate int) instrument {
		return newMetalSynth(200, 5.1, 4000, 1.5, Envelope{Attack: 0.001, Decay: 0.1, Release: 0.05}, rate)
	}}
}
