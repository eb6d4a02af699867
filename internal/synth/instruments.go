package synth

import (
	"math"

	"github.com/satindergrewal/chromavinyl/internal/style"
)

// instrument is the DSP behind a Voice.
type instrument interface {
	// trigger starts a note. hold is the number of samples before release;
	// a negative hold means attack only.
	trigger(p style.Pitch, hold int)
	sample() float64
}

// gate counts samples down to a release.
type gate struct {
	hold int
}

func (g *gate) tick() bool {
	if g.hold < 0 {
		return false
	}
	if g.hold == 0 {
		g.hold = -1
		return true
	}
	g.hold--
	return false
}

// --- Poly synth ---

const maxPolyphony = 32

type polyNote struct {
	freq  float64
	phase float64
	env   adsr
	gate  gate
}

// polySynth plays overlapping notes of one oscillator and envelope.
type polySynth struct {
	wave  Waveform
	shape Envelope
	rate  int
	notes []*polyNote
}

func newPolySynth(w Waveform, shape Envelope, sampleRate int) *polySynth {
	return &polySynth{wave: w, shape: shape, rate: sampleRate}
}

func (s *polySynth) trigger(p style.Pitch, hold int) {
	if p.IsRest() {
		return
	}
	if len(s.notes) >= maxPolyphony {
		s.notes = s.notes[1:]
	}
	n := &polyNote{freq: p.Frequency(), env: newADSR(s.shape, s.rate), gate: gate{hold: hold}}
	n.env.attack()
	s.notes = append(s.notes, n)
}

func (s *polySynth) sample() float64 {
	var out float64
	live := s.notes[:0]
	for _, n := range s.notes {
		if n.gate.tick() {
			n.env.release()
		}
		out += wave(s.wave, n.phase) * n.env.next()
		n.phase = advance(n.phase, n.freq, float64(s.rate))
		if n.env.active() {
			live = append(live, n)
		}
	}
	s.notes = live
	return out
}

// --- Mono synth ---

// monoSynth is a single oscillator with an envelope and a low-pass filter.
// A new note retriggers the envelope from its current level.
type monoSynth struct {
	wave   Waveform
	env    adsr
	gate   gate
	filter onePole
	freq   float64
	phase  float64
	rate   float64
}

func newMonoSynth(w Waveform, shape Envelope, cutoff float64, sampleRate int) *monoSynth {
	return &monoSynth{
		wave:   w,
		env:    newADSR(shape, sampleRate),
		gate:   gate{hold: -1},
		filter: newOnePole(cutoff, sampleRate),
		rate:   float64(sampleRate),
	}
}

func (s *monoSynth) trigger(p style.Pitch, hold int) {
	if p.IsRest() {
		return
	}
	s.freq = p.Frequency()
	s.gate.hold = hold
	s.env.attack()
}

func (s *monoSynth) sample() float64 {
	if s.gate.tick() {
		s.env.release()
	}
	if !s.env.active() {
		return s.filter.lowpass(0)
	}
	out := wave(s.wave, s.phase) * s.env.next()
	s.phase = advance(s.phase, s.freq, s.rate)
	return s.filter.lowpass(out)
}

// --- FM synth ---

// fmSynth is a monophonic two-operator FM voice.
type fmSynth struct {
	harmonicity float64
	index       float64
	modWave     Waveform
	env         adsr
	gate        gate
	freq        float64
	carrier     float64
	modulator   float64
	rate        float64
}

func newFMSynth(harmonicity, index float64, modWave Waveform, shape Envelope, sampleRate int) *fmSynth {
	return &fmSynth{
		harmonicity: harmonicity,
		index:       index,
		modWave:     modWave,
		env:         newADSR(shape, sampleRate),
		gate:        gate{hold: -1},
		rate:        float64(sampleRate),
	}
}

func (s *fmSynth) trigger(p style.Pitch, hold int) {
	if p.IsRest() {
		return
	}
	s.freq = p.Frequency()
	s.gate.hold = hold
	s.env.attack()
}

func (s *fmSynth) sample() float64 {
	if s.gate.tick() {
		s.env.release()
	}
	if !s.env.active() {
		return 0
	}
	env := s.env.next()
	mod := wave(s.modWave, s.modulator) * s.index * env
	out := math.Sin(2*math.Pi*s.carrier+mod) * env
	s.carrier = advance(s.carrier, s.freq, s.rate)
	s.modulator = advance(s.modulator, s.freq*s.harmonicity, s.rate)
	return out
}

// --- Pluck synth ---

// pluckSynth is a Karplus-Strong string. Notes ring out on their own, so
// hold is ignored.
type pluckSynth struct {
	attackNoise float64
	resonance   float64
	damp        onePole
	buf         []float64
	pos         int
	src         noise
	rate        int
}

func newPluckSynth(attackNoise, dampening, resonance float64, sampleRate int) *pluckSynth {
	return &pluckSynth{
		attackNoise: attackNoise,
		resonance:   resonance,
		damp:        newOnePole(dampening, sampleRate),
		src:         noise{seed: 0x9e3779b97f4a7c15},
		rate:        sampleRate,
	}
}

func (s *pluckSynth) trigger(p style.Pitch, _ int) {
	if p.IsRest() {
		return
	}
	n := int(float64(s.rate) / p.Frequency())
	if n < 2 {
		n = 2
	}
	s.buf = make([]float64, n)
	for i := range s.buf {
		s.buf[i] = s.src.next() * s.attackNoise
	}
	s.pos = 0
}

func (s *pluckSynth) sample() float64 {
	if len(s.buf) == 0 {
		return 0
	}
	out := s.buf[s.pos]
	nxt := s.buf[(s.pos+1)%len(s.buf)]
	s.buf[s.pos] = s.damp.lowpass((out+nxt)/2) * (0.9 + 0.1*s.resonance)
	s.pos = (s.pos + 1) % len(s.buf)
	return out
}

// --- Percussion ---

// membraneSynth is a kick drum: a sine whose pitch falls from
// freq*2^octaves to freq over pitchDecay seconds.
type membraneSynth struct {
	pitchDecay float64
	octaves    float64
	env        adsr
	gate       gate
	freq       float64
	phase      float64
	elapsed    float64
	rate       float64
}

func newMembraneSynth(pitchDecay, octaves float64, shape Envelope, sampleRate int) *membraneSynth {
	return &membraneSynth{
		pitchDecay: pitchDecay,
		octaves:    octaves,
		env:        newADSR(shape, sampleRate),
		gate:       gate{hold: -1},
		rate:       float64(sampleRate),
	}
}

func (s *membraneSynth) trigger(p style.Pitch, hold int) {
	if p.IsRest() {
		p = style.MustPitch("C1")
	}
	s.freq = p.Frequency()
	s.gate.hold = hold
	s.elapsed = 0
	s.phase = 0
	s.env.attack()
}

func (s *membraneSynth) sample() float64 {
	if s.gate.tick() {
		s.env.release()
	}
	if !s.env.active() {
		return 0
	}
	sweep := math.Pow(2, s.octaves*math.Max(0, 1-s.elapsed/s.pitchDecay))
	out := math.Sin(2*math.Pi*s.phase) * s.env.next()
	s.phase = advance(s.phase, s.freq*sweep, s.rate)
	s.elapsed += 1 / s.rate
	return out
}

// noiseSynth is white noise through an envelope: the snare.
type noiseSynth struct {
	env  adsr
	gate gate
	src  noise
}

func newNoiseSynth(shape Envelope, sampleRate int) *noiseSynth {
	return &noiseSynth{env: newADSR(shape, sampleRate), gate: gate{hold: -1}, src: noise{seed: 0x2545f4914f6cdd1d}}
}

func (s *noiseSynth) trigger(_ style.Pitch, hold int) {
	s.gate.hold = hold
	s.env.attack()
}

func (s *noiseSynth) sample() float64 {
	if s.gate.tick() {
		s.env.release()
	}
	if !s.env.active() {
		return 0
	}
	return s.src.next() * s.env.next()
}

// metalRatios are the inharmonic partials of a cymbal-like tone.
var metalRatios = [6]float64{1.0, 1.483, 1.932, 2.546, 2.630, 3.897}

// metalSynth sums inharmonic square partials and high-passes them: the hi-hat.
type metalSynth struct {
	freq     float64
	octaves  float64
	env      adsr
	gate     gate
	phases   [6]float64
	highpass onePole
	rate     float64
}

func newMetalSynth(freq, harmonicity, resonance, octaves float64, shape Envelope, sampleRate int) *metalSynth {
	return &metalSynth{
		freq:     freq * harmonicity,
		octaves:  octaves,
		env:      newADSR(shape, sampleRate),
		gate:     gate{hold: -1},
		highpass: newOnePole(resonance, sampleRate),
		rate:     float64(sampleRate),
	}
}

func (s *metalSynth) trigger(_ style.Pitch, hold int) {
	s.gate.hold = hold
	s.env.attack()
}

func (s *metalSynth) sample() float64 {
	if s.gate.tick() {
		s.env.release()
	}
	if !s.env.active() {
		return 0
	}
	var sum float64
	spread := math.Pow(2, s.octaves/6)
	for i, r := range metalRatios {
		sum += wave(Square, s.phases[i])
		s.phases[i] = advance(s.phases[i], s.freq*r*spread, s.rate)
	}
	return s.highpass.highpass(sum/6) * s.env.next()
}
