package synth

// Envelope is an ADSR shape. Times are in seconds; Sustain is a level in [0,1].
type Envelope struct {
	Attack, Decay, Sustain, Release float64
}

type stage int

const (
	stageIdle stage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// adsr is a running envelope. Segments are linear.
type adsr struct {
	shape Envelope
	rate  float64

	stage stage
	level float64
	from  float64 // level at the start of the current segment
	pos   int     // samples into the current segment
}

func newADSR(shape Envelope, sampleRate int) adsr {
	return adsr{shape: shape, rate: float64(sampleRate)}
}

// attack restarts from the current level so retriggers do not click.
func (e *adsr) attack() {
	e.stage = stageAttack
	e.from = e.level
	e.pos = 0
}

func (e *adsr) release() {
	if e.stage == stageIdle || e.stage == stageRelease {
		return
	}
	e.stage = stageRelease
	e.from = e.level
	e.pos = 0
}

func (e *adsr) active() bool { return e.stage != stageIdle }

func (e *adsr) next() float64 {
	switch e.stage {
	case stageAttack:
		n := e.samples(e.shape.Attack)
		if e.pos >= n {
			e.enter(stageDecay)
			return e.next()
		}
		e.level = e.from + (1-e.from)*float64(e.pos)/float64(n)
	case stageDecay:
		n := e.samples(e.shape.Decay)
		if e.pos >= n {
			e.enter(stageSustain)
			return e.next()
		}
		e.level = 1 - (1-e.shape.Sustain)*float64(e.pos)/float64(n)
	case stageSustain:
		e.level = e.shape.Sustain
		if e.level <= 0 {
			e.stage = stageIdle
		}
	case stageRelease:
		n := e.samples(e.shape.Release)
		if e.pos >= n {
			e.stage = stageIdle
			e.level = 0
			return 0
		}
		e.level = e.from * (1 - float64(e.pos)/float64(n))
	default:
		return 0
	}
	e.pos++
	return e.level
}

func (e *adsr) enter(s stage) {
	e.stage = s
	e.from = e.level
	e.pos = 0
}

func (e *adsr) samples(seconds float64) int {
	n := int(seconds * e.rate)
	if n < 1 {
		n = 1
	}
	return n
}
