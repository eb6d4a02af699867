package synth

import (
	"math"
	"time"
)

// Route is where a voice or effect sends its output.
type Route int

const (
	ToMaster Route = iota
	ToReverb
	ToDelay
)

func (r Route) String() string {
	switch r {
	case ToReverb:
		return "reverb"
	case ToDelay:
		return "delay"
	}
	return "master"
}

// FeedbackDelay is an echo with feedback and a wet/dry mix.
type FeedbackDelay struct {
	Time     time.Duration
	Feedback float64
	Wet      float64

	buf []float64
	pos int
	res *resource
}

func newFeedbackDelay(ctx *Context, delay time.Duration, feedback, wet float64) (*FeedbackDelay, error) {
	res, err := ctx.allocate("effect:delay", KindEffect)
	if err != nil {
		return nil, err
	}
	n := int(delay.Seconds() * float64(ctx.SampleRate))
	if n < 1 {
		n = 1
	}
	return &FeedbackDelay{Time: delay, Feedback: feedback, Wet: wet, buf: make([]float64, n), res: res}, nil
}

func (d *FeedbackDelay) process(in float64) float64 {
	delayed := d.buf[d.pos]
	d.buf[d.pos] = in + delayed*d.Feedback
	d.pos = (d.pos + 1) % len(d.buf)
	return in*(1-d.Wet) + delayed*d.Wet
}

// Dispose releases the delay.
func (d *FeedbackDelay) Dispose() error {
	return d.res.release()
}

type comb struct {
	buf      []float64
	pos      int
	feedback float64
	damp     onePole
}

func (c *comb) process(in float64) float64 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + c.damp.lowpass(out)*c.feedback
	c.pos = (c.pos + 1) % len(c.buf)
	return out
}

type allpass struct {
	buf []float64
	pos int
}

func (a *allpass) process(in float64) float64 {
	delayed := a.buf[a.pos]
	out := delayed - in*0.5
	a.buf[a.pos] = in + delayed*0.5
	a.pos = (a.pos + 1) % len(a.buf)
	return out
}

// Schroeder comb and allpass lengths in milliseconds.
var (
	combDelays    = [4]float64{29.7, 37.1, 41.1, 43.7}
	allpassDelays = [2]float64{5.0, 1.7}
)

// Reverb is a Schroeder reverberator whose tail falls 60 dB over Decay.
type Reverb struct {
	Decay time.Duration
	Wet   float64

	combs     [4]comb
	allpasses [2]allpass
	res       *resource
}

func newReverb(ctx *Context, decay time.Duration, wet float64) (*Reverb, error) {
	res, err := ctx.allocate("effect:reverb", KindEffect)
	if err != nil {
		return nil, err
	}
	r := &Reverb{Decay: decay, Wet: wet, res: res}
	rate := float64(ctx.SampleRate)
	for i, ms := range combDelays {
		delay := ms / 1000
		r.combs[i] = comb{
			buf:      make([]float64, max(1, int(delay*rate))),
			feedback: math.Pow(10, -3*delay/decay.Seconds()),
			damp:     newOnePole(6000, ctx.SampleRate),
		}
	}
	for i, ms := range allpassDelays {
		r.allpasses[i] = allpass{buf: make([]float64, max(1, int(ms/1000*rate)))}
	}
	return r, nil
}

func (r *Reverb) process(in float64) float64 {
	var wet float64
	for i := range r.combs {
		wet += r.combs[i].process(in)
	}
	wet /= float64(len(r.combs))
	for i := range r.allpasses {
		wet = r.allpasses[i].process(wet)
	}
	return in*(1-r.Wet) + wet*r.Wet
}

// Dispose releases the reverb.
func (r *Reverb) Dispose() error {
	return r.res.release()
}
