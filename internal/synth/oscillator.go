package synth

import "math"

// Waveform is an oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Sawtooth
	Square
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Sawtooth:
		return "sawtooth"
	case Square:
		return "square"
	}
	return "unknown"
}

// wave evaluates the waveform at phase in [0,1).
func wave(w Waveform, phase float64) float64 {
	switch w {
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	case Sawtooth:
		return 2*phase - 1
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	}
	return math.Sin(2 * math.Pi * phase)
}

func advance(phase, freq, rate float64) float64 {
	phase += freq / rate
	return phase - math.Floor(phase)
}

// noise is a linear congruential white noise source in [-1,1].
type noise struct{ seed uint64 }

func (n *noise) next() float64 {
	n.seed = n.seed*6364136223846793005 + 1442695040888963407
	return float64(int64(n.seed>>33)-int64(1<<30)) / float64(1<<30)
}

// onePole is a first-order low-pass filter.
type onePole struct {
	a, z float64
}

func newOnePole(cutoff float64, sampleRate int) onePole {
	return onePole{a: 1 - math.Exp(-2*math.Pi*cutoff/float64(sampleRate))}
}

func (f *onePole) lowpass(x float64) float64 {
	f.z += f.a * (x - f.z)
	return f.z
}

func (f *onePole) highpass(x float64) float64 {
	return x - f.lowpass(x)
}

// SoftClip saturates gently instead of hard clipping.
func SoftClip(x float64) float64 {
	switch {
	case x > 1.5:
		return 1
	case x < -1.5:
		return -1
	}
	return x - x*x*x*4/27
}
