package transport

import "time"

// Clock is the time source a Transport follows.
type Clock interface {
	Now() time.Duration
}

// SampleClock counts rendered audio samples. The renderer advances it once
// per sample, so transport time tracks exactly what has been heard.
type SampleClock struct {
	rate    int
	samples int64
}

// NewSampleClock creates a clock for the given sample rate.
func NewSampleClock(sampleRate int) *SampleClock {
	return &SampleClock{rate: sampleRate}
}

// Advance moves the clock forward by n samples.
func (c *SampleClock) Advance(n int) {
	c.samples += int64(n)
}

// Now returns the elapsed time of all rendered samples.
func (c *SampleClock) Now() time.Duration {
	rate := int64(c.rate)
	whole := c.samples / rate
	frac := c.samples % rate
	return time.Duration(whole)*time.Second + time.Duration(frac)*time.Second/time.Duration(rate)
}

// ManualClock is stepped explicitly. Used to drive a Transport deterministically.
type ManualClock struct {
	now time.Duration
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now += d
}

// Now returns the accumulated time.
func (c *ManualClock) Now() time.Duration {
	return c.now
}
