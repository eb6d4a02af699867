package synth

import (
	"errors"
	"fmt"
	"time"

	"github.com/satindergrewal/chromavinyl/internal/style"
)

// Rack is the effect chain and voice set built for one style. Delay feeds
// reverb, reverb feeds the master output.
type Rack struct {
	Delay  *FeedbackDelay
	Reverb *Reverb

	Lead, Pad, Bass, Kick, Snare, Hihat *Voice

	voices []*Voice // allocated voices in role order
}

// Build allocates the effects and voices a style needs. If any allocation
// fails, everything already allocated is disposed before returning.
func Build(ctx *Context, def style.Definition) (rack *Rack, err error) {
	r := &Rack{}
	defer func() {
		if err != nil {
			if derr := r.Dispose(); derr != nil {
				err = errors.Join(err, derr)
			}
			rack = nil
		}
	}()

	if r.Reverb, err = newReverb(ctx, 3*time.Second, 0.3); err != nil {
		return nil, fmt.Errorf("build reverb: %w", err)
	}
	eighth := time.Duration(float64(time.Minute) / float64(max(def.Tempo, 1)) / 2)
	if r.Delay, err = newFeedbackDelay(ctx, eighth, 0.3, 0.2); err != nil {
		return nil, fmt.Errorf("build delay: %w", err)
	}

	voices := []struct {
		dst    **Voice
		role   Role
		preset Preset
	}{
		{&r.Lead, RoleLead, LeadPreset(def.LeadInstrument)},
		{&r.Pad, RolePad, PadPreset()},
		{&r.Bass, RoleBass, BassPreset(def.BassPattern)},
		{&r.Kick, RoleKick, KickPreset()},
		{&r.Snare, RoleSnare, SnarePreset()},
		{&r.Hihat, RoleHihat, HihatPreset()},
	}
	for _, v := range voices {
		var voice *Voice
		if voice, err = newVoice(ctx, v.role, v.preset); err != nil {
			return nil, fmt.Errorf("build %s voice: %w", v.role, err)
		}
		*v.dst = voice
		r.voices = append(r.voices, voice)
	}
	return r, nil
}

// Voices returns the allocated voices in role order. The slice is shared;
// callers must not modify it.
func (r *Rack) Voices() []*Voice { return r.voices }

// Sample mixes one sample through the effect chain, before master gain.
func (r *Rack) Sample() float64 {
	var master, delayIn, reverbIn float64
	for _, v := range r.voices {
		s := v.Sample()
		switch v.Route {
		case ToDelay:
			delayIn += s
		case ToReverb:
			reverbIn += s
		default:
			master += s
		}
	}
	reverbIn += r.Delay.process(delayIn)
	master += r.Reverb.process(reverbIn)
	return master
}

// Dispose releases every voice, then every effect. Each release is attempted
// even if an earlier one fails; failures are joined.
func (r *Rack) Dispose() error {
	var errs []error
	for _, v := range r.voices {
		if err := v.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose %s voice: %w", v.Role, err))
		}
	}
	if r.Delay != nil {
		if err := r.Delay.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose delay: %w", err))
		}
	}
	if r.Reverb != nil {
		if err := r.Reverb.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose reverb: %w", err))
		}
	}
	return errors.Join(errs...)
}
