package synth

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/satindergrewal/chromavinyl/internal/mood"
	"github.com/satindergrewal/chromavinyl/internal/style"
)

const testRate = 48000

// --- Context ---

func TestDBToGain(t *testing.T) {
	if g := DBToGain(0); g != 1 {
		t.Errorf("DBToGain(0) = %v, want 1", g)
	}
	if g := DBToGain(-20); math.Abs(g-0.1) > 1e-9 {
		t.Errorf("DBToGain(-20) = %v, want 0.1", g)
	}
}

func TestMasterVolume(t *testing.T) {
	m := NewMaster(-12)
	if m.Volume() != -12 {
		t.Errorf("Volume = %v, want -12", m.Volume())
	}
	m.SetVolume(0)
	if m.Gain() != 1 {
		t.Errorf("Gain at 0 dB = %v, want 1", m.Gain())
	}
}

func TestDoubleReleaseFails(t *testing.T) {
	ctx := NewContext(testRate)
	r, err := ctx.allocate("x", KindVoice)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := r.release(); !errors.Is(err, ErrDisposed) {
		t.Errorf("second release = %v, want ErrDisposed", err)
	}
}

// --- Envelope ---

func TestEnvelopeReachesSustainAndReleases(t *testing.T) {
	e := newADSR(Envelope{Attack: 0.01, Decay: 0.01, Sustain: 0.5, Release: 0.01}, 1000)
	e.attack()
	var v float64
	for range 30 {
		v = e.next()
	}
	if math.Abs(v-0.5) > 1e-6 {
		t.Errorf("level after attack+decay = %v, want 0.5", v)
	}
	e.release()
	for range 20 {
		e.next()
	}
	if e.active() {
		t.Error("envelope still active after release time")
	}
}

// --- Voices ---

func render(v *Voice, n int) (peak float64) {
	for range n {
		peak = math.Max(peak, math.Abs(v.Sample()))
	}
	return peak
}

func TestVoicesSound(t *testing.T) {
	ctx := NewContext(testRate)
	presets := map[string]Preset{
		"piano":  LeadPreset(style.LeadPiano),
		"fm":     LeadPreset(style.LeadSynth),
		"guitar": LeadPreset(style.LeadGuitar),
		"bass":   BassPreset(style.BassStandard),
		"drone":  BassPreset(style.BassDeepDrone),
		"kick":   KickPreset(),
		"snare":  SnarePreset(),
		"hihat":  HihatPreset(),
	}
	for name, p := range presets {
		v, err := newVoice(ctx, RoleLead, p)
		if err != nil {
			t.Fatal(err)
		}
		if peak := render(v, testRate/10); peak != 0 {
			t.Errorf("%s: silent voice peak = %v, want 0", name, peak)
		}
		v.TriggerAttackRelease(50*time.Millisecond, style.MustPitch("C4"))
		if peak := render(v, testRate/10); peak == 0 {
			t.Errorf("%s: triggered voice is silent", name)
		}
	}
}

func TestPercussionWithoutPitch(t *testing.T) {
	ctx := NewContext(testRate)
	for _, p := range []Preset{KickPreset(), SnarePreset(), HihatPreset()} {
		v, err := newVoice(ctx, RoleKick, p)
		if err != nil {
			t.Fatal(err)
		}
		v.TriggerAttackRelease(10 * time.Millisecond)
		if peak := render(v, testRate/20); peak == 0 {
			t.Errorf("%s: unpitched trigger is silent", p.Name)
		}
	}
}

func TestReleasedVoiceFadesOut(t *testing.T) {
	ctx := NewContext(testRate)
	v, err := newVoice(ctx, RoleLead, LeadPreset(style.LeadPiano))
	if err != nil {
		t.Fatal(err)
	}
	v.TriggerAttackRelease(10*time.Millisecond, style.MustPitch("A4"))
	render(v, 2*testRate)
	if peak := render(v, testRate/10); peak != 0 {
		t.Errorf("peak long after release = %v, want 0", peak)
	}
}

// --- Rack ---

func TestBuildAndDispose(t *testing.T) {
	ctx := NewContext(testRate)
	r, err := Build(ctx, style.For(mood.BrightWarm, 150))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := ctx.Live(KindVoice); got != 6 {
		t.Errorf("live voices = %d, want 6", got)
	}
	if got := ctx.Live(KindEffect); got != 2 {
		t.Errorf("live effects = %d, want 2", got)
	}
	if r.Lead.Route != ToDelay || r.Pad.Route != ToReverb || r.Kick.Route != ToMaster {
		t.Errorf("routes = %v/%v/%v, want delay/reverb/master", r.Lead.Route, r.Pad.Route, r.Kick.Route)
	}
	if err := r.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if names := ctx.LiveNames(); len(names) != 0 {
		t.Errorf("live after Dispose = %v, want none", names)
	}
	if err := r.Dispose(); !errors.Is(err, ErrDisposed) {
		t.Errorf("second Dispose = %v, want ErrDisposed", err)
	}
}

func TestBuildDelayFollowsTempo(t *testing.T) {
	ctx := NewContext(testRate)
	def := style.For(mood.Balanced, 0)
	r, err := Build(ctx, def)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Dispose()
	want := time.Duration(float64(time.Minute) / float64(def.Tempo) / 2)
	if r.Delay.Time != want {
		t.Errorf("delay time at %d BPM = %v, want %v", def.Tempo, r.Delay.Time, want)
	}
}

func TestBuildOnClosedContext(t *testing.T) {
	ctx := NewContext(testRate)
	ctx.Close()
	r, err := Build(ctx, style.For(mood.Intense, 100))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Build on closed context err = %v, want ErrClosed", err)
	}
	if r != nil {
		t.Error("Build on closed context returned a rack")
	}
	if names := ctx.LiveNames(); len(names) != 0 {
		t.Errorf("live after failed Build = %v, want none", names)
	}
}

func TestBuildRollsBackPartialAllocation(t *testing.T) {
	// 2 effects and 6 voices; every limit short of 8 fails part way.
	for limit := 1; limit < 8; limit++ {
		ctx := NewContext(testRate)
		ctx.SetLimit(limit)
		r, err := Build(ctx, style.For(mood.SoftPastel, 120))
		if !errors.Is(err, ErrExhausted) {
			t.Errorf("limit %d: Build err = %v, want ErrExhausted", limit, err)
		}
		if r != nil {
			t.Errorf("limit %d: Build returned a rack", limit)
		}
		if names := ctx.LiveNames(); len(names) != 0 {
			t.Errorf("limit %d: live after failed Build = %v, want none", limit, names)
		}
	}

	ctx := NewContext(testRate)
	ctx.SetLimit(8)
	r, err := Build(ctx, style.For(mood.SoftPastel, 120))
	if err != nil {
		t.Fatalf("Build at exact limit: %v", err)
	}
	if err := r.Dispose(); err != nil {
		t.Errorf("Dispose: %v", err)
	}
}

func TestDisposeContinuesPastDisposedVoice(t *testing.T) {
	ctx := NewContext(testRate)
	r, err := Build(ctx, style.For(mood.NatureGreen, 90))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Bass.Dispose(); err != nil {
		t.Fatalf("Bass.Dispose: %v", err)
	}

	err = r.Dispose()
	if !errors.Is(err, ErrDisposed) {
		t.Errorf("Dispose err = %v, want ErrDisposed", err)
	}
	if names := ctx.LiveNames(); len(names) != 0 {
		t.Errorf("live after Dispose = %v, want none", names)
	}
}

func TestVoicesCached(t *testing.T) {
	ctx := NewContext(testRate)
	r, err := Build(ctx, style.For(mood.Balanced, 0))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Dispose()
	a, b := r.Voices(), r.Voices()
	if len(a) != 6 {
		t.Fatalf("Voices len = %d, want 6", len(a))
	}
	if &a[0] != &b[0] {
		t.Error("Voices allocates a new slice per call")
	}
	want := []*Voice{r.Lead, r.Pad, r.Bass, r.Kick, r.Snare, r.Hihat}
	for i := range want {
		if a[i] != want[i] {
			t.Errorf("Voices[%d] = %s, want %s", i, a[i].Role, want[i].Role)
		}
	}
}

func TestRackLeadRoutesThroughEffects(t *testing.T) {
	ctx := NewContext(testRate)
	r, err := Build(ctx, style.For(mood.BrightWarm, 100))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Dispose()
	r.Lead.TriggerAttackRelease(20*time.Millisecond, style.MustPitch("C4"))
	var peak float64
	for range testRate / 2 {
		peak = math.Max(peak, math.Abs(r.Sample()))
	}
	if peak == 0 {
		t.Error("rack output silent after lead trigger")
	}
}
