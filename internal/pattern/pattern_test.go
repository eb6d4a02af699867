package pattern

import (
	"errors"
	"testing"
	"time"

	"github.com/satindergrewal/chromavinyl/internal/mood"
	"github.com/satindergrewal/chromavinyl/internal/style"
	"github.com/satindergrewal/chromavinyl/internal/transport"
)

type hit struct {
	hold       time.Duration
	attackOnly bool
	pitches    []style.Pitch
}

type recorder struct{ hits []hit }

func (r *recorder) TriggerAttack(p ...style.Pitch) {
	r.hits = append(r.hits, hit{attackOnly: true, pitches: p})
}

func (r *recorder) TriggerAttackRelease(hold time.Duration, p ...style.Pitch) {
	r.hits = append(r.hits, hit{hold: hold, pitches: p})
}

// --- Compile ---

func TestBassAndChordsLoopTogether(t *testing.T) {
	for _, c := range mood.Categories {
		for _, b := range []float64{0, 128, 255} {
			set := Compile(style.For(c, b))
			if got, want := set.Bass.LoopTicks(), set.Chords.LoopTicks(); got != want {
				t.Errorf("%s: bass loop = %d ticks, chords loop = %d", c, got, want)
			}
			if got, want := set.Melody.LoopTicks(), set.Chords.LoopTicks(); got != want {
				t.Errorf("%s: melody loop = %d ticks, chords loop = %d", c, got, want)
			}
		}
	}
}

func TestEveryBassPatternSpansAChord(t *testing.T) {
	patterns := []style.BassPattern{
		style.BassStandard, style.BassBouncy, style.BassDeepDrone,
		style.BassPulsingHeavy, style.BassWalkingSmooth, style.BassFingerstyle,
	}
	for _, b := range patterns {
		tpl := bassTemplateFor(b)
		if got := transport.Ticks(len(tpl.hits)) * tpl.sub.Ticks(); got != transport.Half.Ticks() {
			t.Errorf("%s template spans %d ticks, want %d", b, got, transport.Half.Ticks())
		}
	}
}

func TestBassFollowsChordRoots(t *testing.T) {
	def := style.For(mood.Intense, 100)
	set := Compile(def)
	roots := def.Roots()
	per := len(set.Bass.Steps) / len(roots)
	for i, step := range set.Bass.Steps {
		if got, want := step.Pitches[0], roots[i/per]; got != want {
			t.Errorf("bass step %d pitch = %s, want %s", i, got, want)
		}
	}
	if set.Bass.Subdivision != transport.Sixteenth || len(set.Bass.Steps) != 32 {
		t.Errorf("pulsing bass = %d steps at %s, want 32 at 16n", len(set.Bass.Steps), set.Bass.Subdivision)
	}
}

func TestMelodyRestsAreInactive(t *testing.T) {
	set := Compile(style.For(mood.DarkCool, 40))
	if set.Melody.Steps[1].Active {
		t.Error("rest step in dark melody is active")
	}
	if !set.Melody.Steps[0].Active {
		t.Error("first dark melody step is inactive")
	}
}

func TestGuitarMelodyIsAttackOnly(t *testing.T) {
	set := Compile(style.For(mood.NatureGreen, 100))
	for i, s := range set.Melody.Steps {
		if !s.AttackOnly {
			t.Errorf("guitar melody step %d is not attack-only", i)
		}
	}
	set = Compile(style.For(mood.BrightWarm, 200))
	if set.Melody.Steps[0].AttackOnly {
		t.Error("piano melody step is attack-only")
	}
}

func TestDrumGrids(t *testing.T) {
	set := Compile(style.For(mood.DarkCool, 40))
	if set.Kick.Subdivision != transport.Quarter {
		t.Errorf("minimal kick subdivision = %s, want 4n", set.Kick.Subdivision)
	}
	set = Compile(style.For(mood.Intense, 100))
	if set.Hihat.Subdivision != transport.Sixteenth || len(set.Hihat.Steps) != 16 {
		t.Errorf("electronic hihat = %d steps at %s, want 16 at 16n", len(set.Hihat.Steps), set.Hihat.Subdivision)
	}
	if !set.Snare.Steps[6].Active || !set.Snare.Steps[7].Active {
		t.Error("electronic snare missing its closing double hit")
	}
	if p := set.Kick.Steps[0].Pitches; len(p) != 1 || p[0] != style.MustPitch("C1") {
		t.Errorf("kick pitches = %v, want [C1]", p)
	}
	if p := set.Snare.Steps[2].Pitches; len(p) != 0 {
		t.Errorf("snare pitches = %v, want none", p)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	a := Compile(style.For(mood.SoftPastel, 130))
	b := Compile(style.For(mood.SoftPastel, 130))
	for i, s := range a.All() {
		if len(s.Steps) != len(b.All()[i].Steps) || s.Subdivision != b.All()[i].Subdivision {
			t.Errorf("%s compiled differently on second call", s.Lane)
		}
	}
}

// --- Scheduling ---

func TestLanesShareZero(t *testing.T) {
	clock := &transport.ManualClock{}
	tr := transport.New(clock)
	tr.SetBPM(120)
	set := Compile(style.For(mood.Intense, 100))

	first := map[Lane]transport.Ticks{}
	observe := func(tg Trigger) {
		if _, ok := first[tg.Lane]; !ok {
			first[tg.Lane] = tg.Tick
		}
		if tg.Tick%set.All()[tg.Lane].Subdivision.Ticks() != 0 {
			t.Errorf("%s fired off its grid at tick %d", tg.Lane, tg.Tick)
		}
	}
	for _, s := range set.All() {
		if err := s.Start(tr, &recorder{}, observe); err != nil {
			t.Fatalf("Start %s: %v", s.Lane, err)
		}
	}
	tr.Start()
	for range 400 {
		clock.Advance(10 * time.Millisecond)
		tr.Poll()
	}
	for _, lane := range []Lane{LaneMelody, LaneChords, LaneBass, LaneKick, LaneHihat} {
		if tick, ok := first[lane]; !ok || tick != 0 {
			t.Errorf("%s first trigger at %d (fired %v), want tick 0", lane, tick, ok)
		}
	}
}

func TestLoopRepeatsSteps(t *testing.T) {
	clock := &transport.ManualClock{}
	tr := transport.New(clock)
	tr.SetBPM(60)
	seq := Compile(style.For(mood.BrightWarm, 100)).Chords
	rec := &recorder{}
	if err := seq.Start(tr, rec, nil); err != nil {
		t.Fatal(err)
	}
	tr.Start()
	tr.Poll()
	// At 60 BPM a half note is two seconds: eight chords take 16s.
	for range 14 {
		clock.Advance(time.Second)
		tr.Poll()
	}
	clock.Advance(time.Second)
	tr.Poll()
	if len(rec.hits) != 8 {
		t.Fatalf("chord triggers = %d, want 8", len(rec.hits))
	}
	for i := range 4 {
		if rec.hits[i].pitches[0] != rec.hits[i+4].pitches[0] {
			t.Errorf("loop step %d = %v, second pass = %v", i, rec.hits[i].pitches, rec.hits[i+4].pitches)
		}
	}
	if rec.hits[0].hold != 2*time.Second {
		t.Errorf("chord hold = %v, want 2s", rec.hits[0].hold)
	}
}

func TestStopAndDispose(t *testing.T) {
	tr := transport.New(&transport.ManualClock{})
	set := Compile(style.For(mood.Balanced, 50))
	for _, s := range set.All() {
		if err := s.Start(tr, &recorder{}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := set.Melody.Start(tr, &recorder{}, nil); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start = %v, want ErrRunning", err)
	}
	if tr.Scheduled() != 6 {
		t.Errorf("Scheduled = %d, want 6", tr.Scheduled())
	}
	for _, s := range set.All() {
		if err := s.Dispose(); err != nil {
			t.Errorf("Dispose %s: %v", s.Lane, err)
		}
	}
	if tr.Scheduled() != 0 {
		t.Errorf("Scheduled after Dispose = %d, want 0", tr.Scheduled())
	}
	if err := set.Bass.Dispose(); !errors.Is(err, ErrDisposed) {
		t.Errorf("second Dispose = %v, want ErrDisposed", err)
	}
	if err := set.Bass.Start(tr, &recorder{}, nil); !errors.Is(err, ErrDisposed) {
		t.Errorf("Start after Dispose = %v, want ErrDisposed", err)
	}
}
