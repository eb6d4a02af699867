package session

import (
	"context"
	"errors"
	"testing"

	"github.com/satindergrewal/chromavinyl/internal/analysis"
	"github.com/satindergrewal/chromavinyl/internal/audio"
	"github.com/satindergrewal/chromavinyl/internal/mood"
	"github.com/satindergrewal/chromavinyl/internal/pattern"
	"github.com/satindergrewal/chromavinyl/internal/synth"
)

type fakeOutput struct {
	err   error
	calls int
}

func (o *fakeOutput) Acquire(context.Context) error {
	o.calls++
	return o.err
}

func fixture(brightness float64, rgb [3]float64) *analysis.Result {
	return &analysis.Result{
		Brightness: &analysis.Brightness{Average: &brightness},
		Colors:     &analysis.Colors{DominantColors: []analysis.DominantColor{{RGB: rgb, Count: 10}}},
	}
}

var (
	brightWarm = fixture(150, [3]float64{220, 140, 250})
	darkCool   = fixture(40, [3]float64{20, 40, 200})
)

func assertEmpty(t *testing.T, s *Session, when string) {
	t.Helper()
	if r := s.Resources(); r != (Resources{}) {
		t.Errorf("%s: resources = %+v, want none", when, r)
	}
}

// --- Lifecycle ---

func TestStopNeverStarted(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 0.7)
	for i := range 2 {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop #%d = %v, want nil", i+1, err)
		}
		assertEmpty(t, s, "stop on idle session")
	}
	if s.IsPlaying() {
		t.Error("IsPlaying = true on a never-started session")
	}
}

func TestStartThenStopTwice(t *testing.T) {
	out := &fakeOutput{}
	s := New(out, audio.SampleRate, 0.7)
	sum, err := s.Start(context.Background(), brightWarm)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := Summary{Category: mood.BrightWarm, StyleName: "Bright Pop", Tempo: 135}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}
	if !s.IsPlaying() {
		t.Error("IsPlaying = false after Start")
	}
	if got, want := s.Resources(), (Resources{Voices: 6, Effects: 2, Patterns: 6}); got != want {
		t.Errorf("Resources = %+v, want %+v", got, want)
	}
	if out.calls != 1 {
		t.Errorf("Acquire calls = %d, want 1", out.calls)
	}

	for i := range 2 {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop #%d = %v", i+1, err)
		}
		assertEmpty(t, s, "after stop")
	}
	if s.IsPlaying() {
		t.Error("IsPlaying = true after Stop")
	}
}

func TestStartReplacesRunningPerformance(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 0.7)
	if _, err := s.Start(context.Background(), brightWarm); err != nil {
		t.Fatal(err)
	}
	sum, err := s.Start(context.Background(), darkCool)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Category != mood.DarkCool || sum.StyleName != "Dark Ambient" {
		t.Errorf("second Start summary = %+v, want dark ambient", sum)
	}
	if got, want := s.Resources(), (Resources{Voices: 6, Effects: 2, Patterns: 6}); got != want {
		t.Errorf("Resources after restart = %+v, want %+v", got, want)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	assertEmpty(t, s, "after restart and stop")
}

func TestNilAnalysisPlaysBalanced(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 0.7)
	defer s.Stop()
	sum, err := s.Start(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Category != mood.Balanced || sum.Tempo != 100 {
		t.Errorf("nil analysis summary = %+v, want balanced at 100", sum)
	}
}

func TestFailedAcquireStaysIdle(t *testing.T) {
	out := &fakeOutput{}
	s := New(out, audio.SampleRate, 0.7)
	if _, err := s.Start(context.Background(), brightWarm); err != nil {
		t.Fatal(err)
	}

	out.err = errors.New("no output device")
	_, err := s.Start(context.Background(), darkCool)
	var ase *AudioStartError
	if !errors.As(err, &ase) {
		t.Fatalf("Start err = %v, want AudioStartError", err)
	}
	if !errors.Is(err, out.err) {
		t.Errorf("AudioStartError does not unwrap to cause: %v", err)
	}
	if s.IsPlaying() {
		t.Error("IsPlaying = true after failed start")
	}
	assertEmpty(t, s, "after failed start")
}

func TestOutOfRangeBrightnessKeepsTempoInSync(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 0.7)
	if _, err := s.Start(context.Background(), brightWarm); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sum, err := s.Start(context.Background(), fixture(-1000, [3]float64{20, 40, 200}))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if sum.Category != mood.DarkCool || sum.Tempo != 60 {
		t.Errorf("Summary = %+v, want dark_cool at 60 BPM", sum)
	}
	if got := s.tr.BPM(); got != float64(sum.Tempo) {
		t.Errorf("transport BPM = %v, summary tempo = %d", got, sum.Tempo)
	}
}

// --- Teardown ---

func TestFailedBuildLeavesNothing(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 0.7)
	s.audio.SetLimit(4)
	_, err := s.Start(context.Background(), brightWarm)
	if !errors.Is(err, synth.ErrExhausted) {
		t.Fatalf("Start err = %v, want ErrExhausted", err)
	}
	if s.IsPlaying() {
		t.Error("IsPlaying = true after failed Start")
	}
	assertEmpty(t, s, "failed build")
	if names := s.audio.LiveNames(); len(names) != 0 {
		t.Errorf("live after failed build = %v, want none", names)
	}

	s.audio.SetLimit(0)
	if _, err := s.Start(context.Background(), brightWarm); err != nil {
		t.Fatalf("Start after raising limit: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestStopReleasesEverythingPastFailures(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 0.7)
	if _, err := s.Start(context.Background(), brightWarm); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.rack.Kick.Dispose(); err != nil {
		t.Fatalf("Kick.Dispose: %v", err)
	}
	if err := s.patterns.Chords.Dispose(); err != nil {
		t.Fatalf("Chords.Dispose: %v", err)
	}

	err := s.Stop()
	if !errors.Is(err, synth.ErrDisposed) {
		t.Errorf("Stop err = %v, want synth.ErrDisposed", err)
	}
	if !errors.Is(err, pattern.ErrDisposed) {
		t.Errorf("Stop err = %v, want pattern.ErrDisposed", err)
	}
	if s.IsPlaying() {
		t.Error("IsPlaying = true after Stop")
	}
	assertEmpty(t, s, "stop with disposed parts")
	if names := s.audio.LiveNames(); len(names) != 0 {
		t.Errorf("live after Stop = %v, want none", names)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}
}

// --- Volume ---

func TestLevelToDB(t *testing.T) {
	tests := []struct {
		level float64
		want  float64
	}{
		{0, -60},
		{1, 0},
		{0.5, -20},
		{0.75, -10},
		{1.5, 0},
		{-0.2, -60},
	}
	for _, tt := range tests {
		if got := LevelToDB(tt.level); got != tt.want {
			t.Errorf("LevelToDB(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSetVolumeWhileIdle(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 0.7)
	s.SetVolume(0.5)
	if s.Volume() != -20 {
		t.Errorf("Volume = %v, want -20", s.Volume())
	}
	if st := s.Status(); st.VolumeDB != -20 {
		t.Errorf("Status.VolumeDB = %v, want -20", st.VolumeDB)
	}
}

// --- Render ---

func peak(frame []int16) int16 {
	var p int16
	for _, v := range frame {
		if v < 0 {
			v = -v
		}
		p = max(p, v)
	}
	return p
}

func TestRenderIdleIsSilent(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 1)
	frame := make([]int16, audio.FrameSamples)
	frame[0] = 99
	s.Render(frame)
	if p := peak(frame); p != 0 {
		t.Errorf("idle frame peak = %d, want 0", p)
	}
}

func TestRenderPlaying(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 1)
	defer s.Stop()
	var triggers []pattern.Trigger
	s.Subscribe(func(tg pattern.Trigger) { triggers = append(triggers, tg) })
	if _, err := s.Start(context.Background(), brightWarm); err != nil {
		t.Fatal(err)
	}

	frame := make([]int16, audio.FrameSamples)
	var loudest int16
	for range 50 {
		s.Render(frame)
		loudest = max(loudest, peak(frame))
		for i := 0; i < len(frame); i += 2 {
			if frame[i] != frame[i+1] {
				t.Fatalf("channels differ at %d: %d != %d", i, frame[i], frame[i+1])
			}
		}
	}
	if loudest == 0 {
		t.Error("one second of playback is silent")
	}

	lanes := map[pattern.Lane]bool{}
	for _, tg := range triggers {
		if tg.Tick == 0 {
			lanes[tg.Lane] = true
		}
	}
	for _, l := range []pattern.Lane{pattern.LaneMelody, pattern.LaneChords, pattern.LaneBass, pattern.LaneKick, pattern.LaneHihat} {
		if !lanes[l] {
			t.Errorf("%s did not trigger at tick 0", l)
		}
	}
	if st := s.Status(); st.Position == "0:0:0" {
		t.Errorf("Status.Position = %s after one second, want advanced", st.Position)
	}
}

func TestStopSilencesImmediately(t *testing.T) {
	s := New(&fakeOutput{}, audio.SampleRate, 1)
	if _, err := s.Start(context.Background(), brightWarm); err != nil {
		t.Fatal(err)
	}
	frame := make([]int16, audio.FrameSamples)
	for range 10 {
		s.Render(frame)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	s.Render(frame)
	if p := peak(frame); p != 0 {
		t.Errorf("frame after Stop peak = %d, want 0", p)
	}
}
