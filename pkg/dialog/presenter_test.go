package dialog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/equinology/waleed/internal/clock"
	"github.com/equinology/waleed/pkg/events"
)

const tick = 20 * time.Millisecond

func sampleScript() *Script {
	return &Script{
		Name:         "test-waleed",
		Assistant:    "Waleed",
		Greeting:     "Hi there! How can I help?",
		GreetingMood: MoodHappy,
		Options: []*Node{
			{
				Prompt:   "Tell me about neural networks",
				Response: "Computing systems inspired by neurons.",
				Mood:     MoodHappy,
			},
			{
				Prompt:   "Who created you?",
				Response: "A team of *brilliant* engineers.",
				Children: []*Node{
					{Prompt: "You're definitely more WALL-E", Response: "Aww shucks!", Mood: MoodHappy},
					{Prompt: "You're giving me HAL vibes...", Response: "I'm sorry Dave.", Mood: MoodConfused},
				},
			},
			{
				Prompt:   "Tell me a joke",
				Response: "Atoms make up everything!",
				Mood:     MoodConfused,
			},
		},
	}
}

type fakeNarrator struct {
	mu       sync.Mutex
	texts    []string
	statuses []func(bool)
	cancels  int
}

func (f *fakeNarrator) Narrate(text string, status func(bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.statuses = append(f.statuses, status)
}

func (f *fakeNarrator) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeNarrator) narrated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *fakeNarrator) status(i int) func(bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[i]
}

func (f *fakeNarrator) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

type harness struct {
	clock     *clock.FakeClock
	narrator  *fakeNarrator
	presenter *Presenter
	script    *Script
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		narrator: &fakeNarrator{},
		script:   sampleScript(),
	}
	base := []Option{
		WithClock(h.clock),
		WithNarrator(h.narrator),
		WithTiming(Timing{
			RevealInterval: tick,
			NarrationDelay: 5 * tick,
			TeardownDelay:  500 * time.Millisecond,
		}),
	}
	h.presenter = NewPresenter(StaticSource(h.script), append(base, opts...)...)
	t.Cleanup(h.presenter.Close)
	return h
}

// finish advances tick by tick until the reveal in flight completes.
func (h *harness) finish(t *testing.T) State {
	t.Helper()
	for i := 0; h.presenter.Snapshot().Revealing; i++ {
		if i > 10000 {
			t.Fatal("reveal never completed")
		}
		h.clock.Advance(tick)
	}
	return h.presenter.Snapshot()
}

// revealChecked advances one tick per rune of text, asserting that the
// revealed text grows by exactly one rune each tick.
func (h *harness) revealChecked(t *testing.T, text string) State {
	t.Helper()
	runes := []rune(text)
	var s State
	for i := 1; i <= len(runes); i++ {
		h.clock.Advance(tick)
		s = h.presenter.Snapshot()
		if want := string(runes[:i]); s.Revealed != want {
			t.Fatalf("after %d ticks revealed = %q, want %q", i, s.Revealed, want)
		}
		if i < len(runes) && !s.Revealing {
			t.Fatalf("reveal stopped after %d of %d runes", i, len(runes))
		}
	}
	if s.Revealing {
		t.Fatal("still revealing after the full text")
	}
	return s
}

func sameNodes(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStartRevealsGreeting(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()

	s := h.presenter.Snapshot()
	if s.Phase != PhaseGreeting {
		t.Errorf("phase = %v, want greeting", s.Phase)
	}
	if !s.Revealing || s.Revealed != "" {
		t.Errorf("revealing = %v revealed = %q, want in-flight empty reveal", s.Revealing, s.Revealed)
	}
	if !sameNodes(s.Options, h.script.Options) {
		t.Errorf("options during greeting = %d nodes, want root set", len(s.Options))
	}
	if s.Mood != MoodHappy {
		t.Errorf("mood = %q, want happy", s.Mood)
	}
	if s.Assistant != "Waleed" {
		t.Errorf("assistant = %q", s.Assistant)
	}

	s = h.revealChecked(t, h.script.Greeting)
	if s.Phase != PhaseAwaitingChoice {
		t.Errorf("phase = %v, want awaiting_choice", s.Phase)
	}
	if !sameNodes(s.Options, h.script.Options) {
		t.Error("greeting did not settle on the root set")
	}
	if h.clock.Pending() != 0 {
		t.Errorf("%d timers left after reveal", h.clock.Pending())
	}
}

func TestSelectNonLeafOffersChildren(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()
	h.finish(t)

	option := h.script.Options[1]
	h.presenter.Select(option)

	s := h.presenter.Snapshot()
	if len(s.Options) != 0 {
		t.Errorf("options visible during reply: %d", len(s.Options))
	}
	if s.Phase != PhaseReplying || !s.Revealing {
		t.Errorf("phase = %v revealing = %v, want replying", s.Phase, s.Revealing)
	}
	if s.Mood != MoodNeutral {
		t.Errorf("mood = %q, want neutral default", s.Mood)
	}

	s = h.revealChecked(t, option.Response)
	if !sameNodes(s.Options, option.Children) {
		t.Errorf("options = %d nodes, want the 2 children", len(s.Options))
	}
	if len(s.History) != 1 || s.History[0] != "You: Who created you?" {
		t.Errorf("history = %q", s.History)
	}
}

func TestSelectLeafReturnsToRootSet(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()
	h.finish(t)

	h.presenter.Select(h.script.Options[1])
	h.finish(t)

	leaf := h.script.Options[1].Children[1]
	h.presenter.Select(leaf)
	s := h.finish(t)

	if !sameNodes(s.Options, h.script.Options) {
		t.Errorf("options = %d nodes, want the 3 roots", len(s.Options))
	}
	if s.Mood != MoodConfused {
		t.Errorf("mood = %q, want confused", s.Mood)
	}
	want := []string{"You: Who created you?", "You: You're giving me HAL vibes..."}
	if len(s.History) != 2 || s.History[0] != want[0] || s.History[1] != want[1] {
		t.Errorf("history = %q, want %q", s.History, want)
	}
}

func TestEveryNodeSettlesOnChildrenOrRoot(t *testing.T) {
	script, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	script.Walk(func(path []int, target *Node) {
		h := newHarness(t)
		p := NewPresenter(StaticSource(script), WithClock(h.clock), WithTiming(Timing{RevealInterval: tick}))
		defer p.Close()
		h.presenter = p

		p.Start()
		h.finish(t)
		for _, idx := range path {
			p.SelectIndex(idx)
			h.finish(t)
		}

		s := p.Snapshot()
		if s.Revealed != target.Response {
			t.Errorf("path %v: revealed %q, want %q", path, s.Revealed, target.Response)
		}
		want := target.Children
		if target.IsLeaf() {
			want = script.Options
		}
		if !sameNodes(s.Options, want) {
			t.Errorf("path %v (%q): options = %v", path, target.Prompt, prompts(s.Options))
		}
		if len(s.History) != len(path) {
			t.Errorf("path %v: history length %d", path, len(s.History))
		}
	})
}

func TestSelectPreemptsRevealInFlight(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()
	for i := 0; i < 5; i++ {
		h.clock.Advance(tick)
	}
	if got := []rune(h.presenter.Snapshot().Revealed); len(got) != 5 {
		t.Fatalf("revealed %d runes, want 5", len(got))
	}

	// Root options are on offer during the greeting.
	joke := h.script.Options[2]
	h.presenter.Select(joke)
	if s := h.presenter.Snapshot(); s.Revealed != "" || !s.Revealing {
		t.Fatalf("after preempting select revealed = %q revealing = %v", s.Revealed, s.Revealing)
	}

	// Partway through the reply, pick an option the reply will offer.
	for i := 0; i < 3; i++ {
		h.clock.Advance(tick)
	}
	created := h.script.Options[1]
	h.presenter.Select(created)
	if s := h.presenter.Snapshot(); s.Revealed != "" {
		t.Fatalf("second preemption left %q", s.Revealed)
	}

	s := h.revealChecked(t, created.Response)
	if !sameNodes(s.Options, created.Children) {
		t.Error("preempting reply did not settle on its own children")
	}
	if h.clock.Pending() != 0 {
		t.Errorf("%d stale timers pending", h.clock.Pending())
	}
	if len(s.History) != 2 {
		t.Errorf("history = %q, want 2 entries", s.History)
	}
}

func TestSelectIgnoresOptionsNotOffered(t *testing.T) {
	h := newHarness(t)

	// Closed: nothing is offered.
	h.presenter.Select(h.script.Options[0])
	if s := h.presenter.Snapshot(); s.Phase != PhaseClosed || len(s.History) != 0 {
		t.Fatalf("select while closed changed state: %+v", s)
	}

	h.presenter.Start()
	h.finish(t)
	before := h.presenter.Snapshot()

	h.presenter.Select(nil)
	h.presenter.Select(h.script.Options[1].Children[0]) // not yet offered
	h.presenter.Select(&Node{Prompt: "foreign", Response: "x"})
	h.presenter.SelectIndex(7)
	h.presenter.SelectIndex(-1)

	after := h.presenter.Snapshot()
	if after.Version != before.Version {
		t.Errorf("version moved from %d to %d on ignored selects", before.Version, after.Version)
	}
	if len(after.History) != 0 {
		t.Errorf("history = %q", after.History)
	}
}

func TestHistoryGrowsByOnePerSelect(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()
	h.finish(t)

	for i := 1; i <= 4; i++ {
		h.presenter.SelectIndex(0)
		if got := len(h.presenter.Snapshot().History); got != i {
			t.Fatalf("after %d selects history has %d entries", i, got)
		}
		h.finish(t)
	}
}

func TestEndMidRevealHaltsAndTearsDown(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()
	h.finish(t)
	h.presenter.Select(h.script.Options[1])
	for i := 0; i < 4; i++ {
		h.clock.Advance(tick)
	}

	h.presenter.End()
	s := h.presenter.Snapshot()
	if s.Phase != PhaseClosed || s.Revealing {
		t.Fatalf("after End phase = %v revealing = %v", s.Phase, s.Revealing)
	}
	frozen := s.Revealed
	if len([]rune(frozen)) != 4 {
		t.Fatalf("revealed %q, want 4 runes", frozen)
	}

	h.clock.Advance(10 * tick) // still inside the teardown delay
	s = h.presenter.Snapshot()
	if s.Revealed != frozen {
		t.Errorf("emission continued after End: %q", s.Revealed)
	}
	if len(s.History) != 1 {
		t.Errorf("history cleared before teardown: %q", s.History)
	}

	h.clock.Advance(500 * time.Millisecond)
	s = h.presenter.Snapshot()
	if s.Revealed != "" || len(s.History) != 0 || len(s.Options) != 0 {
		t.Errorf("teardown left revealed=%q history=%q options=%d", s.Revealed, s.History, len(s.Options))
	}
	if h.clock.Pending() != 0 {
		t.Errorf("%d timers pending after teardown", h.clock.Pending())
	}

	// End on a closed conversation is a no-op.
	version := h.presenter.Snapshot().Version
	h.presenter.End()
	if h.presenter.Snapshot().Version != version {
		t.Error("End while closed changed state")
	}
}

func TestStartDuringTeardownStartsFresh(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()
	h.finish(t)
	h.presenter.SelectIndex(0)
	h.finish(t)
	firstID := h.presenter.ID()

	h.presenter.End()
	h.presenter.Start()

	s := h.presenter.Snapshot()
	if len(s.History) != 0 {
		t.Errorf("history carried into new conversation: %q", s.History)
	}
	if h.presenter.ID() == firstID {
		t.Error("new conversation reused the old id")
	}

	// The old teardown must not clear the new conversation.
	h.clock.Advance(time.Second)
	s = h.presenter.Snapshot()
	if len(s.Options) != 3 || s.Revealed != h.script.Greeting {
		t.Errorf("stale teardown fired: options=%d revealed=%q", len(s.Options), s.Revealed)
	}
}

func TestStartWhileOpenRestartsGreeting(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()
	h.finish(t)
	h.presenter.SelectIndex(2)
	h.clock.Advance(3 * tick)
	id := h.presenter.ID()

	h.presenter.Start()
	s := h.presenter.Snapshot()
	if s.Phase != PhaseGreeting || s.Revealed != "" {
		t.Errorf("phase = %v revealed = %q, want fresh greeting", s.Phase, s.Revealed)
	}
	if len(s.History) != 1 {
		t.Errorf("history = %q, want kept", s.History)
	}
	if h.presenter.ID() != id {
		t.Error("restart changed the conversation id")
	}
	h.revealChecked(t, h.script.Greeting)
}

func TestNarration(t *testing.T) {
	h := newHarness(t)
	h.presenter.Start()
	h.finish(t)
	if got := h.narrator.narrated(); len(got) != 1 || got[0] != h.script.Greeting {
		t.Fatalf("narrated = %q, want greeting", got)
	}

	option := h.script.Options[1]
	h.presenter.Select(option)
	for i := 0; i < 4; i++ {
		h.clock.Advance(tick)
	}
	if got := h.narrator.narrated(); len(got) != 1 {
		t.Fatalf("narrated before the narration delay: %q", got)
	}
	h.clock.Advance(tick)
	got := h.narrator.narrated()
	if len(got) != 2 || got[1] != "A team of brilliant engineers." {
		t.Fatalf("narrated = %q, want emphasis stripped", got)
	}

	speak := h.narrator.status(1)
	speak(true)
	if !h.presenter.Snapshot().Speaking {
		t.Error("speaking indicator not set")
	}
	speak(false)
	if h.presenter.Snapshot().Speaking {
		t.Error("speaking indicator not cleared")
	}

	// A stale utterance cannot flip the indicator once superseded.
	speak(true)
	h.finish(t)
	h.presenter.SelectIndex(0)
	h.narrator.status(1)(true)
	if h.presenter.Snapshot().Speaking {
		t.Error("stale status callback set speaking")
	}

	cancels := h.narrator.cancelCount()
	h.presenter.End()
	if h.narrator.cancelCount() <= cancels {
		t.Error("End did not cancel narration")
	}
}

func TestNarrationOfShortLineAtCompletion(t *testing.T) {
	h := newHarness(t, WithTiming(Timing{RevealInterval: tick, NarrationDelay: 500 * time.Millisecond}))
	h.presenter.Start()
	h.finish(t)
	h.presenter.Select(h.script.Options[1])
	h.finish(t)
	before := len(h.narrator.narrated())

	leaf := h.script.Options[1].Children[0] // 11 runes, shorter than the narration delay
	h.presenter.Select(leaf)
	for i := 0; i < 10; i++ {
		h.clock.Advance(tick)
	}
	if got := h.narrator.narrated(); len(got) != before {
		t.Fatalf("short line narrated before completion: %q", got[before:])
	}
	h.clock.Advance(tick)
	got := h.narrator.narrated()
	if len(got) != before+1 || got[before] != "Aww shucks!" {
		t.Errorf("narrated = %q, want the short line at completion", got[before:])
	}
}

func TestVoiceToggle(t *testing.T) {
	h := newHarness(t, WithVoice(false))
	h.presenter.Start()
	h.finish(t)
	if got := h.narrator.narrated(); len(got) != 0 {
		t.Fatalf("narrated with voice disabled: %q", got)
	}

	h.presenter.SetVoiceEnabled(true)
	h.presenter.SelectIndex(0)
	h.finish(t)
	if got := h.narrator.narrated(); len(got) != 1 {
		t.Fatalf("narrated = %q, want one line", got)
	}
	h.narrator.status(0)(true)

	cancels := h.narrator.cancelCount()
	h.presenter.SetVoiceEnabled(false)
	s := h.presenter.Snapshot()
	if s.Speaking || s.VoiceEnabled {
		t.Errorf("speaking = %v voice = %v after disabling", s.Speaking, s.VoiceEnabled)
	}
	if h.narrator.cancelCount() != cancels+1 {
		t.Error("disabling voice did not cancel the utterance")
	}
}

func TestThinkingDelayPrecedesReply(t *testing.T) {
	h := newHarness(t, WithTiming(Timing{RevealInterval: tick, ThinkingDelay: 800 * time.Millisecond}))
	h.presenter.Start()
	h.finish(t)

	h.presenter.SelectIndex(2)
	h.clock.Advance(800 * time.Millisecond)
	if s := h.presenter.Snapshot(); s.Revealed != "" || !s.Revealing {
		t.Fatalf("revealed %q during thinking delay", s.Revealed)
	}
	h.clock.Advance(tick)
	if got := h.presenter.Snapshot().Revealed; got != "A" {
		t.Errorf("first rune = %q, want A", got)
	}
}

func TestRevealIsRuneWise(t *testing.T) {
	h := newHarness(t)
	h.script.Greeting = "Héllo 👋"
	h.presenter.Start()
	h.revealChecked(t, "Héllo 👋")
}

func TestObserverReceivesIncreasingVersions(t *testing.T) {
	var mu sync.Mutex
	var versions []uint64
	var h *harness
	h = newHarness(t, WithObserver(func(s State) {
		// Calling back into the presenter must not deadlock.
		_ = h.presenter.Snapshot()
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	}))

	h.presenter.Start()
	h.finish(t)
	h.presenter.SelectIndex(1)
	h.finish(t)

	mu.Lock()
	defer mu.Unlock()
	if len(versions) < 10 {
		t.Fatalf("observer saw %d states", len(versions))
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("versions not increasing at %d: %v", i, versions[i-1:i+1])
		}
	}
}

func TestPresenterEmitsEvents(t *testing.T) {
	pub := events.NewPublisher(nil, "presenter")
	ch := pub.Subscribe("test", 256)
	defer pub.Unsubscribe("test")

	h := newHarness(t, WithPublisher(pub))
	h.presenter.Start()
	h.finish(t)
	h.presenter.SelectIndex(2)
	h.finish(t)
	h.presenter.End()

	var got []events.EventType
	for len(ch) > 0 {
		env := <-ch
		if env.ConversationID != h.presenter.ID() {
			t.Errorf("event %s has conversation %q", env.Type, env.ConversationID)
		}
		got = append(got, env.Type)
	}
	want := []events.EventType{
		events.ConversationStarted, events.RevealCompleted,
		events.OptionSelected, events.RevealCompleted,
		events.ConversationEnded,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPresenterWithRealClock(t *testing.T) {
	done := make(chan struct{})
	var once sync.Once
	p := NewPresenter(StaticSource(sampleScript()),
		WithTiming(Timing{RevealInterval: time.Millisecond, TeardownDelay: time.Millisecond}),
		WithObserver(func(s State) {
			if s.Phase == PhaseAwaitingChoice {
				once.Do(func() { close(done) })
			}
		}))
	defer p.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	p.Start()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("greeting did not complete")
	}
	if s := p.Snapshot(); s.Revealed != sampleScript().Greeting {
		t.Errorf("revealed = %q", s.Revealed)
	}
}
