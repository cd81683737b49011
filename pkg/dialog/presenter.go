package dialog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/equinology/waleed/internal/clock"
	"github.com/equinology/waleed/pkg/events"
)

// Timing holds the presenter's delays.
type Timing struct {
	RevealInterval time.Duration // between revealed runes
	ThinkingDelay  time.Duration // before a reply starts revealing
	NarrationDelay time.Duration // from the start of a reveal to narration
	TeardownDelay  time.Duration // from End to clearing the conversation
}

// DefaultTiming returns the delays used on the site.
func DefaultTiming() Timing {
	return Timing{
		RevealInterval: 20 * time.Millisecond,
		ThinkingDelay:  800 * time.Millisecond,
		NarrationDelay: 500 * time.Millisecond,
		TeardownDelay:  500 * time.Millisecond,
	}
}

func (t Timing) normalized() Timing {
	if t.RevealInterval <= 0 {
		t.RevealInterval = DefaultTiming().RevealInterval
	}
	t.ThinkingDelay = max(t.ThinkingDelay, 0)
	t.NarrationDelay = max(t.NarrationDelay, 0)
	t.TeardownDelay = max(t.TeardownDelay, 0)
	return t
}

// ScriptSource returns the script a new conversation should use.
type ScriptSource func() *Script

// StaticSource always returns s.
func StaticSource(s *Script) ScriptSource {
	return func() *Script { return s }
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithClock sets the clock driving reveal and teardown timers.
func WithClock(c clock.Clock) Option {
	return func(p *Presenter) { p.clock = c }
}

// WithNarrator sets the speech capability. The default is NopNarrator.
func WithNarrator(n Narrator) Option {
	return func(p *Presenter) { p.narrator = n }
}

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(p *Presenter) { p.timing = t }
}

// WithPublisher emits conversation events to pub.
func WithPublisher(pub *events.Publisher) Option {
	return func(p *Presenter) { p.pub = pub }
}

// WithObserver registers fn to receive a State after every change. fn
// is called without the presenter's lock held and may call back into
// the presenter.
func WithObserver(fn func(State)) Option {
	return func(p *Presenter) { p.observer = fn }
}

// WithVoice sets whether narration starts enabled. The default is true.
func WithVoice(enabled bool) Option {
	return func(p *Presenter) { p.voice = enabled }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) { p.logger = l }
}

// Presenter drives the assistant's scripted turn-taking: it reveals
// lines one rune per tick, swaps in follow-up options when a reveal
// completes, and hands each line to a Narrator.
//
// All methods are safe for concurrent use. Exactly one reveal is in
// flight at a time; every Start, Select and End invalidates the
// previous one.
type Presenter struct {
	source   ScriptSource
	clock    clock.Clock
	narrator Narrator
	timing   Timing
	pub      *events.Publisher
	observer func(State)
	logger   *slog.Logger

	mu        sync.Mutex
	id        string
	script    *Script
	version   uint64
	phase     Phase
	options   []*Node
	revealed  string
	revealing bool
	history   []string
	mood      Mood
	speaking  bool
	voice     bool
	reveal    *revealTask
	teardown  *teardownTask
	narration uint64 // token of the utterance allowed to toggle speaking
}

// revealTask is one reveal sequence. The presenter's reveal field
// doubles as its cancellation token: a tick for any other task is
// ignored.
type revealTask struct {
	text     []rune
	shown    int
	next     []*Node
	narrated bool
	timer    *clock.Timer
}

type teardownTask struct {
	timer *clock.Timer
}

// NewPresenter creates a closed presenter reading scripts from source.
func NewPresenter(source ScriptSource, opts ...Option) *Presenter {
	p := &Presenter{
		source:   source,
		clock:    clock.Real(),
		narrator: NopNarrator{},
		timing:   DefaultTiming(),
		voice:    true,
		mood:     MoodNeutral,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.narrator == nil {
		p.narrator = NopNarrator{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.timing = p.timing.normalized()
	return p
}

// ID returns the current conversation id, empty before the first Start.
func (p *Presenter) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Snapshot returns a copy of the current state.
func (p *Presenter) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Start opens the conversation: the root options are offered and the
// greeting starts revealing. Calling Start while open restarts the
// greeting and keeps the history.
func (p *Presenter) Start() {
	script := p.source()
	if script == nil {
		p.logger.Warn("dialog start ignored: no script available")
		return
	}

	var fx effects
	p.mu.Lock()
	restart := p.phase != PhaseClosed
	p.stopLocked(&fx)
	if !restart {
		p.id = xid.New().String()
		p.script = script
		p.history = nil
	}
	p.phase = PhaseGreeting
	p.options = p.script.Options
	p.mood = p.script.GreetingMood
	if p.mood == "" {
		p.mood = MoodHappy
	}
	p.beginRevealLocked(p.script.Greeting, nil, 0)
	fx.emit(p.id, events.ConversationStarted, &events.ConversationStartedData{
		Script:   p.script.Name,
		Greeting: p.script.Greeting,
		Options:  prompts(p.script.Options),
		Restart:  restart,
	})
	p.changedLocked(&fx)
	p.mu.Unlock()

	p.flush(fx)
}

// Select answers the user's choice of n. n must be offered: one of the
// current options, or one of the options the reveal in flight will
// offer when it completes. Anything else is ignored.
func (p *Presenter) Select(n *Node) {
	if n == nil {
		return
	}

	var fx effects
	p.mu.Lock()
	if p.phase == PhaseClosed || !p.offeredLocked(n) {
		p.mu.Unlock()
		return
	}
	p.stopLocked(&fx)
	p.history = append(p.history, "You: "+n.Prompt)
	p.options = nil
	p.mood = n.Mood.OrNeutral()
	p.phase = PhaseReplying
	p.beginRevealLocked(n.Response, n.Children, p.timing.ThinkingDelay)
	fx.emit(p.id, events.OptionSelected, &events.OptionSelectedData{
		Prompt: n.Prompt,
		Mood:   string(p.mood),
		Turn:   len(p.history),
	})
	p.changedLocked(&fx)
	p.mu.Unlock()

	p.flush(fx)
}

// SelectIndex selects the i-th currently offered option. Out of range
// indexes are ignored.
func (p *Presenter) SelectIndex(i int) {
	p.mu.Lock()
	if i < 0 || i >= len(p.options) {
		p.mu.Unlock()
		return
	}
	n := p.options[i]
	p.mu.Unlock()

	p.Select(n)
}

// End closes the conversation. Reveal and narration stop at once;
// history, revealed text and options are cleared after TeardownDelay.
func (p *Presenter) End() {
	var fx effects
	p.mu.Lock()
	if p.phase == PhaseClosed {
		p.mu.Unlock()
		return
	}
	p.stopLocked(&fx)
	p.phase = PhaseClosed
	fx.emit(p.id, events.ConversationEnded, &events.ConversationEndedData{Turns: len(p.history)})
	if p.timing.TeardownDelay == 0 {
		p.clearLocked()
	} else {
		task := &teardownTask{}
		p.teardown = task
		task.timer = p.clock.AfterFunc(p.timing.TeardownDelay, func() { p.finishTeardown(task) })
	}
	p.changedLocked(&fx)
	p.mu.Unlock()

	p.flush(fx)
}

// SetVoiceEnabled toggles narration. Disabling it cancels the utterance
// in progress.
func (p *Presenter) SetVoiceEnabled(enabled bool) {
	var fx effects
	p.mu.Lock()
	if p.voice == enabled {
		p.mu.Unlock()
		return
	}
	p.voice = enabled
	if !enabled {
		p.cancelNarrationLocked(&fx)
	}
	p.changedLocked(&fx)
	p.mu.Unlock()

	p.flush(fx)
}

// Close stops all timers and narration and clears the conversation
// without waiting for the teardown delay.
func (p *Presenter) Close() {
	var fx effects
	p.mu.Lock()
	if p.phase != PhaseClosed {
		fx.emit(p.id, events.ConversationEnded, &events.ConversationEndedData{Turns: len(p.history)})
	}
	p.stopLocked(&fx)
	p.phase = PhaseClosed
	p.clearLocked()
	p.changedLocked(&fx)
	p.mu.Unlock()

	p.flush(fx)
}

func (p *Presenter) tick(task *revealTask) {
	var fx effects
	p.mu.Lock()
	if p.reveal != task {
		p.mu.Unlock()
		return
	}

	if task.shown < len(task.text) {
		task.shown++
		p.revealed = string(task.text[:task.shown])
	}
	done := task.shown >= len(task.text)

	elapsed := time.Duration(task.shown) * p.timing.RevealInterval
	if !task.narrated && (done || elapsed >= p.timing.NarrationDelay) {
		task.narrated = true
		p.narrateLocked(&fx, string(task.text))
	}

	if done {
		p.reveal = nil
		p.revealing = false
		p.phase = PhaseAwaitingChoice
		p.options = task.next
		if len(p.options) == 0 {
			p.options = p.script.Options
		}
		fx.emit(p.id, events.RevealCompleted, &events.RevealCompletedData{
			Text:    p.revealed,
			Runes:   task.shown,
			Options: prompts(p.options),
		})
	} else {
		task.timer = p.clock.AfterFunc(p.timing.RevealInterval, func() { p.tick(task) })
	}
	p.changedLocked(&fx)
	p.mu.Unlock()

	p.flush(fx)
}

func (p *Presenter) finishTeardown(task *teardownTask) {
	var fx effects
	p.mu.Lock()
	if p.teardown != task {
		p.mu.Unlock()
		return
	}
	p.teardown = nil
	p.clearLocked()
	p.changedLocked(&fx)
	p.mu.Unlock()

	p.flush(fx)
}

// speakingFunc returns the status callback for utterance token.
func (p *Presenter) speakingFunc(token uint64) func(bool) {
	return func(speaking bool) {
		var fx effects
		p.mu.Lock()
		if p.narration != token || p.phase == PhaseClosed || p.speaking == speaking {
			p.mu.Unlock()
			return
		}
		p.speaking = speaking
		p.emitSpeakingLocked(&fx)
		p.changedLocked(&fx)
		p.mu.Unlock()

		p.flush(fx)
	}
}

func (p *Presenter) beginRevealLocked(text string, next []*Node, delay time.Duration) {
	task := &revealTask{text: []rune(text), next: next}
	p.reveal = task
	p.revealed = ""
	p.revealing = true
	task.timer = p.clock.AfterFunc(delay+p.timing.RevealInterval, func() { p.tick(task) })
}

// stopLocked cancels the reveal in flight, any pending teardown and
// the current utterance. A pending teardown is applied immediately.
func (p *Presenter) stopLocked(fx *effects) {
	if p.reveal != nil {
		p.reveal.timer.Stop()
		p.reveal = nil
	}
	p.revealing = false
	if p.teardown != nil {
		p.teardown.timer.Stop()
		p.teardown = nil
		p.clearLocked()
	}
	p.cancelNarrationLocked(fx)
}

func (p *Presenter) cancelNarrationLocked(fx *effects) {
	p.narration++
	if p.speaking {
		p.speaking = false
		p.emitSpeakingLocked(fx)
	}
	fx.do(p.narrator.Cancel)
}

func (p *Presenter) narrateLocked(fx *effects, text string) {
	if !p.voice {
		return
	}
	p.narration++
	status := p.speakingFunc(p.narration)
	clean := StripEmphasis(text)
	fx.do(func() { p.narrator.Narrate(clean, status) })
}

func (p *Presenter) emitSpeakingLocked(fx *effects) {
	eventType := events.NarrationFinished
	if p.speaking {
		eventType = events.NarrationStarted
	}
	fx.emit(p.id, eventType, &events.NarrationData{Speaking: p.speaking})
}

func (p *Presenter) clearLocked() {
	p.history = nil
	p.revealed = ""
	p.options = nil
}

// offeredLocked reports whether n is a current option or will be one
// once the reveal in flight completes.
func (p *Presenter) offeredLocked(n *Node) bool {
	if containsNode(p.options, n) {
		return true
	}
	if p.reveal == nil {
		return false
	}
	if len(p.reveal.next) > 0 {
		return containsNode(p.reveal.next, n)
	}
	return containsNode(p.script.Options, n)
}

func (p *Presenter) changedLocked(fx *effects) {
	p.version++
	fx.notify = true
	fx.state = p.snapshotLocked()
}

func (p *Presenter) snapshotLocked() State {
	s := State{
		Version:      p.version,
		Phase:        p.phase,
		Revealed:     p.revealed,
		Revealing:    p.revealing,
		Mood:         p.mood,
		Speaking:     p.speaking,
		VoiceEnabled: p.voice,
	}
	if p.script != nil {
		s.Assistant = p.script.AssistantName()
	}
	if len(p.options) > 0 {
		s.Options = append([]*Node(nil), p.options...)
	}
	if len(p.history) > 0 {
		s.History = append([]string(nil), p.history...)
	}
	return s
}

// flush delivers the side effects collected under the lock.
// The observer sees the new state before any narrator call made on its
// behalf can report back.
func (p *Presenter) flush(fx effects) {
	if fx.notify && p.observer != nil {
		p.observer(fx.state)
	}
	if p.pub != nil {
		for _, e := range fx.events {
			if err := p.pub.Emit(context.Background(), e.eventType, e.conversationID, e.data); err != nil {
				p.logger.Warn("conversation event not published",
					slog.String("event_type", string(e.eventType)),
					slog.String("error", err.Error()))
			}
		}
	}
	for _, fn := range fx.calls {
		fn()
	}
}

// effects are collected while the presenter's lock is held and run
// after it is released.
type effects struct {
	calls  []func()
	events []pendingEvent
	notify bool
	state  State
}

type pendingEvent struct {
	conversationID string
	eventType      events.EventType
	data           any
}

func (fx *effects) do(fn func()) {
	fx.calls = append(fx.calls, fn)
}

func (fx *effects) emit(conversationID string, eventType events.EventType, data any) {
	fx.events = append(fx.events, pendingEvent{conversationID: conversationID, eventType: eventType, data: data})
}

func containsNode(nodes []*Node, n *Node) bool {
	for _, candidate := range nodes {
		if candidate == n {
			return true
		}
	}
	return false
}
