package dialog

// Narrator reads revealed lines aloud.
//
// Narrate must return promptly: it starts the utterance and reports
// progress through status, possibly from another goroutine. Starting
// an utterance cancels any utterance in progress. Failures are reported
// as status(false) and never surface to the presenter.
type Narrator interface {
	Narrate(text string, status func(speaking bool))
	Cancel()
}

// NopNarrator is used when no speech capability is available.
type NopNarrator struct{}

func (NopNarrator) Narrate(string, func(bool)) {}

func (NopNarrator) Cancel() {}
