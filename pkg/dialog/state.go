package dialog

// Phase is the presenter's position in the conversation:
// Closed → Greeting → AwaitingChoice → Replying → AwaitingChoice → … → Closed.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseGreeting
	PhaseAwaitingChoice
	PhaseReplying
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseGreeting:
		return "greeting"
	case PhaseAwaitingChoice:
		return "awaiting_choice"
	case PhaseReplying:
		return "replying"
	default:
		return "unknown"
	}
}

// State is a copy of the conversation handed to observers. Version
// increases with every change, so a consumer receiving snapshots out of
// order can drop stale ones.
type State struct {
	Version      uint64
	Phase        Phase
	Assistant    string
	Options      []*Node
	Revealed     string
	Revealing    bool
	History      []string
	Mood         Mood
	Speaking     bool
	VoiceEnabled bool
}

// Open reports whether the conversation is showing.
func (s State) Open() bool {
	return s.Phase != PhaseClosed
}
