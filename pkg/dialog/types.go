package dialog

// Mood is the assistant's expression while delivering a line.
type Mood string

const (
	MoodNeutral  Mood = "neutral"
	MoodHappy    Mood = "happy"
	MoodConfused Mood = "confused"
)

// Valid reports whether m is a known mood. The empty mood is valid and
// means neutral.
func (m Mood) Valid() bool {
	switch m {
	case "", MoodNeutral, MoodHappy, MoodConfused:
		return true
	}
	return false
}

// OrNeutral returns m, or MoodNeutral when m is unset.
func (m Mood) OrNeutral() Mood {
	if m == "" {
		return MoodNeutral
	}
	return m
}

// Node is one scripted turn: the option label the user picks, the
// assistant's canned response, and the follow-up options offered once
// the response is revealed. A node without children is a leaf.
//
// Nodes are loaded once and never modified; the presenter compares
// them by pointer.
type Node struct {
	Prompt   string  `yaml:"prompt"   json:"prompt"`
	Response string  `yaml:"response" json:"response"`
	Mood     Mood    `yaml:"mood"     json:"mood,omitempty"`
	Children []*Node `yaml:"children" json:"children,omitempty"`
}

// IsLeaf reports whether n offers no follow-up options.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Script is a YAML-mappable dialog definition.
type Script struct {
	Name         string  `yaml:"name"          json:"name"`
	Version      string  `yaml:"version"       json:"version"`
	Description  string  `yaml:"description"   json:"description"`
	Assistant    string  `yaml:"assistant"     json:"assistant"`
	Greeting     string  `yaml:"greeting"      json:"greeting"`
	GreetingMood Mood    `yaml:"greeting_mood" json:"greeting_mood,omitempty"`
	Options      []*Node `yaml:"options"       json:"options"`
}

// AssistantName returns the display name, defaulting to "Waleed".
func (s *Script) AssistantName() string {
	if s.Assistant == "" {
		return "Waleed"
	}
	return s.Assistant
}

// Walk calls fn for every node in depth-first order. path holds the
// zero-based index of each node on the way down from the root set.
func (s *Script) Walk(fn func(path []int, n *Node)) {
	var walk func(path []int, nodes []*Node)
	walk = func(path []int, nodes []*Node) {
		for i, n := range nodes {
			p := append(path[:len(path):len(path)], i)
			fn(p, n)
			walk(p, n.Children)
		}
	}
	walk(nil, s.Options)
}

// prompts returns the option labels of nodes.
func prompts(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Prompt
	}
	return out
}
