package dialog

import "fmt"

// MaxDepth bounds how deeply options may nest.
const MaxDepth = 16

// Validate checks the script for consistency.
func (s *Script) Validate() error {
	if s.Greeting == "" {
		return fmt.Errorf("dialog %q: greeting is required", s.Name)
	}
	if !s.GreetingMood.Valid() {
		return fmt.Errorf("dialog %q: unknown greeting_mood %q", s.Name, s.GreetingMood)
	}
	if len(s.Options) == 0 {
		return fmt.Errorf("dialog %q: at least one option is required", s.Name)
	}
	return validateNodes(s.Name, "options", s.Options, 1)
}

func validateNodes(dialog, where string, nodes []*Node, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("dialog %q %s: nesting exceeds %d levels", dialog, where, MaxDepth)
	}
	for i, n := range nodes {
		at := fmt.Sprintf("%s[%d]", where, i)
		if n == nil {
			return fmt.Errorf("dialog %q %s: empty option", dialog, at)
		}
		if n.Prompt == "" {
			return fmt.Errorf("dialog %q %s: prompt is required", dialog, at)
		}
		if n.Response == "" {
			return fmt.Errorf("dialog %q %s (%q): response is required", dialog, at, n.Prompt)
		}
		if !n.Mood.Valid() {
			return fmt.Errorf("dialog %q %s (%q): unknown mood %q", dialog, at, n.Prompt, n.Mood)
		}
		if err := validateNodes(dialog, at+".children", n.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}
