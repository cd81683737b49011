package dialog

import (
	_ "embed"
	"fmt"
	"sync"
)

//go:embed scripts/waleed.yaml
var defaultScriptYAML []byte

var defaultScript = sync.OnceValues(func() (*Script, error) {
	s, err := Parse(defaultScriptYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("embedded script: %w", err)
	}
	return s, nil
})

// Default returns the built-in Waleed script. The same instance is
// returned on every call.
func Default() (*Script, error) {
	return defaultScript()
}
