package dialog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pitabwire/util"
	"gopkg.in/yaml.v3"
)

// Loader loads and optionally hot-reloads dialog scripts from YAML files.
type Loader struct {
	dir string

	mu      sync.RWMutex
	scripts map[string]*Script
}

// NewLoader creates a new script loader for the given directory.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:     dir,
		scripts: make(map[string]*Script),
	}
}

// LoadAll loads all .yaml and .yml files from the configured directory.
// On error the previously loaded scripts are kept.
func (l *Loader) LoadAll() (map[string]*Script, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read dialog dir %q: %w", l.dir, err)
	}

	result := make(map[string]*Script)
	for _, entry := range entries {
		if entry.IsDir() || !isScriptFile(entry.Name()) {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		s, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", path, err)
		}
		if _, dup := result[s.Name]; dup {
			return nil, fmt.Errorf("load %q: duplicate dialog name %q", path, s.Name)
		}
		result[s.Name] = s
	}

	l.mu.Lock()
	l.scripts = result
	l.mu.Unlock()

	return result, nil
}

// Get returns a loaded script by name.
func (l *Loader) Get(name string) (*Script, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.scripts[name]
	return s, ok
}

// Names returns the names of all loaded scripts, sorted.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.scripts))
	for name := range l.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source returns a ScriptSource that resolves name on every call, so a
// presenter picks up reloaded content on its next Start. If name is not
// loaded, fallback is returned.
func (l *Loader) Source(name string, fallback *Script) ScriptSource {
	return func() *Script {
		if s, ok := l.Get(name); ok {
			return s
		}
		return fallback
	}
}

// LoadFile parses and validates a single script file. A script without
// a name is named after its file.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		base := filepath.Base(path)
		s.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse decodes a YAML script without validating it.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &s, nil
}

// WatchAndReload watches the script directory and reloads on change.
// A failed reload is logged and the previous scripts stay in place.
// It blocks until ctx is done.
func (l *Loader) WatchAndReload(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", l.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isScriptFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if _, err := l.LoadAll(); err != nil {
					util.Log(ctx).WithError(err).Error("dialog reload failed, keeping previous scripts")
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func isScriptFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
