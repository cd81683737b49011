package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/equinology/waleed/config"
	"github.com/equinology/waleed/pkg/dialog"
)

// scriptSource resolves the dialog to run. Without a dialog directory
// the built-in script is used. With one, the named script is looked up
// on every Start so edits apply to the next conversation.
func scriptSource(cfg config.WaleedConfig) (dialog.ScriptSource, *dialog.Loader, error) {
	builtin, err := dialog.Default()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DialogDir == "" {
		if cfg.DefaultDialog != builtin.Name {
			return nil, nil, fmt.Errorf("dialog %q not found: no dialog directory configured", cfg.DefaultDialog)
		}
		return dialog.StaticSource(builtin), nil, nil
	}

	loader := dialog.NewLoader(cfg.DialogDir)
	if _, err := loader.LoadAll(); err != nil {
		return nil, nil, fmt.Errorf("loading dialogs: %w", err)
	}

	var fallback *dialog.Script
	if _, ok := loader.Get(cfg.DefaultDialog); !ok {
		if cfg.DefaultDialog != builtin.Name {
			return nil, nil, fmt.Errorf("dialog %q not found in %s (available: %s)",
				cfg.DefaultDialog, cfg.DialogDir, strings.Join(loader.Names(), ", "))
		}
		fallback = builtin
	}
	return loader.Source(cfg.DefaultDialog, fallback), loader, nil
}

// loadScripts returns every script --validate should check.
func loadScripts(cfg config.WaleedConfig) ([]*dialog.Script, error) {
	if cfg.DialogDir == "" {
		builtin, err := dialog.Default()
		if err != nil {
			return nil, err
		}
		return []*dialog.Script{builtin}, nil
	}

	loader := dialog.NewLoader(cfg.DialogDir)
	if _, err := loader.LoadAll(); err != nil {
		return nil, err
	}
	names := loader.Names()
	scripts := make([]*dialog.Script, 0, len(names))
	for _, name := range names {
		s, _ := loader.Get(name)
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// printTrees writes an indented outline of each script.
func printTrees(w io.Writer, scripts []*dialog.Script) error {
	var b strings.Builder
	for i, s := range scripts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s", s.Name)
		if s.Version != "" {
			fmt.Fprintf(&b, " (v%s)", s.Version)
		}
		fmt.Fprintf(&b, ": %s says %q\n", s.AssistantName(), s.Greeting)

		nodes, leaves := 0, 0
		s.Walk(func(path []int, n *dialog.Node) {
			nodes++
			mood := ""
			if n.IsLeaf() {
				leaves++
			}
			if n.Mood != "" {
				mood = " [" + string(n.Mood) + "]"
			}
			fmt.Fprintf(&b, "%s- %s%s\n", strings.Repeat("  ", len(path)), n.Prompt, mood)
		})
		fmt.Fprintf(&b, "%d options, %d leaves\n", nodes, leaves)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
