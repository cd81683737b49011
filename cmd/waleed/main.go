// waleed is a terminal chat with Waleed, a scripted assistant. It walks a
// dialog tree, reveals each line a character at a time and can read the
// lines aloud through a text-to-speech backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"
	"github.com/pitabwire/util"
	"github.com/spf13/pflag"

	"github.com/equinology/waleed/config"
	"github.com/equinology/waleed/internal/narration"
	"github.com/equinology/waleed/internal/speech/registry"
	"github.com/equinology/waleed/internal/tui"
	"github.com/equinology/waleed/pkg/dialog"
	"github.com/equinology/waleed/pkg/events"

	// Register speech backends via init().
	_ "github.com/equinology/waleed/internal/speech/backends/elevenlabs"
	_ "github.com/equinology/waleed/internal/speech/backends/google"
	_ "github.com/equinology/waleed/internal/speech/backends/openai"
	_ "github.com/equinology/waleed/internal/speech/backends/piper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var noVoice, validate, showVersion bool
	flagSet := pflag.NewFlagSet("waleed", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.DialogDir, "dialog-dir", cfg.DialogDir, "directory of dialog scripts (default: built-in script)")
	flagSet.StringVar(&cfg.DefaultDialog, "dialog", cfg.DefaultDialog, "name of the dialog script to run")
	flagSet.BoolVar(&noVoice, "no-voice", false, "start with narration muted")
	flagSet.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file")
	flagSet.StringVar(&cfg.EventsLog, "events-log", cfg.EventsLog, "append conversation events to this JSONL file")
	flagSet.BoolVar(&validate, "validate", false, "check the dialog scripts, print their trees and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print the version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Println("waleed", version)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if noVoice {
		cfg.VoiceEnabled = false
	}

	if validate {
		scripts, err := loadScripts(cfg)
		if err != nil {
			return err
		}
		return printTrees(os.Stdout, scripts)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return chat(withLogger(ctx, logger), cfg, logger)
}

// withLogger makes util.Log(ctx) write through logger only. util otherwise
// builds its own handler on stdout, which the TUI owns.
func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return util.ContextWithLogger(ctx, util.NewLogger(ctx,
		util.WithLogHandler(logger.Handler()),
		util.WithLogHandlerExclusive(),
	))
}

func chat(ctx context.Context, cfg config.WaleedConfig, logger *slog.Logger) error {
	source, loader, err := scriptSource(cfg)
	if err != nil {
		return err
	}
	if loader != nil && cfg.WatchDialogs {
		go func() {
			if err := loader.WatchAndReload(ctx); err != nil {
				util.Log(ctx).WithError(err).Error("dialog watcher stopped")
			}
		}()
	}

	narrator, err := newNarrator(cfg, logger)
	if err != nil {
		return err
	}
	defer narrator.Close()

	sink, closeSink, err := newSink(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	publisher := events.NewPublisher(sink, "waleed")
	activity := publisher.Subscribe("tui", 64)
	defer publisher.Unsubscribe("tui")

	bridge := tui.NewBridge()
	presenter := dialog.NewPresenter(source,
		dialog.WithTiming(cfg.Timing()),
		dialog.WithNarrator(narrator),
		dialog.WithPublisher(publisher),
		dialog.WithObserver(bridge.Observe),
		dialog.WithVoice(cfg.VoiceEnabled),
		dialog.WithLogger(logger),
	)
	defer presenter.Close()

	program := tea.NewProgram(tui.NewModel(presenter, cfg.DefaultDialog),
		tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.SetProgram(program)
	defer bridge.SetProgram(nil)

	bridgeCtx, stopBridge := context.WithCancel(ctx)
	defer stopBridge()
	go bridge.Run(bridgeCtx, activity)

	logger.Info("waleed started",
		slog.String("dialog", cfg.DefaultDialog),
		slog.String("tts_backend", cfg.TTSBackend),
		slog.Bool("voice", cfg.VoiceEnabled))

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// newLogger writes tinted logs to the log file. Without one, logs are
// discarded: the terminal belongs to the TUI.
func newLogger(cfg config.WaleedConfig) (*slog.Logger, func(), error) {
	var w io.Writer = io.Discard
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      cfg.Level(),
		TimeFormat: "15:04:05.000",
		NoColor:    true,
	})
	return slog.New(handler), closeFn, nil
}

// newNarrator opens the configured TTS backend. Without one, lines are
// only shown.
func newNarrator(cfg config.WaleedConfig, logger *slog.Logger) (interface {
	dialog.Narrator
	Close() error
}, error) {
	if cfg.TTSBackend == "" {
		return nopCloser{}, nil
	}

	engine, err := narration.OpenEngine(cfg.TTSBackend, cfg.TTSConfig(), nil)
	if err != nil {
		return nil, err
	}

	var player narration.Player
	switch cfg.AudioPlayer {
	case "wav":
		player = &narration.WAVFilePlayer{Dir: cfg.AudioOutDir}
	case "discard":
		player = narration.DiscardPlayer{}
	default:
		player = narration.NewAplayPlayer()
	}
	return narration.New(engine, player, cfg.Narration(), logger), nil
}

type nopCloser struct {
	dialog.NopNarrator
}

func (nopCloser) Close() error { return nil }

// newSink logs every event and, with --events-log, appends it to a
// transcript file.
func newSink(cfg config.WaleedConfig, logger *slog.Logger) (events.Sink, func(), error) {
	sinks := events.MultiSink{events.LogSink{Logger: logger}}
	if cfg.EventsLog == "" {
		return sinks, func() {}, nil
	}

	f, err := os.OpenFile(cfg.EventsLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open events log: %w", err)
	}
	sinks = append(sinks, events.NewJSONLSink(f))
	return sinks, func() { f.Close() }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `waleed: chat with a scripted assistant in the terminal.

Usage:
  waleed [flags]

Every flag has a WALEED_ environment variable counterpart, e.g.
WALEED_DIALOG_DIR. Narration is off unless WALEED_TTS_BACKEND names one
of: %s.

Flags:
`, strings.Join(registry.TTS.Names(), ", "))
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
