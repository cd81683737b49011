package tui

import (
	"context"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/equinology/waleed/pkg/dialog"
	"github.com/equinology/waleed/pkg/events"
)

// stateMsg carries a presenter snapshot into the program.
type stateMsg dialog.State

// activityMsg carries a published conversation event into the program.
type activityMsg events.Envelope

// Bridge forwards presenter snapshots and published events to a bubbletea
// program.
//
// The presenter calls Observe from inside Model.Update when a key drives
// it, and tea.Program.Send blocks until the event loop reads the message.
// Observe therefore only records the snapshot; Run delivers it from its
// own goroutine. Intermediate snapshots are coalesced, the newest one
// always arrives.
type Bridge struct {
	program atomic.Pointer[tea.Program]

	mu     sync.Mutex
	latest *dialog.State
	wake   chan struct{}
}

// NewBridge creates a Bridge. Observe it with dialog.WithObserver, then
// call SetProgram and Run once the program exists.
func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1)}
}

// SetProgram sets the program that receives messages. Messages arriving
// while no program is set are dropped. Safe to call from any goroutine.
func (b *Bridge) SetProgram(p *tea.Program) {
	b.program.Store(p)
}

// Observe records s for delivery. It never blocks.
func (b *Bridge) Observe(s dialog.State) {
	b.mu.Lock()
	if b.latest == nil || s.Version >= b.latest.Version {
		b.latest = &s
	}
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Run delivers snapshots and the envelopes read from activity until ctx
// is done. activity may be nil; a closed activity channel is ignored from
// then on.
func (b *Bridge) Run(ctx context.Context, activity <-chan events.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
			b.mu.Lock()
			s := b.latest
			b.latest = nil
			b.mu.Unlock()
			if s != nil {
				b.send(stateMsg(*s))
			}
		case env, ok := <-activity:
			if !ok {
				activity = nil
				continue
			}
			b.send(activityMsg(env))
		}
	}
}

func (b *Bridge) send(msg tea.Msg) {
	if p := b.program.Load(); p != nil {
		p.Send(msg)
	}
}
