// Package tui renders a conversation with the assistant in the terminal.
//
// The Model hosts a dialog.Presenter. The presenter's observer feeds
// state snapshots into the running program through a Bridge; snapshots
// older than the one on screen are discarded. The same Bridge forwards
// published conversation events to the activity pane.
package tui
