package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of conversation event.
type EventType string

const (
	ConversationStarted EventType = "conversation.started"
	OptionSelected      EventType = "option.selected"
	RevealCompleted     EventType = "reveal.completed"
	NarrationStarted    EventType = "narration.started"
	NarrationFinished   EventType = "narration.finished"
	ConversationEnded   EventType = "conversation.ended"
)

// Envelope is the standard event wrapper handed to subscribers and sinks.
type Envelope struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"type"`
	Source         string          `json:"source"`
	ConversationID string          `json:"conversation_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Data           json.RawMessage `json:"data"`
}

// ConversationStartedData is the payload for ConversationStarted.
type ConversationStartedData struct {
	Script   string   `json:"script"`
	Greeting string   `json:"greeting"`
	Options  []string `json:"options"`
	Restart  bool     `json:"restart,omitempty"`
}

// OptionSelectedData is the payload for OptionSelected.
type OptionSelectedData struct {
	Prompt string `json:"prompt"`
	Mood   string `json:"mood"`
	Turn   int    `json:"turn"`
}

// RevealCompletedData is the payload for RevealCompleted.
type RevealCompletedData struct {
	Text    string   `json:"text"`
	Runes   int      `json:"runes"`
	Options []string `json:"options"`
}

// NarrationData is the payload for NarrationStarted and NarrationFinished.
type NarrationData struct {
	Speaking bool `json:"speaking"`
}

// ConversationEndedData is the payload for ConversationEnded.
type ConversationEndedData struct {
	Turns int `json:"turns"`
}
