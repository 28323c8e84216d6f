package domain

import "time"

// MessageLevel is the severity of a notification message.
type MessageLevel string

// Message levels.
const (
	MessageInfo  MessageLevel = "info"
	MessageWarn  MessageLevel = "warn"
	MessageError MessageLevel = "error"
)

// Message is a progress notification for operators.
type Message struct {
	ID    string       `json:"id"`
	At    time.Time    `json:"at"`
	Level MessageLevel `json:"level"`
	Text  string       `json:"text"`
}
