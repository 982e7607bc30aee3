package types

import "time"

// MessageLevel grades MESSAGE envelopes on the progress channel.
type MessageLevel string

const (
	LevelInfo    MessageLevel = "info"
	LevelWarning MessageLevel = "warning"
	LevelError   MessageLevel = "error"
	LevelSuccess MessageLevel = "success"
	LevelDebug   MessageLevel = "debug"
)

// Event names published by the backtesting driver.
const (
	EventBacktestingStarted   = "backtesting_started"
	EventBacktestingProgress  = "backtesting_progress"
	EventBacktestingCompleted = "backtesting_completed"
	EventBacktestingError     = "backtesting_error"
)

// Message is the human-readable envelope kind on a task's pub/sub channel.
type Message struct {
	Timestamp time.Time    `json:"timestamp"`
	Level     MessageLevel `json:"level"`
	Message   string       `json:"message"`
}

// Event is the machine-readable envelope kind on a task's pub/sub channel.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}
