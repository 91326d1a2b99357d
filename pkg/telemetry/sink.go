package telemetry

import (
	"encoding/json"
	"log"
)

// LogSink writes events as JSON lines through the standard logger. It
// is the default sink when no collector is configured.
type LogSink struct{}

// NewLogSink creates a log-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Emit writes the event as one JSON line.
func (s *LogSink) Emit(event Event) {
	raw, err := json.Marshal(event)
	if err != nil {
		log.Printf("[telemetry] marshal failed: %v", err)
		return
	}
	log.Printf("[telemetry] %s", raw)
}

// Close is a no-op.
func (s *LogSink) Close() error { return nil }
