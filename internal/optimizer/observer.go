package optimizer

import "time"

// EventType represents different lifecycle phases of an optimization call
type EventType string

const (
	EventParseStart   EventType = "parse_start"
	EventParseEnd     EventType = "parse_end"
	EventRewriteStart EventType = "rewrite_start"
	EventRewriteEnd   EventType = "rewrite_end"
	EventSearchStart  EventType = "search_start"
	EventSearchEnd    EventType = "search_end"
)

// Event represents a lifecycle event in an optimization call
type Event struct {
	Type      EventType   // Type of event
	CallID    string      // Optimization call ID for tracing
	Timestamp time.Time   // When the event occurred
	Data      interface{} // Phase-specific data (e.g., query, rewrite counters, cost)
}

// Observer interface for event subscribers
// Observers receive events at major optimization phases
type Observer interface {
	OnEvent(event Event)
}
