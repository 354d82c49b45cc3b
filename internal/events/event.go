package events

import "time"

// Event represents a domain event that can be published and consumed
type Event interface {
	// GetType returns the type of the event
	GetType() string
	// GetEpisodeID returns the simulation episode this event is associated with
	GetEpisodeID() string
	// GetTimestamp returns when the event occurred
	GetTimestamp() time.Time
	// GetPayload returns the event-specific data
	GetPayload() interface{}
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	Type      string      `json:"type"`
	EpisodeID string      `json:"episodeId"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// GetType returns the event type
func (e *BaseEvent) GetType() string {
	return e.Type
}

// GetEpisodeID returns the episode ID
func (e *BaseEvent) GetEpisodeID() string {
	return e.EpisodeID
}

// GetTimestamp returns the event timestamp
func (e *BaseEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

// GetPayload returns the event payload
func (e *BaseEvent) GetPayload() interface{} {
	return e.Payload
}

// NewBaseEvent creates a new base event
func NewBaseEvent(eventType, episodeID string, payload interface{}) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		EpisodeID: episodeID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}