package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// VenueEvent is the event-saved trigger: a calendar event and the free-text
// address of its venue.
type VenueEvent struct {
	EventID   string `json:"event_id"`
	VenueName string `json:"venue_name,omitempty"`
	Address   string `json:"address"`
	Language  string `json:"language,omitempty"`
}

// LocatedEvent is the result of running a VenueEvent through the pipeline.
type LocatedEvent struct {
	EventID     string         `json:"event_id"`
	VenueName   string         `json:"venue_name,omitempty"`
	Location    LocationRecord `json:"location"`
	TermIDs     []NodeID       `json:"term_ids"`
	Paths       []string       `json:"paths"`
	Display     string         `json:"display"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// ParseVenueEvent decodes a RawEvent payload into a VenueEvent. The message
// key stands in for a missing event_id.
func ParseVenueEvent(raw RawEvent) (VenueEvent, error) {
	var ev VenueEvent
	if err := json.Unmarshal(raw.Value, &ev); err != nil {
		return VenueEvent{}, fmt.Errorf("parse venue event: %w", err)
	}
	if ev.EventID == "" {
		ev.EventID = string(raw.Key)
	}
	ev.EventID = strings.TrimSpace(ev.EventID)
	ev.Address = Sanitize(ev.Address)
	ev.VenueName = Sanitize(ev.VenueName)

	if ev.EventID == "" {
		return VenueEvent{}, errors.New("parse venue event: missing event_id")
	}
	if ev.Address == "" {
		return VenueEvent{}, fmt.Errorf("parse venue event %s: missing address", ev.EventID)
	}
	return ev, nil
}

// Stamp sets ProcessedAt from the package clock.
func (e LocatedEvent) Stamp() LocatedEvent {
	e.ProcessedAt = clock.Now().UTC()
	return e
}
