// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"zipcode_map/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

const (
	LookupRejectedName    = "lookup.submission.rejected"
	PlaceResolvedName     = "lookup.place.resolved"
	PlaceLookupFailedName = "lookup.place.failed"
)

// =============================================================================
// Lookup Domain Events
// =============================================================================

// LookupRejected is published when a submission misses the country or zip.
type LookupRejected struct {
	BaseEvent
	Source string   `json:"source"`
	Zip    string   `json:"zip"`
	Fields []string `json:"fields"`
}

func (e LookupRejected) EventName() string { return LookupRejectedName }

// PlaceResolved is published after a place was rendered.
type PlaceResolved struct {
	BaseEvent
	Source    string  `json:"source"`
	Zip       string  `json:"zip"`
	PlaceName string  `json:"placeName"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (e PlaceResolved) EventName() string { return PlaceResolvedName }

// PlaceLookupFailed is published when fetching or projecting a place failed.
type PlaceLookupFailed struct {
	BaseEvent
	Source string `json:"source"`
	Zip    string `json:"zip"`
	Reason string `json:"reason"`
}

func (e PlaceLookupFailed) EventName() string { return PlaceLookupFailedName }
