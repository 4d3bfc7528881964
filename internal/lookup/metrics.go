package lookup

import (
	"context"

	"zipcode_map/internal/events"
	"zipcode_map/platform/metrics"
)

// SourceCatalogue tells which country codes are worth their own metric series.
type SourceCatalogue interface {
	Known(code string) bool
}

// RegisterMetrics counts lookup outcomes published on bus. Sources missing
// from catalogue are counted under metrics.SourceOther.
func RegisterMetrics(bus events.Bus, m *metrics.Metrics, catalogue SourceCatalogue) {
	label := func(source string) string {
		if catalogue != nil && catalogue.Known(source) {
			return source
		}
		return metrics.SourceOther
	}

	bus.Subscribe(events.PlaceResolvedName, events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.PlaceResolved); ok {
			m.CountLookup(metrics.OutcomeResolved, label(e.Source))
		}
		return nil
	}))

	bus.Subscribe(events.PlaceLookupFailedName, events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.PlaceLookupFailed); ok {
			m.CountLookup(metrics.OutcomeFailed, label(e.Source))
		}
		return nil
	}))

	bus.Subscribe(events.LookupRejectedName, events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.LookupRejected); ok {
			m.CountLookup(metrics.OutcomeRejected, label(e.Source))
		}
		return nil
	}))
}
