package lookup

import "context"

// PlaceFetcher resolves a country code and postal code to the first known place.
type PlaceFetcher interface {
	FetchPlace(ctx context.Context, source, zip string) (PlaceResult, error)
}

// MapView is the interactive map of one page. Markers are never removed.
type MapView interface {
	SetView(center LatLng, zoom int, animate bool)
	AddMarker(at LatLng)
}

// ResultPanel is the initially hidden block listing the place fields.
type ResultPanel interface {
	// Reveal shows the panel; calling it on a visible panel is a no-op.
	Reveal()
	// SetInfo replaces the panel content with the given result.
	SetInfo(result PlaceResult)
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Console receives diagnostics meant for developers, never for the user.
type Console interface {
	Log(err error)
}

// Views bundles the page surfaces the controller writes to.
type Views struct {
	Map      MapView
	Panel    ResultPanel
	Notifier Notifier
	Console  Console
}
