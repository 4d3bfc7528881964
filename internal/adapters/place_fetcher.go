package adapters

import (
	"context"

	"zipcode_map/internal/lookup"
	"zipcode_map/internal/zipcode"
)

// PlaceFetcherAdapter adapts the zipcode service for use by the lookup controller.
// It implements the lookup.PlaceFetcher interface.
type PlaceFetcherAdapter struct {
	svc *zipcode.Service
}

// NewPlaceFetcherAdapter creates a new adapter that wraps the zipcode service.
func NewPlaceFetcherAdapter(svc *zipcode.Service) *PlaceFetcherAdapter {
	return &PlaceFetcherAdapter{svc: svc}
}

// FetchPlace resolves the first place for the postal code and maps it to the
// lookup domain's PlaceResult. Errors pass through unchanged.
func (a *PlaceFetcherAdapter) FetchPlace(ctx context.Context, source, zip string) (lookup.PlaceResult, error) {
	place, err := a.svc.LookupPlace(ctx, source, zip)
	if err != nil {
		return lookup.PlaceResult{}, err
	}

	return lookup.PlaceResult{
		Latitude:      place.Latitude,
		Longitude:     place.Longitude,
		State:         place.State,
		PlaceName:     place.Name,
		LatitudeText:  place.LatitudeText,
		LongitudeText: place.LongitudeText,
	}, nil
}

var _ lookup.PlaceFetcher = (*PlaceFetcherAdapter)(nil)
