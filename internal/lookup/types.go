// Package lookup implements the controller behind the zip code form: it
// validates a submission, fetches the place and renders it on the page views.
package lookup

import "strconv"

// Level is the severity of a transient user notification.
type Level string

const (
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// User-facing notification texts.
const (
	MessageMissingInput = "Please select country and enter zipcode"
	MessageFetchFailed  = "Something wrong, look console :("
)

// Request is one form submission.
type Request struct {
	Source string `form:"source" json:"source" validate:"required"`
	Zip    string `form:"zip" json:"zip" validate:"required"`
}

// PlaceResult is the projection of the first place returned for a request.
type PlaceResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	State     string  `json:"state"`
	PlaceName string  `json:"placeName"`

	// Coordinates as received, shown instead of the formatted numbers when set.
	LatitudeText  string `json:"-"`
	LongitudeText string `json:"-"`
}

// Position returns the map coordinate of the place.
func (p PlaceResult) Position() LatLng {
	return LatLng{Lat: p.Latitude, Lng: p.Longitude}
}

// Field is one labeled line of the result panel.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Fields returns the four labeled values shown in the result panel.
func (p PlaceResult) Fields() []Field {
	return []Field{
		{Label: "Latitude", Value: coordinateText(p.LatitudeText, p.Latitude)},
		{Label: "Longitude", Value: coordinateText(p.LongitudeText, p.Longitude)},
		{Label: "State", Value: p.State},
		{Label: "Place Name", Value: p.PlaceName},
	}
}

// LatLng is a map coordinate in Leaflet order.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func coordinateText(text string, v float64) string {
	if text != "" {
		return text
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
