package zipcode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LookupRequest binds the path parameters of the JSON lookup endpoint.
type LookupRequest struct {
	Source string `uri:"source" binding:"required"`
	Zip    string `uri:"zip" binding:"required"`
}

// Place is one candidate location for a postal code.
type Place struct {
	Name              string  `json:"placeName"`
	State             string  `json:"state"`
	StateAbbreviation string  `json:"stateAbbreviation,omitempty"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`

	// Coordinates as the API wrote them, for display.
	LatitudeText  string `json:"-"`
	LongitudeText string `json:"-"`
}

// Lookup is the normalized answer for a country/postal code pair.
type Lookup struct {
	PostCode            string  `json:"postCode"`
	Country             string  `json:"country"`
	CountryAbbreviation string  `json:"countryAbbreviation"`
	Places              []Place `json:"places"`
}

// apiResponse mirrors the zippopotam.us payload.
type apiResponse struct {
	PostCode            string     `json:"post code"`
	Country             string     `json:"country"`
	CountryAbbreviation string     `json:"country abbreviation"`
	Places              []apiPlace `json:"places"`
}

type apiPlace struct {
	PlaceName         string     `json:"place name"`
	Longitude         coordinate `json:"longitude"`
	State             string     `json:"state"`
	StateAbbreviation string     `json:"state abbreviation"`
	Latitude          coordinate `json:"latitude"`
}

// coordinate accepts both "51.5" (what the API sends) and 51.5, and keeps
// the text it was given.
type coordinate struct {
	value float64
	text  string
}

func (c *coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		data = []byte(text)
	}

	text := string(data)
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q", text)
	}
	*c = coordinate{value: value, text: text}
	return nil
}

func (r apiResponse) toLookup() Lookup {
	places := make([]Place, 0, len(r.Places))
	for _, raw := range r.Places {
		places = append(places, Place{
			Name:              raw.PlaceName,
			State:             raw.State,
			StateAbbreviation: raw.StateAbbreviation,
			Latitude:          raw.Latitude.value,
			Longitude:         raw.Longitude.value,
			LatitudeText:      raw.Latitude.text,
			LongitudeText:     raw.Longitude.text,
		})
	}

	return Lookup{
		PostCode:            r.PostCode,
		Country:             r.Country,
		CountryAbbreviation: r.CountryAbbreviation,
		Places:              places,
	}
}
