package geocache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Coordinates is the canonical (latitude, longitude) pair. Clients send
// coordinates in several shapes (ordered pair, named-field object, or a
// string wrapping either), so every boundary goes through ParseCoordinates.
type Coordinates struct {
	Lat float64
	Lng float64
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}{c.Lat, c.Lng})
}

func (c *Coordinates) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCoordinates(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Validate checks the geodetic ranges.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	return nil
}

// ParseCoordinates extracts a canonical pair from a raw JSON value.
// Accepted forms, tried in order: [lat, lng] array, {lat|latitude,
// lng|longitude} object (short key preferred, missing keys default to 0),
// or a JSON string wrapping one of the above.
func ParseCoordinates(raw []byte) (Coordinates, error) {
	return parseCoordinates(raw, 0)
}

func parseCoordinates(raw []byte, depth int) (Coordinates, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Coordinates{}, ErrInvalidCoordinates
	}

	switch trimmed[0] {
	case '[':
		var pair []float64
		if err := json.Unmarshal([]byte(trimmed), &pair); err != nil || len(pair) < 2 {
			return Coordinates{}, ErrInvalidCoordinates
		}
		return Coordinates{Lat: pair[0], Lng: pair[1]}, nil
	case '{':
		var obj struct {
			Lat       *float64 `json:"lat"`
			Latitude  *float64 `json:"latitude"`
			Lng       *float64 `json:"lng"`
			Longitude *float64 `json:"longitude"`
		}
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return Coordinates{}, ErrInvalidCoordinates
		}
		var c Coordinates
		switch {
		case obj.Lat != nil:
			c.Lat = *obj.Lat
		case obj.Latitude != nil:
			c.Lat = *obj.Latitude
		}
		switch {
		case obj.Lng != nil:
			c.Lng = *obj.Lng
		case obj.Longitude != nil:
			c.Lng = *obj.Longitude
		}
		return c, nil
	case '"':
		if depth > 0 {
			return Coordinates{}, ErrInvalidCoordinates
		}
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return Coordinates{}, ErrInvalidCoordinates
		}
		return parseCoordinates([]byte(inner), depth+1)
	default:
		return Coordinates{}, ErrInvalidCoordinates
	}
}
