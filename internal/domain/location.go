package domain

import (
	"fmt"
	"math"
)

// Location is a resolved place. It is immutable once produced by the
// resolver or the geoip lookup; the rest of the app only reads it.
type Location struct {
	Name       string
	Latitude   float64
	Longitude  float64
	Country    string
	CountryISO string
	Admin1     string
	Timezone   string
	Population int64
}

// LocationFromCoords builds a Location for caller-supplied coordinates.
// The name is the coordinate pair; no geocoding is involved.
func LocationFromCoords(lat, lon float64) Location {
	return Location{
		Name:      fmt.Sprintf("%.4f, %.4f", lat, lon),
		Latitude:  lat,
		Longitude: lon,
	}
}

// DisplayName renders "Name, Admin1, Country" with empty parts omitted.
func (l Location) DisplayName() string {
	switch {
	case l.Admin1 != "" && l.Country != "":
		return fmt.Sprintf("%s, %s, %s", l.Name, l.Admin1, l.Country)
	case l.Country != "":
		return fmt.Sprintf("%s, %s", l.Name, l.Country)
	default:
		return l.Name
	}
}

// LocationKey identifies a place for caching. Coordinates are stored as
// raw bits so the key is hashable without float equality surprises.
type LocationKey struct {
	Name    string
	LatBits uint64
	LonBits uint64
	Country string
	Admin1  string
}

func (l Location) Key() LocationKey {
	return LocationKey{
		Name:    l.Name,
		LatBits: math.Float64bits(l.Latitude),
		LonBits: math.Float64bits(l.Longitude),
		Country: l.Country,
		Admin1:  l.Admin1,
	}
}

// SamePlace reports whether two locations refer to the same place, allowing
// for small coordinate drift between providers.
func (l Location) SamePlace(other Location) bool {
	return foldEqual(l.Name, other.Name) &&
		foldEqual(l.Country, other.Country) &&
		math.Abs(l.Latitude-other.Latitude) < 0.05 &&
		math.Abs(l.Longitude-other.Longitude) < 0.05
}
