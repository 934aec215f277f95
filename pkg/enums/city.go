package enums

import "fmt"

// City enumerates the delivery locations the marketplace serves.
type City string

const (
	CityDireDawa City = "dire_dawa"
	CityHarar    City = "harar"
	CityJigjiga  City = "jigjiga"
)

var validCities = []City{
	CityDireDawa,
	CityHarar,
	CityJigjiga,
}

// IsValid reports whether the value is a served city.
func (c City) IsValid() bool {
	for _, candidate := range validCities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCity converts raw input into a City.
func ParseCity(value string) (City, error) {
	for _, candidate := range validCities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid city %q", value)
}
