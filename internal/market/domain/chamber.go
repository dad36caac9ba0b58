package domain

import (
	"strings"
	"time"
)

type Chamber struct {
	ID        string
	Name      string
	City      string
	Province  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SplitLocation splits "City / Province" or "City - Province" at the first
// separator. Anything else is taken as the city alone.
func SplitLocation(location string) (city, province string) {
	location = strings.TrimSpace(location)
	i := strings.IndexAny(location, "/-")
	if i < 0 {
		return location, ""
	}
	return strings.TrimSpace(location[:i]), strings.TrimSpace(location[i+1:])
}
