package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"socialsync/internal/model"
)

// FixedLocator always reports the same position.
type FixedLocator model.Location

func (l FixedLocator) Locate(ctx context.Context) (model.Location, error) {
	if err := ctx.Err(); err != nil {
		return model.Location{}, err
	}
	return model.Location(l), nil
}

// ParseLocation reads a "lat,lng" pair.
func ParseLocation(s string) (FixedLocator, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return FixedLocator{}, fmt.Errorf("location %q: want lat,lng", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || la < -90 || la > 90 {
		return FixedLocator{}, fmt.Errorf("location %q: bad latitude", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil || lo < -180 || lo > 180 {
		return FixedLocator{}, fmt.Errorf("location %q: bad longitude", s)
	}
	return FixedLocator{Latitude: la, Longitude: lo}, nil
}
