package geo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNoRegions  = errors.New("no regions in country")
)

const earthRadiusM = 6371000.0

type RegionLister interface {
	Regions(ctx context.Context, countryCode string) ([]model.Region, error)
}

type Service struct {
	regions RegionLister
}

func NewService(regions RegionLister) *Service {
	return &Service{regions: regions}
}

// ResolveRegion picks the region of countryCode whose center is closest to the position.
func (s *Service) ResolveRegion(ctx context.Context, countryCode string, lat, lon float64) (model.Region, float64, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return model.Region{}, 0, err
	}
	if s.regions == nil {
		return model.Region{}, 0, fmt.Errorf("region lister is nil")
	}

	regions, err := s.regions.Regions(ctx, countryCode)
	if err != nil {
		return model.Region{}, 0, err
	}
	if len(regions) == 0 {
		return model.Region{}, 0, ErrNoRegions
	}

	nearest := regions[0]
	bestDistance := DistanceMeters(lat, lon, nearest.Lat, nearest.Lon)
	for _, region := range regions[1:] {
		distance := DistanceMeters(lat, lon, region.Lat, region.Lon)
		if distance < bestDistance {
			bestDistance = distance
			nearest = region
		}
	}

	return nearest, bestDistance, nil
}

// WithinRadius reports whether the user position lies within radiusM of the target.
// It gives up when ctx is done.
func (s *Service) WithinRadius(ctx context.Context, userLat, userLon, targetLat, targetLon, radiusM float64) (bool, float64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	if err := ValidateCoordinates(userLat, userLon); err != nil {
		return false, 0, err
	}
	if err := ValidateCoordinates(targetLat, targetLon); err != nil {
		return false, 0, err
	}

	distance := DistanceMeters(userLat, userLon, targetLat, targetLon)
	return distance <= radiusM, distance, nil
}

func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("invalid coordinates: %w", ErrValidation)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range: %w", ErrValidation)
	}
	return nil
}

func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}
