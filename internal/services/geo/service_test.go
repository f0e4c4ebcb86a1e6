package geo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

type fakeRegions []model.Region

func (f fakeRegions) Regions(_ context.Context, _ string) ([]model.Region, error) {
	return f, nil
}

func TestResolveRegion(t *testing.T) {
	svc := NewService(fakeRegions{
		{Code: "vienna", Lat: 48.2082, Lon: 16.3738},
		{Code: "tyrol", Lat: 47.2692, Lon: 11.4041},
		{Code: "salzburg", Lat: 47.8095, Lon: 13.0550},
	})

	tests := []struct {
		name   string
		lat    float64
		lon    float64
		region string
	}{
		{name: "schoenbrunn", lat: 48.1845, lon: 16.3122, region: "vienna"},
		{name: "innsbruck", lat: 47.26, lon: 11.39, region: "tyrol"},
		{name: "hallstatt", lat: 47.5622, lon: 13.6493, region: "salzburg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, _, err := svc.ResolveRegion(context.Background(), "at", tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("resolve region: %v", err)
			}
			if region.Code != tt.region {
				t.Fatalf("unexpected region: got %s want %s", region.Code, tt.region)
			}
		})
	}
}

func TestResolveRegionEmptyCountry(t *testing.T) {
	svc := NewService(fakeRegions{})
	if _, _, err := svc.ResolveRegion(context.Background(), "xx", 10, 10); !errors.Is(err, ErrNoRegions) {
		t.Fatalf("expected ErrNoRegions, got %v", err)
	}
}

func TestValidateCoordinates(t *testing.T) {
	for _, c := range [][2]float64{{91, 0}, {0, 181}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		if err := ValidateCoordinates(c[0], c[1]); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for %v, got %v", c, err)
		}
	}
}

func TestWithinRadius(t *testing.T) {
	svc := NewService(nil)

	// roughly 111 m north of the target
	ok, distance, err := svc.WithinRadius(context.Background(), 48.2092, 16.3738, 48.2082, 16.3738, 200)
	if err != nil {
		t.Fatalf("within radius: %v", err)
	}
	if !ok || distance < 100 || distance > 120 {
		t.Fatalf("unexpected result ok=%v distance=%.1f", ok, distance)
	}

	ok, _, err = svc.WithinRadius(context.Background(), 48.2182, 16.3738, 48.2082, 16.3738, 200)
	if err != nil || ok {
		t.Fatalf("1.1 km away must be outside the radius, ok=%v err=%v", ok, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := svc.WithinRadius(ctx, 0, 0, 0, 0, 10); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
