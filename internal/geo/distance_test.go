package geo

import (
	"math"
	"testing"
)

// TestDistance verifies the haversine calculation against known city pairs.
func TestDistance(t *testing.T) {
	tests := []struct {
		name       string
		a          Point
		b          Point
		expectedKm float64
		tolerance  float64
	}{
		{
			name:       "identical points",
			a:          Point{Lat: 40.0, Lng: -74.0},
			b:          Point{Lat: 40.0, Lng: -74.0},
			expectedKm: 0,
			tolerance:  0.0001,
		},
		{
			name:       "new york to los angeles",
			a:          Point{Lat: 40.7128, Lng: -74.0060},
			b:          Point{Lat: 34.0522, Lng: -118.2437},
			expectedKm: 3936,
			tolerance:  20,
		},
		{
			name:       "london to paris",
			a:          Point{Lat: 51.5074, Lng: -0.1278},
			b:          Point{Lat: 48.8566, Lng: 2.3522},
			expectedKm: 344,
			tolerance:  5,
		},
		{
			name:       "short hop (~1.1km)",
			a:          Point{Lat: 40.0, Lng: -74.0},
			b:          Point{Lat: 40.01, Lng: -74.0},
			expectedKm: 1.11,
			tolerance:  0.05,
		},
		{
			name:       "antipodal points",
			a:          Point{Lat: 0, Lng: 0},
			b:          Point{Lat: 0, Lng: 180},
			expectedKm: math.Pi * EarthRadiusKm,
			tolerance:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.expectedKm) > tt.tolerance {
				t.Errorf("Distance(%v, %v) = %f km, expected %f ± %f",
					tt.a, tt.b, got, tt.expectedKm, tt.tolerance)
			}
		})
	}
}

// TestDistanceSymmetry verifies Distance(a,b) == Distance(b,a).
func TestDistanceSymmetry(t *testing.T) {
	pairs := []struct {
		a, b Point
	}{
		{Point{Lat: 40.7128, Lng: -74.0060}, Point{Lat: 34.0522, Lng: -118.2437}},
		{Point{Lat: -33.8688, Lng: 151.2093}, Point{Lat: 35.6762, Lng: 139.6503}},
		{Point{Lat: 0, Lng: 0}, Point{Lat: 90, Lng: 0}},
	}

	for _, p := range pairs {
		forward := Distance(p.a, p.b)
		reverse := Distance(p.b, p.a)
		if math.Abs(forward-reverse) > 1e-9 {
			t.Errorf("asymmetric distance: %f vs %f for %v <-> %v", forward, reverse, p.a, p.b)
		}
	}
}

// TestPointValid tests coordinate bounds checking.
func TestPointValid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		valid bool
	}{
		{"origin", Point{0, 0}, true},
		{"north pole", Point{90, 0}, true},
		{"south pole", Point{-90, 0}, true},
		{"date line", Point{0, 180}, true},
		{"latitude too high", Point{90.1, 0}, false},
		{"latitude too low", Point{-91, 0}, false},
		{"longitude too high", Point{0, 180.5}, false},
		{"longitude too low", Point{0, -181}, false},
		{"NaN latitude", Point{math.NaN(), 0}, false},
		{"NaN longitude", Point{0, math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.point.Valid(); got != tt.valid {
				t.Errorf("Valid(%v) = %v, expected %v", tt.point, got, tt.valid)
			}
		})
	}
}
