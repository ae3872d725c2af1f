package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		delta                  float64
	}{
		{"same point", 28.6139, 77.2090, 28.6139, 77.2090, 0, 1e-9},
		{"delhi to agra", 28.6139, 77.2090, 27.1767, 78.0081, 178.06, 0.1},
		{"mumbai to pune", 19.0760, 72.8777, 18.5204, 73.8567, 120.15, 0.1},
		{"antipodal", 0, 0, 0, 180, math.Pi * earthRadiusKm, 0.001},
		{"roughly 2km north", 12.9716, 77.5946, 12.9896, 77.5946, 2.0, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2), tt.delta)
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	points := [][2]float64{
		{28.6139, 77.2090},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{0, 0},
	}

	for _, a := range points {
		for _, b := range points {
			ab := DistanceKm(a[0], a[1], b[0], b[1])
			ba := DistanceKm(b[0], b[1], a[0], a[1])
			assert.InDelta(t, ab, ba, 1e-9)
			assert.GreaterOrEqual(t, ab, 0.0)
		}
	}
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 2.0, RoundTo(2.0012, 1))
	assert.Equal(t, 3.14, RoundTo(3.14159, 2))
	assert.Equal(t, 15000.0, KmToMeters(15))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(90, 180))
	assert.True(t, ValidCoordinates(-90, -180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
}
