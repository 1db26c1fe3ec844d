package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pawcircle/nearby/internal/core/domain"
)

func TestPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		point   domain.Point
		wantErr bool
	}{
		{"origin", domain.Point{}, false},
		{"corners", domain.Point{Lng: 180, Lat: -90}, false},
		{"bilbao", domain.Point{Lng: -2.935, Lat: 43.263}, false},
		{"lat 91", domain.Point{Lng: 0, Lat: 91}, true},
		{"lat -90.0001", domain.Point{Lng: 0, Lat: -90.0001}, true},
		{"lng 181", domain.Point{Lng: 181, Lat: 0}, true},
		{"lat NaN", domain.Point{Lng: 0, Lat: math.NaN()}, true},
		{"lng +Inf", domain.Point{Lng: math.Inf(1), Lat: 0}, true},
		{"lng -Inf", domain.Point{Lng: math.Inf(-1), Lat: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBoundingBox_Validate(t *testing.T) {
	assert.NoError(t, domain.BoundingBox{MinLng: 0, MaxLng: 10, MinLat: 0, MaxLat: 10}.Validate())
	assert.NoError(t, domain.BoundingBox{MinLng: 5, MaxLng: 5, MinLat: 5, MaxLat: 5}.Validate())

	err := domain.BoundingBox{MinLng: 10, MaxLng: 0, MinLat: 0, MaxLat: 10}.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidBoundingBox)

	err = domain.BoundingBox{MinLng: 0, MaxLng: 10, MinLat: 10, MaxLat: 0}.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidBoundingBox)

	err = domain.BoundingBox{MinLng: 0, MaxLng: 10, MinLat: 0, MaxLat: 95}.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidBoundingBox)
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestBoundingBox_ContainsInclusive(t *testing.T) {
	box := domain.BoundingBox{MinLng: 0, MaxLng: 10, MinLat: 0, MaxLat: 10}

	assert.True(t, box.Contains(domain.Point{Lng: 0, Lat: 0}))
	assert.True(t, box.Contains(domain.Point{Lng: 10, Lat: 10}))
	assert.True(t, box.Contains(domain.Point{Lng: 0, Lat: 10}))
	assert.True(t, box.Contains(domain.Point{Lng: 5, Lat: 5}))
	assert.False(t, box.Contains(domain.Point{Lng: 10.0001, Lat: 5}))
	assert.False(t, box.Contains(domain.Point{Lng: 5, Lat: -0.0001}))
	assert.False(t, box.Contains(domain.Point{Lng: math.NaN(), Lat: 5}))
}

func TestBoundingBox_Center(t *testing.T) {
	c := domain.BoundingBox{MinLng: -4, MaxLng: 2, MinLat: 40, MaxLat: 44}.Center()
	assert.Equal(t, domain.Point{Lng: -1, Lat: 42}, c)
}
