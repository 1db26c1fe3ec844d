package domain

import (
	"fmt"
	"math"
)

// Point represents a geographic coordinate (WGS 84) in decimal degrees.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Validate reports ErrInvalidCoordinate for out-of-range or non-finite values.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v must be between -90 and 90", ErrInvalidCoordinate, p.Lat)
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v must be between -180 and 180", ErrInvalidCoordinate, p.Lng)
	}
	return nil
}

// BoundingBox represents a rectangular geographic region.
type BoundingBox struct {
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// Validate checks that both corners are valid points and that min <= max on each axis.
func (b BoundingBox) Validate() error {
	if err := (Point{Lng: b.MinLng, Lat: b.MinLat}).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBoundingBox, err)
	}
	if err := (Point{Lng: b.MaxLng, Lat: b.MaxLat}).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBoundingBox, err)
	}
	if b.MinLng > b.MaxLng {
		return fmt.Errorf("%w: min_lng %v > max_lng %v", ErrInvalidBoundingBox, b.MinLng, b.MaxLng)
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("%w: min_lat %v > max_lat %v", ErrInvalidBoundingBox, b.MinLat, b.MaxLat)
	}
	return nil
}

// Contains reports whether p lies inside the box. All four bounds are inclusive.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{
		Lng: (b.MinLng + b.MaxLng) / 2,
		Lat: (b.MinLat + b.MaxLat) / 2,
	}
}
