package domain

import "errors"

var (
	// ErrInvalidCoordinate is returned for latitudes/longitudes that are out of
	// range, NaN or infinite. Values are never clamped.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrInvalidRadius is returned for negative or non-finite search radii.
	ErrInvalidRadius = errors.New("invalid radius")

	ErrInvalidBoundingBox = errors.New("invalid bounding box")
	ErrInvalidCommunity   = errors.New("invalid community")
	ErrNotFound           = errors.New("not found")

	// ErrMissingLocation is returned when a requester has neither a point nor
	// a home community to search from.
	ErrMissingLocation = errors.New("requester location unknown")
)
