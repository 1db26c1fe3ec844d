package geospatial

import "math"

// EarthRadiusKm is the mean Earth radius used by default.
const EarthRadiusKm = 6371.0

// Haversine calculates the great-circle distance between two points on a
// sphere of the given radius. The result is in the unit of radius.
func Haversine(radius, lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push a marginally past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return radius * c
}

// BoundingBox returns a box that covers every point within radiusKm of
// (lat, lon) on a sphere of earthRadiusKm. The box is clamped to valid
// coordinates; when it would cross a pole or the antimeridian the longitude
// range widens to [-180, 180].
func BoundingBox(lat, lon, radiusKm, earthRadiusKm float64) (minLat, minLon, maxLat, maxLon float64) {
	angular := radiusKm / earthRadiusKm // radians
	latDelta := angular * 180 / math.Pi

	minLat = math.Max(-90, lat-latDelta)
	maxLat = math.Min(90, lat+latDelta)

	if minLat == -90 || maxLat == 90 {
		return minLat, -180, maxLat, 180
	}

	ratio := math.Sin(angular) / math.Cos(toRad(lat))
	if ratio >= 1 || angular >= math.Pi/2 {
		return minLat, -180, maxLat, 180
	}

	lonDelta := math.Asin(ratio) * 180 / math.Pi
	minLon = lon - lonDelta
	maxLon = lon + lonDelta
	if minLon < -180 || maxLon > 180 {
		return minLat, -180, maxLat, 180
	}

	return minLat, minLon, maxLat, maxLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
