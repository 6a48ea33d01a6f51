package spatial

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// EarthRadiusMeters is the mean Earth radius
const EarthRadiusMeters = 6371000.0

func latLng(c models.Coordinate) s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lng)
}

// DistanceKm returns the great-circle distance between two coordinates in kilometers.
// A missing or invalid point yields 0.
func DistanceKm(a, b *models.Coordinate) float64 {
	return DistanceMeters(a, b) / 1000
}

// DistanceMeters is DistanceKm in meters
func DistanceMeters(a, b *models.Coordinate) float64 {
	if a == nil || b == nil || !a.Valid() || !b.Valid() {
		return 0
	}
	return latLng(*a).Distance(latLng(*b)).Radians() * EarthRadiusMeters
}

// Offset returns the coordinate distance meters away from c along bearing degrees
func Offset(c models.Coordinate, bearing, distance float64) models.Coordinate {
	start := latLng(c)
	theta := (s1.Angle(bearing) * s1.Degree).Radians()
	delta := distance / EarthRadiusMeters
	phi := start.Lat.Radians()

	sinLat := math.Sin(phi)*math.Cos(delta) + math.Cos(phi)*math.Sin(delta)*math.Cos(theta)
	lat := math.Asin(sinLat)
	lng := start.Lng.Radians() + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi),
		math.Cos(delta)-math.Sin(phi)*sinLat)

	end := s2.LatLng{Lat: s1.Angle(lat), Lng: s1.Angle(lng)}.Normalized()
	return models.Coordinate{Lat: end.Lat.Degrees(), Lng: end.Lng.Degrees()}
}
