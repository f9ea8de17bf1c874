package domain

import (
	"math"
	"time"
)

// earthRadiusKm is the mean Earth radius used by DistanceKm.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

func pointOf(lat, lng *float64) (Point, bool) {
	if lat == nil || lng == nil {
		return Point{}, false
	}
	return Point{Lat: *lat, Lng: *lng}, true
}

// DistanceKm returns the great-circle (haversine) distance between a and b.
func DistanceKm(a, b Point) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// MonthKey returns the calendar month (UTC) of t as "YYYY-MM", the key of a
// capacity ledger row.
func MonthKey(t time.Time) string { return t.UTC().Format("2006-01") }
