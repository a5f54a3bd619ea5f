package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Bearing calculates the initial bearing from point 1 to point 2.
// Returns degrees in [0, 360), where 0 is North and 90 is East.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)

	lonDiff := p2.Lng.Radians() - p1.Lng.Radians()
	y := math.Sin(lonDiff) * math.Cos(p2.Lat.Radians())
	x := math.Cos(p1.Lat.Radians())*math.Sin(p2.Lat.Radians()) -
		math.Sin(p1.Lat.Radians())*math.Cos(p2.Lat.Radians())*math.Cos(lonDiff)

	bearingDeg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}

// ImpliedSpeed returns the speed in m/s needed to travel between two fixes.
// Timestamps are epoch milliseconds. ok is false when the elapsed time is not positive.
func ImpliedSpeed(lat1, lon1 float64, t1 int64, lat2, lon2 float64, t2 int64) (speed float64, ok bool) {
	elapsed := float64(t2-t1) / 1000.0
	if elapsed <= 0 {
		return 0, false
	}
	return HaversineDistance(lat1, lon1, lat2, lon2) / elapsed, true
}

// ToLocal projects a point onto a flat east/north plane in metres centred on
// the origin. Accurate over the few kilometres a session covers.
func ToLocal(originLat, originLon, lat, lon float64) (east, north float64) {
	mPerDeg := EarthRadiusMeters * math.Pi / 180
	east = (lon - originLon) * mPerDeg * math.Cos(originLat*math.Pi/180)
	north = (lat - originLat) * mPerDeg
	return east, north
}

// FromLocal is the inverse of ToLocal
func FromLocal(originLat, originLon, east, north float64) (lat, lon float64) {
	mPerDeg := EarthRadiusMeters * math.Pi / 180
	lat = originLat + north/mPerDeg
	lon = originLon + east/(mPerDeg*math.Cos(originLat*math.Pi/180))
	return lat, lon
}
