package geo

import "math"

// EarthRadiusMeters is Earth's radius in meters for Haversine calculation.
const EarthRadiusMeters = 6371000.0

// HaversineMeters calculates the great-circle distance between two points
// on Earth in meters using the Haversine formula.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineMeters(lat1, lon1, lat2, lon2) / 1000
}

// EstimateETAMinutes estimates delivery time in minutes for a distance in km
// at the given average speed in km/h. Returns -1 for a non-positive speed.
func EstimateETAMinutes(distanceKm, speedKmh float64) int {
	if speedKmh <= 0 {
		return -1
	}
	return int(distanceKm / speedKmh * 60)
}
