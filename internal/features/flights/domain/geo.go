package domain

import (
	"math"
	"time"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points in
// kilometers. A point at exactly (0,0) is the feed's "no fix yet"
// sentinel and yields 0.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	if (lat1 == 0 && lon1 == 0) || (lat2 == 0 && lon2 == 0) {
		return 0
	}

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ProgressPercent returns how far along the route the last sample is, in
// [0,100] rounded to one decimal. Tracks with fewer than two samples, and
// routes whose total distance is unknown, report 0.
func ProgressPercent(track []PositionSample, last PositionSample, origin, destination Location) float64 {
	if len(track) < 2 {
		return 0
	}

	total := DistanceKm(origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude)
	if total == 0 {
		return 0
	}

	flown := DistanceKm(origin.Latitude, origin.Longitude, last.Latitude, last.Longitude)
	pct := flown / total * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return math.Round(pct*10) / 10
}

// DelaySeconds returns the whole seconds between a scheduled and an actual
// phase timestamp. Either value absent yields 0.
func DelaySeconds(actual, scheduled *time.Time) int64 {
	if actual == nil || scheduled == nil {
		return 0
	}
	return int64(math.Round(actual.Sub(*scheduled).Seconds()))
}

// EstimatedArrival projects the arrival time from the actual takeoff plus
// the filed en-route duration. Nil when the takeoff has not happened.
func EstimatedArrival(actualOff *time.Time, filedETESeconds int64) *time.Time {
	if actualOff == nil {
		return nil
	}
	eta := actualOff.Add(time.Duration(filedETESeconds) * time.Second)
	return &eta
}
