/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package geofence provides the radius boundary math used for
// location-verified time tracking at job sites.
package geofence

import "math"

const earthRadiusM = 6371000.0

// Distance returns the great-circle distance in meters between two
// coordinates, using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Fence is a circular boundary around a job site.
type Fence struct {
	Latitude  float64
	Longitude float64
	RadiusM   float64
}

// DistanceTo returns the distance in meters from the fence center.
func (f Fence) DistanceTo(lat, lng float64) float64 {
	return Distance(f.Latitude, f.Longitude, lat, lng)
}

// Contains reports whether the coordinate falls inside the fence. A
// non-positive radius disables verification and admits everything.
func (f Fence) Contains(lat, lng float64) bool {
	if f.RadiusM <= 0 {
		return true
	}
	return f.DistanceTo(lat, lng) <= f.RadiusM
}
