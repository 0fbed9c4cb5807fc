// Package mathx provides small numeric helpers missing from package math
package mathx

import "math"

// ArcsecPerRad is the number of arc-seconds in one radian
const ArcsecPerRad = 180 * 3600 / math.Pi

// Deg converts radians to degrees
func Deg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Rad converts degrees to radians
func Rad(deg float64) float64 {
	return deg * math.Pi / 180
}

// ArcsecToRad converts arc-seconds to radians
func ArcsecToRad(arcsec float64) float64 {
	return arcsec / ArcsecPerRad
}
