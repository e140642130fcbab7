// Package astro provides the angle and time-scale primitives shared by the
// ephemeris provider and the transit engine: circular normalization, signed
// separations, Julian day conversion, and the UTC/TT offset.
package astro

import (
	"github.com/soniakeys/unit"
)

// Norm360 wraps an angle in degrees to the range [0, 360).
func Norm360(deg float64) float64 {
	return unit.PMod(deg, 360)
}

// Wrap180 wraps an angle in degrees to the range (-180, 180].
func Wrap180(deg float64) float64 {
	w := unit.PMod(deg, 360)
	if w > 180 {
		w -= 360
	}
	return w
}

// Separation returns the longitude of a measured from b, in [0, 360).
// This is the directed separation, not the shortest arc: a body 10° behind
// the reference yields 350, not -10.
func Separation(lonA, lonB float64) float64 {
	return Norm360(lonA - lonB)
}
