package astro

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// TimePair carries one instant in the two scales the engine needs: civil UTC
// for callers and reporting, and a Julian date on the uniform Terrestrial
// Time basis for the ephemeris series.
type TimePair struct {
	UTC  time.Time // civil time
	JD   float64   // Julian date, UTC basis
	JDTT float64   // Julian date, Terrestrial Time basis (JD + ΔT)
}

// NewTimePair builds a TimePair from a UTC instant.
func NewTimePair(t time.Time) TimePair {
	t = t.UTC()
	jd := julian.TimeToJD(t)
	return TimePair{
		UTC:  t,
		JD:   jd,
		JDTT: jd + DeltaT(t)/86400,
	}
}

// DeltaT approximates TT-UTC in seconds for the given instant, using the
// Espenak-Meeus polynomial fits. Accurate to a few seconds over 1900-2150,
// which is far below the engine's coarsest useful tolerance.
func DeltaT(t time.Time) float64 {
	y := decimalYear(t)
	switch {
	case y >= 2005 && y < 2050:
		u := y - 2000
		return 62.92 + u*(0.32217+u*0.005589)
	case y >= 1986 && y < 2005:
		u := y - 2000
		return 63.86 + u*(0.3345+u*(-0.060374+u*(0.0017275+u*(0.000651814+u*0.00002373599))))
	case y >= 1961 && y < 1986:
		u := y - 1975
		return 45.45 + u*(1.067+u*(-1.0/260-u/718))
	case y >= 1941 && y < 1961:
		u := y - 1950
		return 29.07 + u*(0.407+u*(-1.0/233+u/2547))
	case y >= 1900 && y < 1941:
		u := y - 1920
		return 21.20 + u*(0.84493+u*(-0.076100+u*0.0020936))
	case y >= 2050 && y < 2150:
		u := (y - 1820) / 100
		return -20 + 32*u*u - 0.5628*(2150-y)
	default:
		u := (y - 1820) / 100
		return -20 + 32*u*u
	}
}

// decimalYear returns the year plus the elapsed fraction of it, good enough
// for the slowly varying ΔT fits.
func decimalYear(t time.Time) float64 {
	year := t.Year()
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC)
	return float64(year) + t.Sub(start).Seconds()/end.Sub(start).Seconds()
}
