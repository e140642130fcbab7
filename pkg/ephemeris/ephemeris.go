// Package ephemeris computes geocentric ecliptic longitudes and angular
// speeds for the bodies the transit engine tracks. The Provider interface is
// the single seam between the engine and any position source; the in-package
// implementation combines the meeus solar and lunar series with Keplerian
// mean elements for the planets.
package ephemeris

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aspectarian/pkg/astro"
)

// ErrUnknownBody is returned when a provider has no model for a body.
var ErrUnknownBody = errors.New("unknown body")

// Body identifies a celestial body in the provider's catalog.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
	MeanNode
)

var bodyNames = map[Body]string{
	Sun:      "sun",
	Moon:     "moon",
	Mercury:  "mercury",
	Venus:    "venus",
	Mars:     "mars",
	Jupiter:  "jupiter",
	Saturn:   "saturn",
	Uranus:   "uranus",
	Neptune:  "neptune",
	Pluto:    "pluto",
	MeanNode: "mean-node",
}

// String returns the lowercase body name.
func (b Body) String() string {
	if n, ok := bodyNames[b]; ok {
		return n
	}
	return fmt.Sprintf("body(%d)", int(b))
}

// ParseBody resolves a body name, case-insensitively.
func ParseBody(s string) (Body, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for b, n := range bodyNames {
		if n == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBody, s)
}

// Frame names the coordinate frame a sample is expressed in. The engine
// only uses geocentric ecliptic longitudes today; the frame still travels
// with every cache key so a future equatorial or topocentric provider can
// share the same cache without collisions.
type Frame string

// GeocentricEcliptic is the frame of all samples produced by this package.
const GeocentricEcliptic Frame = "geo-ecliptic"

// Sample is one provider result: a body's position and angular speed at an
// instant. Samples are immutable values; the provider is their only source.
type Sample struct {
	Body      Body
	Time      astro.TimePair
	Longitude float64 // ecliptic longitude, degrees [0, 360)
	Speed     float64 // dλ/dt, degrees per day; negative while retrograde
}

// Provider supplies position samples. Implementations must be pure: for a
// fixed configuration, the same (body, instant) always yields the same
// Sample. The engine relies on this to memoize and to recompute freely.
type Provider interface {
	// Sample returns the body's state at a UTC instant.
	Sample(body Body, t time.Time) (Sample, error)

	// Name identifies the provider for logging.
	Name() string

	// Signature fingerprints the provider configuration. Two providers with
	// equal signatures must be interchangeable sample-for-sample; the cache
	// keys on it.
	Signature() string
}
