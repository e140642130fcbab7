package ephemeris

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/solar"

	"aspectarian/pkg/astro"
)

// Accuracy selects between the full meeus series and the truncated
// polynomial series for the Sun and Moon. The planets use the same mean
// element model in both modes.
type Accuracy string

const (
	// AccuracyHigh uses the full meeus solar and lunar series, good to a
	// few arcseconds for the Sun and about an arcminute for the Moon.
	AccuracyHigh Accuracy = "high"
	// AccuracyLow uses short polynomial series, good to a few arcminutes
	// for the Sun and roughly a tenth of a degree for the Moon. Intended
	// for coarse preview scans where sample cost dominates.
	AccuracyLow Accuracy = "low"
)

// Config holds the tunables of the Meeus provider.
type Config struct {
	Accuracy Accuracy
	// SpeedStepSeconds is the half-width of the symmetric finite difference
	// used for angular speed. Zero selects the default of 300s.
	SpeedStepSeconds float64
}

// DefaultConfig returns the high-accuracy configuration.
func DefaultConfig() Config {
	return Config{Accuracy: AccuracyHigh, SpeedStepSeconds: 300}
}

// Meeus computes geocentric ecliptic longitudes from the meeus solar and
// lunar series plus Keplerian mean elements for the planets.
type Meeus struct {
	cfg Config
}

// NewMeeus returns a provider with the given configuration, filling in
// defaults for zero fields.
func NewMeeus(cfg Config) *Meeus {
	if cfg.Accuracy == "" {
		cfg.Accuracy = AccuracyHigh
	}
	if cfg.SpeedStepSeconds <= 0 {
		cfg.SpeedStepSeconds = 300
	}
	return &Meeus{cfg: cfg}
}

// Name implements Provider.
func (m *Meeus) Name() string { return "meeus" }

// Signature implements Provider. It covers every configuration field that
// changes sample values.
func (m *Meeus) Signature() string {
	return fmt.Sprintf("meeus/%s/fd%.0f", m.cfg.Accuracy, m.cfg.SpeedStepSeconds)
}

// Sample implements Provider. Speed comes from a symmetric finite
// difference of the longitude series, with the difference taken on the
// circle so a wrap through 0° does not produce a spurious ±360°/step.
func (m *Meeus) Sample(body Body, t time.Time) (Sample, error) {
	tp := astro.NewTimePair(t)
	lon, err := m.longitude(body, tp.JDTT)
	if err != nil {
		return Sample{}, err
	}

	h := m.cfg.SpeedStepSeconds / 86400 // days
	before, err := m.longitude(body, tp.JDTT-h)
	if err != nil {
		return Sample{}, err
	}
	after, err := m.longitude(body, tp.JDTT+h)
	if err != nil {
		return Sample{}, err
	}
	speed := astro.Wrap180(after-before) / (2 * h)

	return Sample{
		Body:      body,
		Time:      tp,
		Longitude: lon,
		Speed:     speed,
	}, nil
}

// longitude dispatches to the per-body series. jde is a TT Julian date.
func (m *Meeus) longitude(body Body, jde float64) (float64, error) {
	T := base.J2000Century(jde)
	switch body {
	case Sun:
		if m.cfg.Accuracy == AccuracyLow {
			return sunLongitudeLow(T), nil
		}
		return astro.Norm360(solar.ApparentLongitude(T).Deg()), nil
	case Moon:
		if m.cfg.Accuracy == AccuracyLow {
			return moonLongitudeLow(T), nil
		}
		lam, _, _ := moonposition.Position(jde)
		return astro.Norm360(lam.Deg()), nil
	case MeanNode:
		return meanNodeLongitude(T), nil
	case Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto:
		return planetLongitude(body, T)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownBody, body)
	}
}

// sunLongitudeLow is the truncated solar series: mean longitude plus the
// equation of center, no nutation or aberration. Good to a few arcminutes.
func sunLongitudeLow(T float64) float64 {
	L0 := 280.46646 + T*(36000.76983+T*0.0003032)
	M := astro.Norm360(357.52911 + T*(35999.05029-T*0.0001537))
	Mrad := M * math.Pi / 180
	C := (1.914602-T*(0.004817+T*0.000014))*math.Sin(Mrad) +
		(0.019993-0.000101*T)*math.Sin(2*Mrad) +
		0.000289*math.Sin(3*Mrad)
	return astro.Norm360(L0 + C)
}

// moonLongitudeLow is the five-term lunar longitude series (Meeus Ch. 47
// dominant terms). Good to roughly a tenth of a degree.
func moonLongitudeLow(T float64) float64 {
	L := 218.3164477 + 481267.88123421*T - 0.0015786*T*T + T*T*T/538841
	D := astro.Norm360(297.8501921 + 445267.1114034*T - 0.0018819*T*T + T*T*T/545868)
	Mp := astro.Norm360(134.9633964 + 477198.8675055*T + 0.0087414*T*T + T*T*T/69699)

	Drad := D * math.Pi / 180
	Mprad := Mp * math.Pi / 180

	lam := L +
		6.289*math.Sin(Mprad) +
		1.274*math.Sin(2*Drad-Mprad) +
		0.658*math.Sin(2*Drad) +
		0.214*math.Sin(2*Mprad) +
		0.110*math.Sin(Drad)
	return astro.Norm360(lam)
}

// meanNodeLongitude is the mean ascending node of the lunar orbit. It
// regresses at a near-constant 0.053°/day.
func meanNodeLongitude(T float64) float64 {
	omega := 125.0445479 - 1934.1362891*T + 0.0020754*T*T + T*T*T/467441
	return astro.Norm360(omega)
}
