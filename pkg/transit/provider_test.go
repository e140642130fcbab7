package transit

import (
	"fmt"
	"math"
	"time"

	"aspectarian/pkg/astro"
	"aspectarian/pkg/ephemeris"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// linearBody moves at a constant angular speed from a starting longitude.
type linearBody struct {
	lon0  float64
	speed float64 // degrees per day
}

// oscillatingBody swings around a center longitude, reversing direction
// twice per period. Used to exercise retrograde-loop handling.
type oscillatingBody struct {
	center     float64
	amplitude  float64
	periodDays float64
}

// fakeProvider serves synthetic motion profiles keyed by body id. It is
// pure and cheap, which makes crossing times exactly predictable.
type fakeProvider struct {
	linear      map[ephemeris.Body]linearBody
	oscillating map[ephemeris.Body]oscillatingBody
}

func (p *fakeProvider) Name() string      { return "fake" }
func (p *fakeProvider) Signature() string { return "fake/v1" }

func (p *fakeProvider) Sample(body ephemeris.Body, t time.Time) (ephemeris.Sample, error) {
	days := t.Sub(testEpoch).Seconds() / 86400

	if lb, ok := p.linear[body]; ok {
		return ephemeris.Sample{
			Body:      body,
			Time:      astro.TimePair{UTC: t.UTC()},
			Longitude: astro.Norm360(lb.lon0 + lb.speed*days),
			Speed:     lb.speed,
		}, nil
	}
	if ob, ok := p.oscillating[body]; ok {
		w := 2 * math.Pi / ob.periodDays
		return ephemeris.Sample{
			Body:      body,
			Time:      astro.TimePair{UTC: t.UTC()},
			Longitude: astro.Norm360(ob.center + ob.amplitude*math.Sin(w*days)),
			Speed:     ob.amplitude * w * math.Cos(w*days),
		}, nil
	}
	return ephemeris.Sample{}, fmt.Errorf("%w: %s", ephemeris.ErrUnknownBody, body)
}

// daysAfterEpoch maps a day offset to an absolute test instant.
func daysAfterEpoch(days float64) time.Time {
	return testEpoch.Add(time.Duration(days * 24 * float64(time.Hour)))
}
