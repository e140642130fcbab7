package transit

import (
	"time"

	"aspectarian/pkg/astro"
	"aspectarian/pkg/ephemeris"
)

// Evaluation couples one offset value with the sample behind it, so the
// scanner and classifier can reuse the speed without a second provider call.
type Evaluation struct {
	Offset float64
	Sample ephemeris.Sample
}

// OffsetFunc evaluates the signed offset at an instant: the moving body's
// directed separation from the target longitude, minus the aspect angle,
// wrapped to (-180, 180]. A crossing of the aspect is a zero of this
// function.
type OffsetFunc func(t time.Time) (Evaluation, error)

// NewOffsetFunc builds the offset function for one (moving, target, aspect)
// triple over a provider.
func NewOffsetFunc(p ephemeris.Provider, moving ephemeris.Body, target Target, aspectAngle float64) OffsetFunc {
	return func(t time.Time) (Evaluation, error) {
		s, err := p.Sample(moving, t)
		if err != nil {
			return Evaluation{}, err
		}
		sep := astro.Separation(s.Longitude, target.Longitude)
		return Evaluation{
			Offset: astro.Wrap180(sep - aspectAngle),
			Sample: s,
		}, nil
	}
}
