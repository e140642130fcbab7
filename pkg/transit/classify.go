package transit

import (
	"aspectarian/pkg/astro"
)

// Classification labels a refined crossing.
type Classification struct {
	Motion     Motion
	Retrograde bool
}

// Classify labels a crossing from the state at the refined instant. The
// offset's rate of change is the relative angular speed; the crossing is
// applying while the offset magnitude is shrinking and separating once it
// grows. An exactly zero offset is the partile instant and is labeled
// applying. Retrograde is flagged from the moving body's own speed alone;
// it does not alter the applying/separating call.
func Classify(separation, aspectAngle, bodySpeed, targetSpeed float64) Classification {
	offset := astro.Wrap180(separation - aspectAngle)
	rate := bodySpeed - targetSpeed

	motion := Separating
	if offset == 0 || offset*rate < 0 {
		motion = Applying
	}
	return Classification{
		Motion:     motion,
		Retrograde: bodySpeed < 0,
	}
}
