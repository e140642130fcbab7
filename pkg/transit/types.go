// Package transit locates the instants at which a moving body's angular
// separation from a reference longitude crosses a target aspect angle. The
// engine samples the ephemeris at a coarse cadence, brackets sign changes of
// the offset function, refines each bracket with a hybrid secant/bisection
// search, and emits ordered AspectHit records.
package transit

import (
	"fmt"
	"time"

	"aspectarian/pkg/ephemeris"
)

// Aspect is a target angular separation between two longitudes.
type Aspect struct {
	Name   string  `json:"name"`
	Angle  float64 `json:"angle"`
	Family string  `json:"family"`
}

// Aspect families.
const (
	FamilyMajor  = "major"
	FamilyMinor  = "minor"
	FamilyCustom = "custom"
)

var namedAspects = []Aspect{
	{Name: "conjunction", Angle: 0, Family: FamilyMajor},
	{Name: "semisextile", Angle: 30, Family: FamilyMinor},
	{Name: "semisquare", Angle: 45, Family: FamilyMinor},
	{Name: "sextile", Angle: 60, Family: FamilyMajor},
	{Name: "square", Angle: 90, Family: FamilyMajor},
	{Name: "trine", Angle: 120, Family: FamilyMajor},
	{Name: "sesquiquadrate", Angle: 135, Family: FamilyMinor},
	{Name: "quincunx", Angle: 150, Family: FamilyMinor},
	{Name: "opposition", Angle: 180, Family: FamilyMajor},
}

// MajorAspects returns the five Ptolemaic aspects.
func MajorAspects() []Aspect {
	var out []Aspect
	for _, a := range namedAspects {
		if a.Family == FamilyMajor {
			out = append(out, a)
		}
	}
	return out
}

// AspectForAngle returns the named aspect for an angle, or a custom one.
func AspectForAngle(angle float64) Aspect {
	for _, a := range namedAspects {
		if a.Angle == angle {
			return a
		}
	}
	return Aspect{Name: fmt.Sprintf("%g°", angle), Angle: angle, Family: FamilyCustom}
}

// Target is a reference longitude the moving bodies are measured against,
// typically a natal position. Speed is zero for fixed points; a nonzero
// speed tightens the scanner's cadence and feeds motion classification.
type Target struct {
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
}

// TargetFromBody resolves a body's position at an instant into a fixed
// Target, e.g. a natal chart point. A provider failure here is a
// configuration error and is returned as such.
func TargetFromBody(p ephemeris.Provider, body ephemeris.Body, t time.Time) (Target, error) {
	s, err := p.Sample(body, t)
	if err != nil {
		return Target{}, fmt.Errorf("resolving target %s: %w", body, err)
	}
	return Target{Name: body.String(), Longitude: s.Longitude}, nil
}

// Bracket is a pair of scan ticks whose offsets straddle a root (or touch
// zero). Skipped marks a window containing a direction reversal, which may
// hide zero or several roots; the refiner must not be run on it.
type Bracket struct {
	T0, T1  time.Time
	F0, F1  float64
	S0, S1  ephemeris.Sample
	Skipped bool
}

// RefineStatus reports how a refinement attempt ended.
type RefineStatus int

const (
	// RefineOK means the bracket converged within tolerance.
	RefineOK RefineStatus = iota
	// RefineMaxIter means the iteration budget ran out first; Time is the
	// best current estimate.
	RefineMaxIter
	// RefineBadBracket means the endpoints did not straddle a root.
	RefineBadBracket
)

func (s RefineStatus) String() string {
	switch s {
	case RefineOK:
		return "ok"
	case RefineMaxIter:
		return "max_iter"
	case RefineBadBracket:
		return "bad_bracket"
	default:
		return "unknown"
	}
}

// RefineResult is the outcome of one refinement attempt.
type RefineResult struct {
	Time            time.Time
	Iterations      int
	Method          string // "secant", "bisection", or "none"
	AchievedSeconds float64
	Status          RefineStatus
}

// Motion says whether the offset is closing on exactness or opening.
type Motion int

const (
	Applying Motion = iota
	Separating
)

func (m Motion) String() string {
	if m == Applying {
		return "applying"
	}
	return "separating"
}

// MarshalJSON renders the motion as its name.
func (m Motion) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// AspectHit is one detected crossing. Immutable once assembled; the ordered
// hit list is the engine's externally consumed artifact.
type AspectHit struct {
	Time            time.Time      `json:"time"`
	Moving          ephemeris.Body `json:"-"`
	MovingName      string         `json:"moving"`
	Target          string         `json:"target"`
	Aspect          Aspect         `json:"aspect"`
	MovingLongitude float64        `json:"moving_longitude"`
	TargetLongitude float64        `json:"target_longitude"`
	OrbAbs          float64        `json:"orb_abs"`
	OrbAllow        float64        `json:"orb_allow"`
	Motion          Motion         `json:"motion"`
	Retrograde      bool           `json:"retrograde"`
	Partile         bool           `json:"partile"`
}
