package transit

import (
	"time"
)

// Scanner defaults. The base cadence is coarse enough to keep sample cost
// down for slow movers, and the adaptive rule tightens it when a fast body
// chases a small orb.
const (
	DefaultStepHours = 6.0
	// minStep is the floor of the adaptive cadence.
	minStep = 10 * time.Minute
	// stepScale shrinks the orb-crossing time so that a crossing always
	// spans at least a couple of ticks.
	stepScale = 0.5
)

// ScanConfig tunes one coarse scan.
type ScanConfig struct {
	// Step is the base cadence and the ceiling of the adaptive step.
	Step time.Duration
	// OrbDeg is the allowed orb; with the relative speed it bounds how fast
	// the offset can traverse the orb, which drives the adaptive cadence.
	OrbDeg float64
	// TargetSpeed is the reference longitude's drift in degrees per day,
	// zero for fixed points.
	TargetSpeed float64
}

// Scanner walks a window at the configured cadence and yields every tick
// pair that brackets a zero of the offset function.
type Scanner struct {
	f   OffsetFunc
	cfg ScanConfig
}

// NewScanner builds a scanner over an offset function.
func NewScanner(f OffsetFunc, cfg ScanConfig) *Scanner {
	if cfg.Step <= 0 {
		cfg.Step = time.Duration(DefaultStepHours * float64(time.Hour))
	}
	return &Scanner{f: f, cfg: cfg}
}

// Scan returns the bracket candidates in [start, end]. A pair qualifies when
// its offsets have opposite signs or either is exactly zero. A pair whose
// samples show the body's angular speed reversing sign is returned with
// Skipped set: such a window may hold zero, one, or several roots, and
// refining it blindly would fabricate an answer.
//
// The scan is bounded by the window; only provider failures abort it.
func (s *Scanner) Scan(start, end time.Time) ([]Bracket, error) {
	if !start.Before(end) {
		return nil, nil
	}

	var brackets []Bracket
	prev, err := s.f(start)
	if err != nil {
		return nil, err
	}
	prevT := start
	// When a tick lands exactly on a root, the pair ending at it captures the
	// crossing; the pair starting at it must not report the same root again.
	prevCaptured := false

	for prevT.Before(end) {
		t := prevT.Add(s.stepAfter(prev))
		if t.After(end) {
			t = end
		}
		cur, err := s.f(t)
		if err != nil {
			return nil, err
		}

		reversal := prev.Sample.Speed*cur.Sample.Speed < 0
		crossing := cur.Offset == 0 || (prev.Offset == 0 && !prevCaptured) ||
			(prev.Offset != 0 && (prev.Offset < 0) != (cur.Offset < 0))

		// Discontinuity seam: the offset wraps from near +180 to near -180
		// (or back) without a root in between. A genuine crossing moves
		// through zero, where adjacent offsets are small.
		seam := crossing && absOffset(prev.Offset)+absOffset(cur.Offset) > 180

		switch {
		case reversal:
			brackets = append(brackets, Bracket{
				T0: prevT, T1: t,
				F0: prev.Offset, F1: cur.Offset,
				S0: prev.Sample, S1: cur.Sample,
				Skipped: true,
			})
		case crossing && !seam:
			brackets = append(brackets, Bracket{
				T0: prevT, T1: t,
				F0: prev.Offset, F1: cur.Offset,
				S0: prev.Sample, S1: cur.Sample,
			})
		}

		prevCaptured = crossing && !seam && !reversal && cur.Offset == 0
		prevT, prev = t, cur
	}
	return brackets, nil
}

// stepAfter returns the cadence to use from a tick with the given sample:
// roughly the time the offset needs to traverse the orb at the current
// relative speed, scaled down, clamped to [minStep, Step].
func (s *Scanner) stepAfter(ev Evaluation) time.Duration {
	rel := ev.Sample.Speed - s.cfg.TargetSpeed
	if rel < 0 {
		rel = -rel
	}
	if rel == 0 || s.cfg.OrbDeg <= 0 {
		return s.cfg.Step
	}
	days := s.cfg.OrbDeg / rel * stepScale
	step := time.Duration(days * 24 * float64(time.Hour))
	if step < minStep {
		return minStep
	}
	if step > s.cfg.Step {
		return s.cfg.Step
	}
	return step
}

func absOffset(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
