package transit

import (
	"math"
	"time"
)

// zeroOffsetEps is the offset magnitude, in degrees, below which a candidate
// counts as an exact root. Well under a microarcsecond; no ephemeris series
// is meaningful at that scale.
const zeroOffsetEps = 1e-12

// Refine converges on the crossing instant inside a bracket using a hybrid
// secant/bisection search. Each iteration tries a secant step from the
// current endpoints and falls back to the midpoint whenever the secant
// estimate leaves the bracket or stalls against an endpoint, so the
// opposite-sign invariant is never lost. The search terminates when the
// bracket width is within tolSeconds (status ok) or the iteration budget is
// spent (status max_iter). A pair that does not straddle a root returns the
// midpoint with status bad_bracket and zero iterations.
//
// The only error returned is a provider failure from f; every numerical
// near-miss degrades to a status instead.
func Refine(f OffsetFunc, br Bracket, tolSeconds float64, maxIter int) (RefineResult, error) {
	t0, t1 := br.T0, br.T1
	f0, f1 := br.F0, br.F1

	if math.Abs(f0) <= zeroOffsetEps {
		return RefineResult{Time: t0, Method: "none", Status: RefineOK}, nil
	}
	if math.Abs(f1) <= zeroOffsetEps {
		return RefineResult{Time: t1, Method: "none", Status: RefineOK}, nil
	}
	if (f0 < 0) == (f1 < 0) {
		return RefineResult{
			Time:            midpoint(t0, t1),
			Method:          "none",
			AchievedSeconds: t1.Sub(t0).Seconds(),
			Status:          RefineBadBracket,
		}, nil
	}

	method := "bisection"
	secantSteps := 0
	widthTwoAgo := math.Inf(1)
	widthOneAgo := math.Inf(1)
	for i := 0; i < maxIter; i++ {
		width := t1.Sub(t0).Seconds()
		if width <= tolSeconds {
			if secantSteps > 0 {
				method = "secant"
			}
			return RefineResult{
				Time:            midpoint(t0, t1),
				Iterations:      i,
				Method:          method,
				AchievedSeconds: width,
				Status:          RefineOK,
			}, nil
		}

		var tc time.Time
		var secant bool
		if width > widthTwoAgo/2 {
			// Secant steps have not halved the bracket over two
			// iterations; force a bisection so convergence stays at
			// least geometric.
			tc = midpoint(t0, t1)
		} else {
			tc, secant = secantCandidate(t0, t1, f0, f1)
		}
		if secant {
			secantSteps++
		}
		widthTwoAgo, widthOneAgo = widthOneAgo, width

		ev, err := f(tc)
		if err != nil {
			return RefineResult{}, err
		}
		fc := ev.Offset

		if math.Abs(fc) <= zeroOffsetEps {
			if secant {
				method = "secant"
			}
			return RefineResult{
				Time:            tc,
				Iterations:      i + 1,
				Method:          method,
				AchievedSeconds: 0,
				Status:          RefineOK,
			}, nil
		}

		if (fc < 0) == (f0 < 0) {
			t0, f0 = tc, fc
		} else {
			t1, f1 = tc, fc
		}
	}

	if secantSteps > 0 {
		method = "secant"
	}
	return RefineResult{
		Time:            midpoint(t0, t1),
		Iterations:      maxIter,
		Method:          method,
		AchievedSeconds: t1.Sub(t0).Seconds(),
		Status:          RefineMaxIter,
	}, nil
}

// secantCandidate proposes the next evaluation point. It reports whether the
// secant estimate was usable; otherwise the midpoint is returned. The secant
// step is rejected when the denominator underflows, when the estimate falls
// outside the open bracket, or when it hugs an endpoint so closely that
// repeated one-sided steps would stall (the classic false-position failure).
func secantCandidate(t0, t1 time.Time, f0, f1 float64) (time.Time, bool) {
	width := t1.Sub(t0).Seconds()
	denom := f1 - f0
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return midpoint(t0, t1), false
	}
	backSeconds := f1 * width / denom
	if math.IsNaN(backSeconds) || math.IsInf(backSeconds, 0) {
		return midpoint(t0, t1), false
	}
	tc := t1.Add(-secondsToDuration(backSeconds))

	guard := width * 1e-3
	if tc.Sub(t0).Seconds() < guard || t1.Sub(tc).Seconds() < guard {
		return midpoint(t0, t1), false
	}
	return tc, true
}

func midpoint(a, b time.Time) time.Time {
	return a.Add(b.Sub(a) / 2)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
