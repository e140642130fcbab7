package transit

import (
	"errors"
	"math"
	"testing"
	"time"
)

// sineOffset is the canonical refiner fixture: sin(2π(d-0.25)) with d in
// days after the test epoch, root at d = 0.25 exactly.
func sineOffset(t time.Time) (Evaluation, error) {
	d := t.Sub(testEpoch).Seconds() / 86400
	return Evaluation{Offset: math.Sin(2 * math.Pi * (d - 0.25))}, nil
}

func evalAt(t *testing.T, f OffsetFunc, at time.Time) float64 {
	t.Helper()
	ev, err := f(at)
	if err != nil {
		t.Fatal(err)
	}
	return ev.Offset
}

func bracketOf(t *testing.T, f OffsetFunc, d0, d1 float64) Bracket {
	t.Helper()
	t0, t1 := daysAfterEpoch(d0), daysAfterEpoch(d1)
	return Bracket{T0: t0, T1: t1, F0: evalAt(t, f, t0), F1: evalAt(t, f, t1)}
}

func TestRefineSineRoot(t *testing.T) {
	br := bracketOf(t, sineOffset, 0.24, 0.26)

	res, err := Refine(sineOffset, br, 1.0, 64)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != RefineOK {
		t.Fatalf("status = %s, expected ok", res.Status)
	}
	trueRoot := daysAfterEpoch(0.25)
	offSeconds := math.Abs(res.Time.Sub(trueRoot).Seconds())
	// 1e-6 day is 86.4 ms
	if offSeconds > 0.0864 {
		t.Errorf("root at %v, off by %.6fs, expected within 1e-6 day", res.Time, offSeconds)
	}
	if res.Iterations == 0 {
		t.Error("expected at least one iteration for a non-degenerate bracket")
	}
}

func TestRefineConvergesWithinTolerance(t *testing.T) {
	// Monotonic with an off-center root: tests the hybrid against a bracket
	// the plain secant would crawl along.
	f := func(tm time.Time) (Evaluation, error) {
		d := tm.Sub(testEpoch).Seconds() / 86400
		x := d - 3
		return Evaluation{Offset: x*x*x + 0.05*x}, nil
	}
	br := bracketOf(t, f, 1, 9)

	for _, tol := range []float64{60, 1, 0.01} {
		res, err := Refine(f, br, tol, 64)
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != RefineOK {
			t.Fatalf("tol=%v: status = %s, expected ok", tol, res.Status)
		}
		off := math.Abs(res.Time.Sub(daysAfterEpoch(3)).Seconds())
		if off > tol {
			t.Errorf("tol=%v: root off by %.4fs", tol, off)
		}
		if res.AchievedSeconds > tol {
			t.Errorf("tol=%v: achieved %.4fs, wider than tolerance", tol, res.AchievedSeconds)
		}
	}
}

func TestRefineZeroStartOffset(t *testing.T) {
	t0, t1 := daysAfterEpoch(0), daysAfterEpoch(1)
	br := Bracket{T0: t0, T1: t1, F0: 0, F1: 5}

	res, err := Refine(sineOffset, br, 1.0, 64)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != RefineOK {
		t.Errorf("status = %s, expected ok", res.Status)
	}
	if !res.Time.Equal(t0) {
		t.Errorf("time = %v, expected the start instant %v", res.Time, t0)
	}
	if res.Iterations != 0 {
		t.Errorf("iterations = %d, expected 0", res.Iterations)
	}
}

func TestRefineZeroEndOffset(t *testing.T) {
	t0, t1 := daysAfterEpoch(0), daysAfterEpoch(1)
	br := Bracket{T0: t0, T1: t1, F0: -3, F1: 0}

	res, err := Refine(sineOffset, br, 1.0, 64)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != RefineOK || !res.Time.Equal(t1) || res.Iterations != 0 {
		t.Errorf("got %+v, expected ok at end instant with 0 iterations", res)
	}
}

func TestRefineBadBracket(t *testing.T) {
	t0, t1 := daysAfterEpoch(0), daysAfterEpoch(1)
	br := Bracket{T0: t0, T1: t1, F0: 2, F1: 5}

	res, err := Refine(sineOffset, br, 1.0, 64)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != RefineBadBracket {
		t.Errorf("status = %s, expected bad_bracket", res.Status)
	}
	if res.Iterations != 0 {
		t.Errorf("iterations = %d, expected 0", res.Iterations)
	}
	if !res.Time.Equal(midpoint(t0, t1)) {
		t.Errorf("time = %v, expected bracket midpoint", res.Time)
	}
}

func TestRefineMaxIterations(t *testing.T) {
	br := bracketOf(t, sineOffset, 0.0, 0.49)

	res, err := Refine(sineOffset, br, 1e-9, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != RefineMaxIter {
		t.Fatalf("status = %s, expected max_iter", res.Status)
	}
	if res.Iterations != 3 {
		t.Errorf("iterations = %d, expected the full budget of 3", res.Iterations)
	}
	if res.AchievedSeconds <= 0 {
		t.Error("achieved width should be reported on max_iter")
	}
	// The estimate must still sit inside the original bracket.
	if res.Time.Before(br.T0) || res.Time.After(br.T1) {
		t.Errorf("estimate %v escaped the bracket", res.Time)
	}
}

func TestRefinePropagatesProviderError(t *testing.T) {
	boom := errors.New("ephemeris offline")
	f := func(time.Time) (Evaluation, error) { return Evaluation{}, boom }
	br := Bracket{T0: daysAfterEpoch(0), T1: daysAfterEpoch(1), F0: -1, F1: 1}

	_, err := Refine(f, br, 1.0, 64)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, expected the provider failure", err)
	}
}

func TestRefineBracketInvariantHolds(t *testing.T) {
	// The refined instant of a monotonic function must always land between
	// the original endpoints, whatever tolerance or budget is used.
	f := func(tm time.Time) (Evaluation, error) {
		d := tm.Sub(testEpoch).Seconds() / 86400
		return Evaluation{Offset: math.Tanh(d - 4.7)}, nil
	}
	br := bracketOf(t, f, 0, 10)

	for _, budget := range []int{1, 2, 5, 50} {
		res, err := Refine(f, br, 0.5, budget)
		if err != nil {
			t.Fatal(err)
		}
		if res.Time.Before(br.T0) || res.Time.After(br.T1) {
			t.Errorf("budget=%d: estimate %v outside bracket", budget, res.Time)
		}
	}
}
