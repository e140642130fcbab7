package samplecache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aspectarian/pkg/astro"
	"aspectarian/pkg/ephemeris"
)

// countingProvider is a deterministic fake that records how many times it is
// asked to compute.
type countingProvider struct {
	calls atomic.Int64
}

func (p *countingProvider) Name() string      { return "counting" }
func (p *countingProvider) Signature() string { return "counting/v1" }

func (p *countingProvider) Sample(body ephemeris.Body, t time.Time) (ephemeris.Sample, error) {
	p.calls.Add(1)
	tp := astro.NewTimePair(t)
	return ephemeris.Sample{
		Body:      body,
		Time:      tp,
		Longitude: astro.Norm360(float64(body)*30 + tp.JD),
		Speed:     1,
	}, nil
}

func TestQuantization(t *testing.T) {
	c := New(1.0, 16)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		a, b    time.Time
		sameBin bool
	}{
		{"same instant", base, base, true},
		{"within one second", base, base.Add(400 * time.Millisecond), true},
		{"next second", base, base.Add(1100 * time.Millisecond), false},
		{"previous second", base, base.Add(-200 * time.Millisecond), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Bin(tt.a) == c.Bin(tt.b); got != tt.sameBin {
				t.Errorf("same bin = %v, expected %v (bins %d, %d)", got, tt.sameBin, c.Bin(tt.a), c.Bin(tt.b))
			}
		})
	}
}

func TestCacheTransparency(t *testing.T) {
	direct := &countingProvider{}
	cachedInner := &countingProvider{}
	cached := Wrap(cachedInner, New(1.0, 64))

	instant := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		want, err := direct.Sample(ephemeris.Mars, instant)
		if err != nil {
			t.Fatal(err)
		}
		got, err := cached.Sample(ephemeris.Mars, instant)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("cached sample %+v differs from direct %+v", got, want)
		}
	}
	if n := cachedInner.calls.Load(); n != 1 {
		t.Errorf("inner provider called %d times, expected 1", n)
	}
}

func TestLRUEviction(t *testing.T) {
	p := &countingProvider{}
	c := New(1.0, 3)
	cached := Wrap(p, c)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

	// Fill: bins 0, 1, 2.
	for sec := 0; sec < 3; sec++ {
		if _, err := cached.Sample(ephemeris.Sun, at(sec)); err != nil {
			t.Fatal(err)
		}
	}
	// Touch bin 0 so bin 1 becomes least recently used.
	if _, err := cached.Sample(ephemeris.Sun, at(0)); err != nil {
		t.Fatal(err)
	}
	// Insert bin 3; bin 1 must be evicted.
	if _, err := cached.Sample(ephemeris.Sun, at(3)); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d, expected capacity 3", c.Len())
	}

	before := p.calls.Load()
	if _, err := cached.Sample(ephemeris.Sun, at(1)); err != nil {
		t.Fatal(err)
	}
	if p.calls.Load() != before+1 {
		t.Error("bin 1 should have been evicted and recomputed")
	}

	before = p.calls.Load()
	if _, err := cached.Sample(ephemeris.Sun, at(0)); err != nil {
		t.Fatal(err)
	}
	if p.calls.Load() != before {
		t.Error("bin 0 should still be cached")
	}
}

func TestKeySeparation(t *testing.T) {
	p := &countingProvider{}
	c := New(1.0, 64)
	cached := Wrap(p, c)

	instant := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := cached.Sample(ephemeris.Sun, instant); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Sample(ephemeris.Moon, instant); err != nil {
		t.Fatal(err)
	}
	if n := p.calls.Load(); n != 2 {
		t.Errorf("distinct bodies share an entry: %d provider calls, expected 2", n)
	}
}

func TestConcurrentAccess(t *testing.T) {
	p := &countingProvider{}
	cached := Wrap(p, New(1.0, 128))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sec := 0; sec < 50; sec++ {
				if _, err := cached.Sample(ephemeris.Venus, base.Add(time.Duration(sec)*time.Second)); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	// Duplicated work under racing misses is fine; incorrect results are not.
	want, _ := (&countingProvider{}).Sample(ephemeris.Venus, base)
	got, err := cached.Sample(ephemeris.Venus, base)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("sample %+v differs from recomputed %+v", got, want)
	}
}

func TestStats(t *testing.T) {
	p := &countingProvider{}
	c := New(1.0, 8)
	cached := Wrap(p, c)
	instant := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		if _, err := cached.Sample(ephemeris.Sun, instant); err != nil {
			t.Fatal(err)
		}
	}
	hits, misses, _ := c.Stats()
	if hits != 3 || misses != 1 {
		t.Errorf("hits=%d misses=%d, expected 3/1", hits, misses)
	}
}

func ExampleCache_Bin() {
	c := New(1.0, 8)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fmt.Println(c.Bin(t0.Add(250*time.Millisecond)) == c.Bin(t0.Add(750*time.Millisecond)))
	// Output: true
}
