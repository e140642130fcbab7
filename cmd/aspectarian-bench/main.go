// Command aspectarian-bench runs a fixed one-year scan and reports wall
// time, hit count, and sample cache behavior. Useful for eyeballing the
// effect of cadence, cache, and worker settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"aspectarian/internal/log"
	"aspectarian/pkg/ephemeris"
	"aspectarian/pkg/transit"
)

func main() {
	var (
		year      int
		workers   int
		stepHours float64
		binSec    float64
		capacity  int
		mode      string
	)
	flag.IntVar(&year, "year", time.Now().UTC().Year(), "calendar year to scan")
	flag.IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")
	flag.Float64Var(&stepHours, "step-hours", 0, "coarse cadence in hours (0 = default)")
	flag.Float64Var(&binSec, "cache-bin", 0, "cache quantization width in seconds (0 = default)")
	flag.IntVar(&capacity, "cache-capacity", 0, "cache capacity (0 = default)")
	flag.StringVar(&mode, "mode", "precise", "refinement mode: precise or preview")
	flag.Parse()

	if err := log.Init(false); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider := ephemeris.NewMeeus(ephemeris.DefaultConfig())
	engine, err := transit.New(provider, transit.Config{
		Workers:         workers,
		CacheBinSeconds: binSec,
		CacheCapacity:   capacity,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	req := transit.Request{
		Moving: []ephemeris.Body{
			ephemeris.Sun, ephemeris.Moon, ephemeris.Mercury, ephemeris.Venus,
			ephemeris.Mars, ephemeris.Jupiter, ephemeris.Saturn,
		},
		Targets: []transit.Target{
			{Name: "aries-point", Longitude: 0},
			{Name: "galactic-center", Longitude: 266.85},
		},
		Aspects:   transit.MajorAspects(),
		OrbDeg:    1,
		Start:     start,
		End:       start.AddDate(1, 0, 0),
		StepHours: stepHours,
		Mode:      transit.Mode(mode),
	}

	began := time.Now()
	hits, err := engine.Scan(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(began)

	hitsCacheHits, misses, evictions := engine.Cache().Stats()
	fmt.Printf("Scanned %d: %d hits in %v\n", year, len(hits), elapsed.Round(time.Millisecond))
	fmt.Printf("  Cache:  %d hits, %d misses (%.1f%% hit rate), %d evictions\n",
		hitsCacheHits, misses,
		100*float64(hitsCacheHits)/float64(max(hitsCacheHits+misses, 1)), evictions)
	for _, h := range hits[:min(len(hits), 5)] {
		fmt.Printf("  %s  %-7s %-12s %-15s orb %.4f°\n",
			h.Time.Format(time.RFC3339), h.MovingName, h.Aspect.Name, h.Target, h.OrbAbs)
	}
}
