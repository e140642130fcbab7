// Command aspectarian scans a time window for transiting aspects against a
// set of fixed reference points and prints each hit as a JSON line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"aspectarian/internal/log"
	"aspectarian/pkg/ephemeris"
	"aspectarian/pkg/transit"
)

func main() {
	var (
		bodiesStr  string
		pointsStr  string
		natalStr   string
		natalPts   string
		aspectsStr string
		startStr   string
		endStr     string
		orb        float64
		stepHours  float64
		mode       string
		tolSec     float64
		maxIter    int
		accuracy   string
		debug      bool
	)
	flag.StringVar(&bodiesStr, "bodies", "sun,moon,mercury,venus,mars,jupiter,saturn", "comma-separated moving bodies")
	flag.StringVar(&pointsStr, "points", "", "fixed reference points as name:longitude pairs (e.g. asc:114.2,mc:23.5)")
	flag.StringVar(&natalStr, "natal", "", "natal instant (RFC3339); resolves -natal-bodies into reference points")
	flag.StringVar(&natalPts, "natal-bodies", "", "comma-separated bodies to resolve at the natal instant")
	flag.StringVar(&aspectsStr, "aspects", "0,60,90,120,180", "comma-separated aspect angles in degrees")
	flag.StringVar(&startStr, "start", "", "window start (RFC3339), required")
	flag.StringVar(&endStr, "end", "", "window end (RFC3339), required")
	flag.Float64Var(&orb, "orb", 1.0, "allowed orb in degrees")
	flag.Float64Var(&stepHours, "step-hours", 0, "coarse scan cadence in hours (0 = default)")
	flag.StringVar(&mode, "mode", "precise", "refinement mode: precise or preview")
	flag.Float64Var(&tolSec, "tolerance", 0, "refinement tolerance in seconds (0 = mode default)")
	flag.IntVar(&maxIter, "max-iterations", 0, "refinement iteration budget (0 = mode default)")
	flag.StringVar(&accuracy, "accuracy", "high", "ephemeris accuracy: high or low")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	if err := log.Init(debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(bodiesStr, pointsStr, natalStr, natalPts, aspectsStr, startStr, endStr,
		orb, stepHours, mode, tolSec, maxIter, accuracy); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(bodiesStr, pointsStr, natalStr, natalPts, aspectsStr, startStr, endStr string,
	orb, stepHours float64, mode string, tolSec float64, maxIter int, accuracy string) error {

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return fmt.Errorf("parsing -start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return fmt.Errorf("parsing -end: %w", err)
	}

	moving, err := parseBodies(bodiesStr)
	if err != nil {
		return err
	}
	aspects, err := parseAspects(aspectsStr)
	if err != nil {
		return err
	}

	provider := ephemeris.NewMeeus(ephemeris.Config{Accuracy: ephemeris.Accuracy(accuracy)})

	targets, err := parsePoints(pointsStr)
	if err != nil {
		return err
	}
	if natalStr != "" && natalPts != "" {
		natal, err := time.Parse(time.RFC3339, natalStr)
		if err != nil {
			return fmt.Errorf("parsing -natal: %w", err)
		}
		natalBodies, err := parseBodies(natalPts)
		if err != nil {
			return err
		}
		for _, b := range natalBodies {
			tgt, err := transit.TargetFromBody(provider, b, natal)
			if err != nil {
				return err
			}
			tgt.Name = "natal-" + tgt.Name
			targets = append(targets, tgt)
		}
	}
	if len(targets) == 0 {
		return fmt.Errorf("no reference points: use -points or -natal with -natal-bodies")
	}

	engine, err := transit.New(provider, transit.Config{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hits, err := engine.Scan(ctx, transit.Request{
		Moving:        moving,
		Targets:       targets,
		Aspects:       aspects,
		OrbDeg:        orb,
		Start:         start,
		End:           end,
		StepHours:     stepHours,
		Mode:          transit.Mode(mode),
		TolSeconds:    tolSec,
		MaxIterations: maxIter,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, h := range hits {
		if err := enc.Encode(h); err != nil {
			return err
		}
	}
	return nil
}

func parseBodies(s string) ([]ephemeris.Body, error) {
	var out []ephemeris.Body
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		b, err := ephemeris.ParseBody(part)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func parseAspects(s string) ([]transit.Aspect, error) {
	var out []transit.Aspect
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		angle, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing aspect angle %q: %w", part, err)
		}
		out = append(out, transit.AspectForAngle(angle))
	}
	return out, nil
}

func parsePoints(s string) ([]transit.Target, error) {
	var out []transit.Target
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		name, lonStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("point %q is not name:longitude", part)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing longitude of point %q: %w", name, err)
		}
		out = append(out, transit.Target{Name: name, Longitude: lon})
	}
	return out, nil
}
