package transit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats/scalar"

	"aspectarian/internal/log"
	"aspectarian/pkg/ephemeris"
	"aspectarian/pkg/samplecache"
)

// ErrInvalidConfig is returned for structurally invalid scan requests:
// empty body, target, or aspect lists, inverted windows, or negative
// numeric parameters. It is raised eagerly, before any sampling begins.
var ErrInvalidConfig = errors.New("invalid scan configuration")

// Mode selects a refinement preset.
type Mode string

const (
	// ModePreview trades accuracy for speed: loose tolerance and a small
	// iteration budget, for coarse previews.
	ModePreview Mode = "preview"
	// ModePrecise is the default: tight tolerance and a budget large
	// enough that the refiner essentially always converges.
	ModePrecise Mode = "precise"
)

// Refinement presets per mode.
const (
	previewTolSeconds = 60.0
	previewMaxIter    = 16
	preciseTolSeconds = 1.0
	preciseMaxIter    = 64
)

// DefaultPartileDeg is the partile threshold: 10 arcminutes.
const DefaultPartileDeg = 10.0 / 60

// dedupeRounding groups hits that refined to effectively the same instant.
const dedupeRounding = time.Minute

// Request describes one scan. Zero values select defaults where a default
// exists; negative values are rejected.
type Request struct {
	Moving  []ephemeris.Body
	Targets []Target
	Aspects []Aspect

	// OrbDeg is the allowed orb in degrees. Zero demands exactness.
	OrbDeg float64

	Start time.Time
	End   time.Time

	// StepHours is the coarse scan cadence; zero selects DefaultStepHours.
	StepHours float64

	// Mode selects the refinement preset; empty means ModePrecise.
	Mode Mode

	// TolSeconds and MaxIterations override the mode preset when nonzero.
	TolSeconds    float64
	MaxIterations int
}

// Config tunes an Engine.
type Config struct {
	// Workers bounds the chunk fan-out; zero means GOMAXPROCS.
	Workers int
	// ChunkHours splits long windows into independently scanned chunks;
	// zero selects 30 days.
	ChunkHours float64
	// PartileDeg overrides the partile threshold when nonzero.
	PartileDeg float64
	// CacheBinSeconds and CacheCapacity configure the sample cache; zero
	// selects the samplecache defaults. Neither affects results.
	CacheBinSeconds float64
	CacheCapacity   int
	Logger          *zap.SugaredLogger
}

// Engine drives scans over one provider. Engines are safe for concurrent
// use; scans share only the idempotent sample cache.
type Engine struct {
	provider ephemeris.Provider
	cache    *samplecache.Cache
	cfg      Config
	logger   *zap.SugaredLogger
}

// New builds an engine over a provider.
func New(p ephemeris.Provider, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidConfig)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.ChunkHours <= 0 {
		cfg.ChunkHours = 30 * 24
	}
	if cfg.PartileDeg <= 0 {
		cfg.PartileDeg = DefaultPartileDeg
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetSugaredLogger()
	}
	return &Engine{
		provider: p,
		cache:    samplecache.New(cfg.CacheBinSeconds, cfg.CacheCapacity),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Cache exposes the engine's sample cache for instrumentation.
func (e *Engine) Cache() *samplecache.Cache { return e.cache }

// task is one unit of parallel work: a single (moving, target, aspect
// instance) triple over one time chunk.
type task struct {
	moving ephemeris.Body
	target Target
	aspect Aspect   // canonical aspect reported on hits
	angle  float64  // scanned angle; the mirror of Aspect.Angle on the far face
	start  time.Time
	end    time.Time
}

// Scan runs one scan request and returns the ordered hit list. Results are
// deterministic: the same provider, request, and configuration always yield
// the same output, regardless of worker count. Cancellation is honored
// between chunks; a chunk in flight runs to completion.
func (e *Engine) Scan(ctx context.Context, req Request) ([]AspectHit, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	req = withDefaults(req)

	runID := uuid.NewString()[:8]
	e.logger.Debugw("scan starting",
		"run", runID,
		"moving", len(req.Moving),
		"targets", len(req.Targets),
		"aspects", len(req.Aspects),
		"window_days", req.End.Sub(req.Start).Hours()/24,
		"mode", req.Mode,
	)

	provider := samplecache.Wrap(e.provider, e.cache)

	if req.Start.Equal(req.End) {
		return e.scanInstant(provider, req)
	}

	tasks := e.buildTasks(req)

	var (
		mu   sync.Mutex
		hits []AspectHit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for _, tk := range tasks {
		if err := gctx.Err(); err != nil {
			break
		}
		tk := tk
		g.Go(func() error {
			found, err := e.scanTask(provider, req, tk, runID)
			if err != nil {
				return err
			}
			mu.Lock()
			hits = append(hits, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits = dedupe(hits)
	sortHits(hits)

	e.logger.Debugw("scan complete", "run", runID, "hits", len(hits))
	return hits, nil
}

// scanTask scans one chunk of one triple and refines every usable bracket.
func (e *Engine) scanTask(p ephemeris.Provider, req Request, tk task, runID string) ([]AspectHit, error) {
	f := NewOffsetFunc(p, tk.moving, tk.target, tk.angle)
	sc := NewScanner(f, ScanConfig{
		Step:        time.Duration(req.StepHours * float64(time.Hour)),
		OrbDeg:      req.OrbDeg,
		TargetSpeed: tk.target.Speed,
	})

	brackets, err := sc.Scan(tk.start, tk.end)
	if err != nil {
		return nil, fmt.Errorf("scanning %s-%s %s: %w", tk.moving, tk.target.Name, tk.aspect.Name, err)
	}

	var hits []AspectHit
	for _, br := range brackets {
		if br.Skipped {
			e.logger.Debugw("retrograde window skipped",
				"run", runID,
				"moving", tk.moving.String(),
				"target", tk.target.Name,
				"aspect", tk.aspect.Name,
				"from", br.T0,
				"to", br.T1,
			)
			continue
		}

		res, err := Refine(f, br, req.TolSeconds, req.MaxIterations)
		if err != nil {
			return nil, fmt.Errorf("refining %s-%s %s: %w", tk.moving, tk.target.Name, tk.aspect.Name, err)
		}
		switch res.Status {
		case RefineBadBracket:
			continue
		case RefineMaxIter:
			e.logger.Warnw("refiner exhausted iteration budget",
				"run", runID,
				"moving", tk.moving.String(),
				"target", tk.target.Name,
				"aspect", tk.aspect.Name,
				"achieved_seconds", res.AchievedSeconds,
			)
		}

		hit, ok, err := e.assemble(f, req, tk, res)
		if err != nil {
			return nil, err
		}
		if ok {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// assemble evaluates the offset at the refined instant and builds the hit
// if it falls inside the orb allowance.
func (e *Engine) assemble(f OffsetFunc, req Request, tk task, res RefineResult) (AspectHit, bool, error) {
	ev, err := f(res.Time)
	if err != nil {
		return AspectHit{}, false, err
	}
	orbAbs := math.Abs(ev.Offset)
	if orbAbs > req.OrbDeg {
		return AspectHit{}, false, nil
	}

	sep := ev.Offset + tk.angle // separation reconstructed on this face
	cls := Classify(sep, tk.angle, ev.Sample.Speed, tk.target.Speed)

	return AspectHit{
		Time:            res.Time.UTC(),
		Moving:          tk.moving,
		MovingName:      tk.moving.String(),
		Target:          tk.target.Name,
		Aspect:          tk.aspect,
		MovingLongitude: ev.Sample.Longitude,
		TargetLongitude: tk.target.Longitude,
		OrbAbs:          orbAbs,
		OrbAllow:        req.OrbDeg,
		Motion:          cls.Motion,
		Retrograde:      cls.Retrograde,
		Partile:         orbAbs <= math.Min(req.OrbDeg, e.cfg.PartileDeg),
	}, true, nil
}

// scanInstant handles the degenerate zero-length window: a single
// evaluation per triple, a hit wherever the offset already sits inside the
// orb.
func (e *Engine) scanInstant(p ephemeris.Provider, req Request) ([]AspectHit, error) {
	var hits []AspectHit
	for _, tk := range e.buildTasks(req) {
		f := NewOffsetFunc(p, tk.moving, tk.target, tk.angle)
		hit, ok, err := e.assemble(f, req, tk, RefineResult{Time: req.Start, Status: RefineOK})
		if err != nil {
			return nil, err
		}
		if ok {
			hits = append(hits, hit)
		}
	}
	hits = dedupe(hits)
	sortHits(hits)
	return hits, nil
}

// buildTasks expands the request into parallel work units: every triple,
// both faces of every non-axial aspect, and one entry per time chunk.
// Chunks overlap by one coarse step so a bracket spanning a boundary is
// seen by at least one side; dedupe absorbs the doubles.
func (e *Engine) buildTasks(req Request) []task {
	chunk := time.Duration(e.cfg.ChunkHours * float64(time.Hour))
	overlap := time.Duration(req.StepHours * float64(time.Hour))

	var tasks []task
	for _, moving := range req.Moving {
		for _, target := range req.Targets {
			for _, asp := range req.Aspects {
				for _, angle := range aspectFaces(asp.Angle) {
					for start := req.Start; start.Before(req.End) || start.Equal(req.End); start = start.Add(chunk) {
						end := start.Add(chunk + overlap)
						if end.After(req.End) {
							end = req.End
						}
						tasks = append(tasks, task{
							moving: moving,
							target: target,
							aspect: asp,
							angle:  angle,
							start:  start,
							end:    end,
						})
						if start.Equal(req.End) {
							break
						}
					}
				}
			}
		}
	}
	return tasks
}

// aspectFaces returns the separation angles at which an aspect is exact:
// the angle itself and its mirror across the conjunction axis. Conjunction
// and opposition are their own mirrors.
func aspectFaces(angle float64) []float64 {
	mirror := 360 - angle
	if mirror == angle || mirror == 360 {
		return []float64{angle}
	}
	return []float64{angle, mirror}
}

// dedupe collapses hits for the same triple whose refined instants round to
// the same minute, keeping the tighter orb. Overlapping chunks, adjacent
// brackets sharing an exact-zero tick, and the two faces of an axial
// configuration all reduce to a single event here.
func dedupe(hits []AspectHit) []AspectHit {
	type key struct {
		moving ephemeris.Body
		target string
		angle  float64
		minute int64
	}
	best := make(map[key]AspectHit, len(hits))
	for _, h := range hits {
		k := key{
			moving: h.Moving,
			target: h.Target,
			angle:  h.Aspect.Angle,
			minute: h.Time.Round(dedupeRounding).Unix(),
		}
		prev, seen := best[k]
		if !seen || h.OrbAbs < prev.OrbAbs ||
			(scalar.EqualWithinAbs(h.OrbAbs, prev.OrbAbs, 1e-12) && h.Time.Before(prev.Time)) {
			best[k] = h
		}
	}
	out := make([]AspectHit, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	return out
}

// sortHits orders hits deterministically: timestamp, then moving body,
// target, and aspect angle.
func sortHits(hits []AspectHit) {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		if a.Moving != b.Moving {
			return a.Moving < b.Moving
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Aspect.Angle < b.Aspect.Angle
	})
}

// validate rejects structurally invalid requests before any sampling.
func validate(req Request) error {
	switch {
	case len(req.Moving) == 0:
		return fmt.Errorf("%w: no moving bodies", ErrInvalidConfig)
	case len(req.Targets) == 0:
		return fmt.Errorf("%w: no targets", ErrInvalidConfig)
	case len(req.Aspects) == 0:
		return fmt.Errorf("%w: no aspects", ErrInvalidConfig)
	case req.Start.IsZero() || req.End.IsZero():
		return fmt.Errorf("%w: zero start or end", ErrInvalidConfig)
	case req.End.Before(req.Start):
		return fmt.Errorf("%w: end before start", ErrInvalidConfig)
	case req.OrbDeg < 0:
		return fmt.Errorf("%w: negative orb", ErrInvalidConfig)
	case req.StepHours < 0:
		return fmt.Errorf("%w: negative step", ErrInvalidConfig)
	case req.TolSeconds < 0:
		return fmt.Errorf("%w: negative tolerance", ErrInvalidConfig)
	case req.MaxIterations < 0:
		return fmt.Errorf("%w: negative iteration budget", ErrInvalidConfig)
	case req.Mode != "" && req.Mode != ModePreview && req.Mode != ModePrecise:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, req.Mode)
	}
	for _, a := range req.Aspects {
		if a.Angle < 0 || a.Angle > 180 {
			return fmt.Errorf("%w: aspect angle %g outside [0, 180]", ErrInvalidConfig, a.Angle)
		}
	}
	return nil
}

// withDefaults fills unset request fields from the mode preset.
func withDefaults(req Request) Request {
	if req.Mode == "" {
		req.Mode = ModePrecise
	}
	if req.StepHours == 0 {
		req.StepHours = DefaultStepHours
	}
	if req.TolSeconds == 0 {
		if req.Mode == ModePreview {
			req.TolSeconds = previewTolSeconds
		} else {
			req.TolSeconds = preciseTolSeconds
		}
	}
	if req.MaxIterations == 0 {
		if req.Mode == ModePreview {
			req.MaxIterations = previewMaxIter
		} else {
			req.MaxIterations = preciseMaxIter
		}
	}
	return req
}
