package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"jtgibbs/internal/model"
	"jtgibbs/internal/mrf"
	"jtgibbs/internal/render"
	"jtgibbs/internal/results"
	"jtgibbs/internal/sampler"
)

// Sampler borrows the graph for one bounded call. The budget is advisory:
// the implementation is trusted to self-terminate near it, and a
// non-positive budget is a valid call that must return promptly without
// mutating the graph.
type Sampler interface {
	Sample(ctx context.Context, m *model.Model, g *mrf.Graph, budget time.Duration) error
}

// IDSource allocates experiment ids. The production source is the results
// log itself, which derives the next id from its line count; tests
// substitute deterministic sources.
type IDSource interface {
	NextID() (uint64, error)
}

// Recorder appends one immutable record per completed checkpoint.
type Recorder interface {
	Append(rec results.Record) error
}

// Renderer writes the per-checkpoint diagnostic images.
type Renderer interface {
	Render(g *mrf.Graph, id uint64) error
}

// Deps are the scheduler's collaborators.
type Deps struct {
	Sampler  Sampler
	IDs      IDSource
	Recorder Recorder
	Renderer Renderer
}

// Summary aggregates a finished run.
type Summary struct {
	Checkpoints  int
	TotalRuntime float64
	TotalUpdates uint64
	FinalLogLik  float64
}

// Scheduler runs the checkpoint loop over one model and graph. It owns the
// graph exclusively between checkpoints and lends it to the sampler for the
// duration of each call; nothing else reads the graph during that window.
// The scheduler itself is single-threaded.
type Scheduler struct {
	cfg      Config
	model    *model.Model
	graph    *mrf.Graph
	deps     Deps
	runSoFar float64 // cumulative measured runtime, seconds
}

// New creates a scheduler. All four collaborators are required.
func New(cfg Config, m *model.Model, g *mrf.Graph, deps Deps) (*Scheduler, error) {
	if deps.Sampler == nil || deps.IDs == nil || deps.Recorder == nil || deps.Renderer == nil {
		return nil, errors.New("scheduler requires a sampler, id source, recorder, and renderer")
	}
	return &Scheduler{cfg: cfg, model: m, graph: g, deps: deps}, nil
}

// Run processes every configured target runtime, in order. For each target
// it computes the remaining budget against the time already spent (clamped
// to zero, never skipped), allocates a fresh experiment id, runs the sampler
// for the budget, then evaluates the log-likelihood, dumps beliefs, appends
// the record, and renders diagnostics. The first failure stops the run; a
// record already appended for the failing checkpoint stands.
func (s *Scheduler) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	for _, target := range s.cfg.Runtimes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := target - s.runSoFar
		if remaining < 0 {
			remaining = 0
		}

		// The id is a point-in-time line count, not a reservation; a
		// concurrent run against the same log can claim the same id.
		id, err := s.deps.IDs.NextID()
		if err != nil {
			return nil, fmt.Errorf("allocating experiment id: %w", err)
		}

		slog.Info("starting checkpoint",
			"experiment", id,
			"model", s.cfg.ModelPath,
			"runtime", target,
			"budget", remaining,
			"treesize", s.cfg.TreeSize,
			"treewidth", s.cfg.TreeWidth,
			"treeheight", s.cfg.TreeHeight,
			"factorsize", s.cfg.FactorSize,
			"subthreads", s.cfg.Subthreads,
			"priorities", s.cfg.Priorities,
			"workers", s.cfg.Workers)

		start := time.Now()
		budget := time.Duration(remaining * float64(time.Second))
		if err := s.deps.Sampler.Sample(ctx, s.model, s.graph, budget); err != nil {
			return nil, fmt.Errorf("sampling experiment %d: %w", id, err)
		}
		actual := time.Since(start).Seconds()
		s.runSoFar += actual

		loglik := mrf.UnnormalizedLogLikelihood(s.graph, s.model.Factors)
		totalUpdates := s.graph.TotalUpdates()

		slog.Info("checkpoint sampled",
			"experiment", id,
			"local_runtime", actual,
			"total_runtime", s.runSoFar,
			"updates", totalUpdates,
			"loglik", loglik)

		beliefsPath := filepath.Join(s.cfg.OutDir, render.Filename("beliefs", id, ".tsv"))
		if err := mrf.SaveBeliefs(s.graph, beliefsPath); err != nil {
			return nil, fmt.Errorf("saving beliefs for experiment %d: %w", id, err)
		}

		rec := results.Record{
			ID:            id,
			Workers:       s.cfg.Workers,
			RunSoFar:      s.runSoFar,
			Runtime:       target,
			TreeSize:      s.cfg.TreeSize,
			TreeWidth:     s.cfg.TreeWidth,
			FactorSize:    s.cfg.FactorSize,
			TreeHeight:    s.cfg.TreeHeight,
			Subthreads:    s.cfg.Subthreads,
			Priorities:    s.cfg.Priorities,
			ActualRuntime: actual,
			TotalUpdates:  totalUpdates,
			LogLik:        loglik,
		}
		if err := s.deps.Recorder.Append(rec); err != nil {
			return nil, fmt.Errorf("recording experiment %d: %w", id, err)
		}

		if err := s.deps.Renderer.Render(s.graph, id); err != nil {
			return nil, fmt.Errorf("rendering experiment %d: %w", id, err)
		}

		summary.Checkpoints++
		summary.TotalRuntime = s.runSoFar
		summary.TotalUpdates = totalUpdates
		summary.FinalLogLik = loglik
	}

	return summary, nil
}

// RunFromConfig loads the model, builds the graph, wires the production
// collaborators, and runs the checkpoint loop.
func RunFromConfig(ctx context.Context, cfg Config) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	m, err := model.LoadAlchemy(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	slog.Info("model loaded", "model", cfg.ModelPath, "variables", len(m.Variables), "factors", len(m.Factors))

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := mrf.Build(m, seed)
	slog.Info("mrf built", "vertices", g.NumVertices())

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	log := results.NewLog(cfg.ResultsPath)
	engine := sampler.New(sampler.Params{
		Workers:    cfg.Workers,
		TreeSize:   cfg.TreeSize,
		TreeWidth:  cfg.TreeWidth,
		FactorSize: cfg.FactorSize,
		TreeHeight: cfg.TreeHeight,
		Subthreads: cfg.Subthreads,
		Priorities: cfg.Priorities,
		Seed:       seed,
	})

	sched, err := New(cfg, m, g, Deps{
		Sampler:  engine,
		IDs:      log,
		Recorder: log,
		Renderer: render.Diagnostics{Dir: cfg.OutDir},
	})
	if err != nil {
		return nil, err
	}
	return sched.Run(ctx)
}
