// Package sampler implements the default engine behind the experiment
// scheduler: time-budgeted parallel Gibbs sampling over bounded tree blocks
// of an MRF.
//
// Workers repeatedly take exclusive ownership of a small tree of vertices
// (grown by breadth-first search under the configured size, height, width,
// and factor-size caps) and run systematic-scan Gibbs passes over it. Full
// conditionals are computed from the touching factors; each conditional is
// also accumulated into the vertex's belief store, so belief estimates are
// Rao-Blackwellized rather than sample counts. Assignments of vertices
// outside the held block are read atomically and may move concurrently.
package sampler

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"jtgibbs/internal/model"
	"jtgibbs/internal/mrf"
)

// Params configures the engine. Zero values for the caps mean unconstrained
// except TreeSize, which is clamped to at least 1.
type Params struct {
	Workers    int
	TreeSize   int
	TreeWidth  int
	FactorSize int
	TreeHeight int
	Subthreads int
	Priorities bool
	Seed       int64 // 0 seeds from the wall clock
}

// Engine is a reusable sampling engine. It holds no graph state; the graph
// is borrowed for the duration of each Sample call.
type Engine struct {
	params Params
}

// New returns an engine with the given parameters, clamping the ones that
// must be positive.
func New(p Params) *Engine {
	if p.Workers < 1 {
		p.Workers = 1
	}
	if p.TreeSize < 1 {
		p.TreeSize = 1
	}
	if p.Subthreads < 1 {
		p.Subthreads = 1
	}
	return &Engine{params: p}
}

// Sample runs tree-block Gibbs sweeps over the graph until the budget
// expires. The budget is advisory: a sweep in flight when it expires runs to
// completion. A non-positive budget is a valid call and returns immediately
// without touching the graph. Sample returns the context error if cancelled
// mid-run.
func (e *Engine) Sample(ctx context.Context, m *model.Model, g *mrf.Graph, budget time.Duration) error {
	if budget <= 0 || g.NumVertices() == 0 {
		return nil
	}
	deadline := time.Now().Add(budget)

	seed := e.params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	grp, ctx := errgroup.WithContext(ctx)
	for w := 0; w < e.params.Workers; w++ {
		rng := rand.New(rand.NewSource(seed + int64(w)))
		grp.Go(func() error {
			return e.run(ctx, m, g, deadline, rng)
		})
	}
	err := grp.Wait()
	slog.Debug("sampling pass finished",
		"workers", e.params.Workers,
		"budget", budget,
		"overrun", time.Since(deadline))
	return err
}

func (e *Engine) run(ctx context.Context, m *model.Model, g *mrf.Graph, deadline time.Time, rng *rand.Rand) error {
	var cond []float64
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		root := e.pickRoot(g, rng)
		b := growBlock(m, g, root, e.params, rng)
		if b == nil {
			continue // root held by another worker
		}
		cond = e.sweep(m, g, b, rng, cond)
		b.release(g)
	}
	return nil
}

// pickRoot chooses the next tree root: uniform by default, stalest-of-k by
// update count when priorities are enabled.
func (e *Engine) pickRoot(g *mrf.Graph, rng *rand.Rand) int {
	n := g.NumVertices()
	if !e.params.Priorities {
		return rng.Intn(n)
	}
	const k = 8
	best := rng.Intn(n)
	bestUpdates := g.Vertex(best).Updates()
	for i := 1; i < k; i++ {
		c := rng.Intn(n)
		if u := g.Vertex(c).Updates(); u < bestUpdates {
			best, bestUpdates = c, u
		}
	}
	return best
}

// sweep runs the configured number of Gibbs passes over a held block. Every
// pass resamples each member from its full conditional and records the
// member's depth in the block as its height. The conditional buffer is
// returned for reuse.
func (e *Engine) sweep(m *model.Model, g *mrf.Graph, b *block, rng *rand.Rand, cond []float64) []float64 {
	for pass := 0; pass < e.params.Subthreads; pass++ {
		for i, v := range b.vertices {
			vd := g.Vertex(v)
			cond = conditional(m, g, v, cond)
			vd.SetAsg(sampleIndex(cond, rng))
			vd.Belief.Add(cond)
			vd.IncUpdates()
			vd.Height = b.depth[i]
		}
	}
	return cond
}

// conditional fills buf with the normalized full conditional of vertex v
// given the current assignments of every other variable.
func conditional(m *model.Model, g *mrf.Graph, v int, buf []float64) []float64 {
	vd := g.Vertex(v)
	arity := vd.Variable.Arity
	if cap(buf) < arity {
		buf = make([]float64, arity)
	}
	buf = buf[:arity]
	for x := range buf {
		buf[x] = 0
	}

	for _, ref := range g.Factors(v) {
		f := &m.Factors[ref.Factor]
		base := 0
		vstride := 0
		stride := 1
		for pos, sv := range f.Scope {
			if pos == ref.Pos {
				vstride = stride
			} else {
				base += g.Vertex(sv.ID).Asg() * stride
			}
			stride *= sv.Arity
		}
		for x := 0; x < arity; x++ {
			buf[x] += f.Table[base+x*vstride]
		}
	}

	// Exponentiate with the usual max shift. If every value is impossible
	// the conditional degenerates to uniform.
	max := math.Inf(-1)
	for _, s := range buf {
		if s > max {
			max = s
		}
	}
	if math.IsInf(max, -1) {
		for x := range buf {
			buf[x] = 1 / float64(arity)
		}
		return buf
	}
	var sum float64
	for x, s := range buf {
		buf[x] = math.Exp(s - max)
		sum += buf[x]
	}
	for x := range buf {
		buf[x] /= sum
	}
	return buf
}

// sampleIndex draws an index from a normalized distribution.
func sampleIndex(p []float64, rng *rand.Rand) int {
	u := rng.Float64()
	var acc float64
	for i, w := range p {
		acc += w
		if u < acc {
			return i
		}
	}
	return len(p) - 1
}
