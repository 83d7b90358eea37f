// Package mrf provides the pairwise Markov-random-field view of a
// factorized model: one vertex per variable, adjacency between variables
// that share a factor, and the mutable per-vertex sampling state.
package mrf

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"jtgibbs/internal/model"
)

// FactorRef locates one factor touching a vertex: the factor's index in the
// model and the position of the vertex's variable in that factor's scope.
type FactorRef struct {
	Factor int
	Pos    int
}

// VertexData is the mutable sampling state attached to one variable. The
// assignment and update count are atomics because sampler workers read them
// for vertices they do not hold; everything else is written only while the
// vertex is held.
type VertexData struct {
	Variable model.Variable
	Belief   Belief
	Height   int

	asg     atomic.Int32
	updates atomic.Uint64
	mu      sync.Mutex
}

// Asg returns the vertex's current discrete assignment.
func (v *VertexData) Asg() int { return int(v.asg.Load()) }

// SetAsg stores a new assignment.
func (v *VertexData) SetAsg(x int) { v.asg.Store(int32(x)) }

// Updates returns how many times this vertex has been resampled.
func (v *VertexData) Updates() uint64 { return v.updates.Load() }

// IncUpdates bumps the resample count.
func (v *VertexData) IncUpdates() { v.updates.Add(1) }

// TryLock attempts to take ownership of the vertex without blocking.
func (v *VertexData) TryLock() bool { return v.mu.TryLock() }

// Unlock releases ownership.
func (v *VertexData) Unlock() { v.mu.Unlock() }

// Graph is the MRF over a model's variables.
type Graph struct {
	vertices  []VertexData
	neighbors [][]int
	factors   [][]FactorRef
}

// Build constructs the MRF for a model: one vertex per variable, edges
// between variables sharing a factor, and uniformly drawn initial
// assignments from the seeded source.
func Build(m *model.Model, seed int64) *Graph {
	n := len(m.Variables)
	g := &Graph{
		vertices:  make([]VertexData, n),
		neighbors: make([][]int, n),
		factors:   make([][]FactorRef, n),
	}

	rng := rand.New(rand.NewSource(seed))
	for i, v := range m.Variables {
		vd := &g.vertices[i]
		vd.Variable = v
		vd.Belief = NewBelief(v.Arity)
		vd.SetAsg(rng.Intn(v.Arity))
	}

	adjacent := make([]map[int]bool, n)
	for fi := range m.Factors {
		scope := m.Factors[fi].Scope
		for pos, v := range scope {
			g.factors[v.ID] = append(g.factors[v.ID], FactorRef{Factor: fi, Pos: pos})
			for _, u := range scope {
				if u.ID == v.ID {
					continue
				}
				if adjacent[v.ID] == nil {
					adjacent[v.ID] = make(map[int]bool)
				}
				adjacent[v.ID][u.ID] = true
			}
		}
	}
	for i, adj := range adjacent {
		for u := range adj {
			g.neighbors[i] = append(g.neighbors[i], u)
		}
		sort.Ints(g.neighbors[i])
	}
	return g
}

// NumVertices returns the number of variables in the graph.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// Vertex returns the state handle for vertex i.
func (g *Graph) Vertex(i int) *VertexData { return &g.vertices[i] }

// Neighbors returns the sorted ids of vertices sharing a factor with i.
func (g *Graph) Neighbors(i int) []int { return g.neighbors[i] }

// Factors returns the factors touching vertex i.
func (g *Graph) Factors(i int) []FactorRef { return g.factors[i] }

// TotalUpdates sums the resample counts across all vertices.
func (g *Graph) TotalUpdates() uint64 {
	var total uint64
	for i := range g.vertices {
		total += g.vertices[i].Updates()
	}
	return total
}
