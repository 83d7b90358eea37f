package sampler

import (
	"math/rand"

	"jtgibbs/internal/model"
	"jtgibbs/internal/mrf"
)

// block is a set of vertices a worker holds exclusively, in BFS order from
// the root, with each member's depth in the tree.
type block struct {
	vertices []int
	depth    []int
}

// growBlock takes ownership of root and grows a tree around it by
// breadth-first search under the configured caps: TreeSize bounds the member
// count, TreeHeight (0 = unbounded) bounds the depth, TreeWidth (0 =
// unbounded) bounds how many children one vertex may add, and FactorSize
// (0 = unbounded) rejects vertices touching a factor table larger than the
// cap. Vertices held by other workers are skipped, never waited on. Returns
// nil, holding nothing, if the root itself is held.
func growBlock(m *model.Model, g *mrf.Graph, root int, p Params, rng *rand.Rand) *block {
	if !g.Vertex(root).TryLock() {
		return nil
	}

	b := &block{vertices: []int{root}, depth: []int{0}}
	inBlock := map[int]bool{root: true}

	type frontierEntry struct{ vertex, depth int }
	frontier := []frontierEntry{{root, 0}}

	for len(frontier) > 0 && len(b.vertices) < p.TreeSize {
		cur := frontier[0]
		frontier = frontier[1:]
		if p.TreeHeight > 0 && cur.depth >= p.TreeHeight {
			continue
		}

		added := 0
		for _, u := range shuffled(g.Neighbors(cur.vertex), rng) {
			if len(b.vertices) >= p.TreeSize {
				break
			}
			if p.TreeWidth > 0 && added >= p.TreeWidth {
				break
			}
			if inBlock[u] || !admissible(m, g, u, p.FactorSize) {
				continue
			}
			if !g.Vertex(u).TryLock() {
				continue
			}
			inBlock[u] = true
			b.vertices = append(b.vertices, u)
			b.depth = append(b.depth, cur.depth+1)
			frontier = append(frontier, frontierEntry{u, cur.depth + 1})
			added++
		}
	}
	return b
}

// admissible reports whether vertex u may join a block under the factor-size
// cap: every factor touching u must have a table no larger than the cap.
func admissible(m *model.Model, g *mrf.Graph, u int, factorSize int) bool {
	if factorSize <= 0 {
		return true
	}
	for _, ref := range g.Factors(u) {
		if m.Factors[ref.Factor].TableSize() > factorSize {
			return false
		}
	}
	return true
}

// release gives up ownership of every member.
func (b *block) release(g *mrf.Graph) {
	for _, v := range b.vertices {
		g.Vertex(v).Unlock()
	}
}

func shuffled(vs []int, rng *rand.Rand) []int {
	out := make([]int, len(vs))
	copy(out, vs)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
