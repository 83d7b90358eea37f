package mrf

import "jtgibbs/internal/model"

// UnnormalizedLogLikelihood sums every factor's log value at the graph's
// current joint assignment. It reads the graph but never mutates it.
func UnnormalizedLogLikelihood(g *Graph, factors []model.Factor) float64 {
	var total float64
	for fi := range factors {
		f := &factors[fi]
		idx := 0
		stride := 1
		for _, v := range f.Scope {
			idx += g.Vertex(v.ID).Asg() * stride
			stride *= v.Arity
		}
		total += f.Table[idx]
	}
	return total
}
