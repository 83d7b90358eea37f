// Package model holds the factorized representation of a probabilistic
// model: discrete variables and factors over them, as parsed from an
// Alchemy-format export.
package model

// Variable is one discrete variable, identified by its position in the
// model's variable list.
type Variable struct {
	ID    int
	Arity int
}

// Factor is a function over a set of variables, stored as a dense table of
// log values. Scope is ordered by ascending variable id, and the first
// scope variable varies fastest in Table.
type Factor struct {
	Scope []Variable
	Table []float64
}

// TableSize returns the number of entries a factor over this scope holds.
func (f *Factor) TableSize() int {
	n := 1
	for _, v := range f.Scope {
		n *= v.Arity
	}
	return n
}

// LogValue returns the factor's log value at the given assignment, where
// asg[i] is the value of Scope[i].
func (f *Factor) LogValue(asg []int) float64 {
	idx := 0
	stride := 1
	for i, v := range f.Scope {
		idx += asg[i] * stride
		stride *= v.Arity
	}
	return f.Table[idx]
}

// Model is a fully parsed factor-graph model.
type Model struct {
	Variables []Variable
	Names     []string // variable names as they appeared in the source file
	Factors   []Factor
}
