package mrf

// Belief accumulates unnormalized posterior mass for one variable, one
// weight per value.
type Belief []float64

// NewBelief returns an empty belief over arity values.
func NewBelief(arity int) Belief { return make(Belief, arity) }

// Add accumulates a weight vector into the belief.
func (b Belief) Add(dist []float64) {
	for i, w := range dist {
		b[i] += w
	}
}

// Normalized returns the belief as a probability vector. A belief with no
// accumulated mass normalizes to uniform.
func (b Belief) Normalized() []float64 {
	out := make([]float64, len(b))
	var sum float64
	for _, w := range b {
		sum += w
	}
	if sum <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(b))
		}
		return out
	}
	for i, w := range b {
		out[i] = w / sum
	}
	return out
}

// Expectation returns the mean value index under the normalized belief.
func (b Belief) Expectation() float64 {
	var e float64
	for i, p := range b.Normalized() {
		e += float64(i) * p
	}
	return e
}
