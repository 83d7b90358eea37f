package render

import (
	"fmt"
	"path/filepath"

	"jtgibbs/internal/mrf"
)

// Diagnostics writes the five per-checkpoint diagnostic images of a graph:
// posterior expectations, update counts, unsampled vertices, current
// assignments, and tree heights. Vertex i maps to pixel i.
type Diagnostics struct {
	Dir string
}

// Render writes all five images for one experiment id.
func (d Diagnostics) Render(g *mrf.Graph, id uint64) error {
	n := g.NumVertices()
	values := make([]float64, n)

	for i := range values {
		values[i] = g.Vertex(i).Belief.Expectation()
	}
	pred := Project(values)
	if n > 0 {
		// Pin the gray scale to the variable's value range. Pixels 0 and 1
		// stop being data here.
		pred.PinScale(0, float64(g.Vertex(0).Variable.Arity-1))
	}
	if err := d.save(pred, "pred", id); err != nil {
		return err
	}

	for i := range values {
		values[i] = float64(g.Vertex(i).Updates())
	}
	if err := d.save(Project(values), "updates", id); err != nil {
		return err
	}

	for i := range values {
		values[i] = 0
		if g.Vertex(i).Updates() == 0 {
			values[i] = 1
		}
	}
	if err := d.save(Project(values), "unsampled", id); err != nil {
		return err
	}

	for i := range values {
		values[i] = float64(g.Vertex(i).Asg())
	}
	if err := d.save(Project(values), "final_sample", id); err != nil {
		return err
	}

	for i := range values {
		values[i] = float64(g.Vertex(i).Height)
	}
	return d.save(Project(values), "heights", id)
}

func (d Diagnostics) save(r *Raster, tag string, id uint64) error {
	path := filepath.Join(d.Dir, Filename(tag, id, ".pgm"))
	if err := r.SavePGM(path); err != nil {
		return fmt.Errorf("%s image: %w", tag, err)
	}
	return nil
}
