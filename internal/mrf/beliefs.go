package mrf

import (
	"bufio"
	"fmt"
	"os"
)

// SaveBeliefs writes the normalized belief of every vertex to a TSV file:
// one line per vertex, the vertex id followed by its probability values.
func SaveBeliefs(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating beliefs file: %w", err)
	}
	w := bufio.NewWriter(f)
	for i := 0; i < g.NumVertices(); i++ {
		fmt.Fprintf(w, "%d", i)
		for _, p := range g.Vertex(i).Belief.Normalized() {
			fmt.Fprintf(w, "\t%.10g", p)
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing beliefs: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing beliefs file: %w", err)
	}
	return nil
}
