package render_test

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jtgibbs/internal/model"
	"jtgibbs/internal/mrf"
	"jtgibbs/internal/render"
)

func TestProjectSquareCount(t *testing.T) {
	values := make([]float64, 10000)
	r := render.Project(values)
	if r.Side() != 100 {
		t.Errorf("10000 values: side %d, want 100", r.Side())
	}
}

func TestProjectTruncates(t *testing.T) {
	values := make([]float64, 9999)
	values[9998] = 42 // beyond 99*99 pixels, must be dropped

	r := render.Project(values)
	if r.Side() != 99 {
		t.Fatalf("9999 values: side %d, want 99", r.Side())
	}
	for i := 0; i < 99*99; i++ {
		if r.At(i) != 0 {
			t.Fatalf("pixel %d: got %v, want 0 (truncated values leaked in)", i, r.At(i))
		}
	}
}

func TestProjectRowMajor(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}
	r := render.Project(values)
	if r.Side() != 3 {
		t.Fatalf("9 values: side %d, want 3", r.Side())
	}
	for i, v := range values {
		if r.At(i) != v {
			t.Errorf("pixel %d: got %v, want %v", i, r.At(i), v)
		}
	}
}

func TestPinScale(t *testing.T) {
	// Arity 4: pixel 1 is forced to 3 no matter what the data held.
	values := []float64{2.7, 0.1, 1.5, 0.9}
	r := render.Project(values)
	r.PinScale(0, 3)

	if r.At(0) != 0 {
		t.Errorf("pixel 0: got %v, want 0", r.At(0))
	}
	if r.At(1) != 3 {
		t.Errorf("pixel 1: got %v, want 3", r.At(1))
	}
	if r.At(2) != 1.5 || r.At(3) != 0.9 {
		t.Errorf("data pixels disturbed: %v %v", r.At(2), r.At(3))
	}
}

func TestWritePGM(t *testing.T) {
	r := render.Project([]float64{0, 1, 2, 3})
	var sb strings.Builder
	if err := r.WritePGM(&sb); err != nil {
		t.Fatalf("WritePGM: %v", err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	want := []string{"P2", "2 2", "255", "0 85", "170 255"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWritePGMFlat(t *testing.T) {
	r := render.Project([]float64{7, 7, 7, 7})
	var sb strings.Builder
	if err := r.WritePGM(&sb); err != nil {
		t.Fatalf("WritePGM: %v", err)
	}
	body := strings.SplitN(sb.String(), "255\n", 2)[1]
	for _, field := range strings.Fields(body) {
		if field != "0" {
			t.Fatalf("flat raster encoded pixel %q, want all zeros", field)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := render.Filename("pred", 7, ".pgm"); got != "pred7.pgm" {
		t.Errorf("Filename: got %q, want pred7.pgm", got)
	}
	if got := render.Filename("beliefs", 12, ".tsv"); got != "beliefs12.tsv" {
		t.Errorf("Filename: got %q, want beliefs12.tsv", got)
	}
}

func TestDiagnosticsRender(t *testing.T) {
	const src = `variables:
a / 4
b / 2
c / 2
d / 2
factors:
a / b // 0 0 0 0 0 0 0 0
c / d // 0 0 0 0
`
	m, err := model.ParseAlchemy(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parsing model: %v", err)
	}
	g := mrf.Build(m, 3)
	g.Vertex(0).Belief.Add([]float64{0, 0, 0, 1})
	g.Vertex(1).IncUpdates()
	g.Vertex(2).Height = 2

	dir := t.TempDir()
	if err := (render.Diagnostics{Dir: dir}).Render(g, 5); err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, tag := range []string{"pred", "updates", "unsampled", "final_sample", "heights"} {
		path := filepath.Join(dir, tag+"5.pgm")
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("missing image %s: %v", tag, err)
		}
		sc := bufio.NewScanner(f)
		if !sc.Scan() || sc.Text() != "P2" {
			t.Errorf("%s: bad PGM magic", tag)
		}
		if !sc.Scan() || sc.Text() != "2 2" {
			t.Errorf("%s: 4 vertices should render 2x2, got %q", tag, sc.Text())
		}
		f.Close()
	}
}
