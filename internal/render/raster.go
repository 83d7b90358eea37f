// Package render projects per-vertex scalar diagnostics into square
// grayscale rasters and writes them out as PGM images.
package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
)

// Raster is a square single-channel image holding one float value per pixel.
type Raster struct {
	side int
	pix  []float64
}

// Project lays values out row-major into a square of side floor(sqrt(n)).
// Trailing values beyond side*side pixels are dropped.
func Project(values []float64) *Raster {
	side := int(math.Sqrt(float64(len(values))))
	pix := make([]float64, side*side)
	copy(pix, values)
	return &Raster{side: side, pix: pix}
}

// Side returns the image's width and height.
func (r *Raster) Side() int { return r.side }

// At returns the value of pixel i in row-major order.
func (r *Raster) At(i int) float64 { return r.pix[i] }

// PinScale overwrites the first two pixels with the endpoints of the
// expected value range. After this the two pixels are no longer data: they
// exist only to pin the grayscale mapping so images from different
// checkpoints are visually comparable.
func (r *Raster) PinScale(lo, hi float64) {
	if len(r.pix) > 0 {
		r.pix[0] = lo
	}
	if len(r.pix) > 1 {
		r.pix[1] = hi
	}
}

// WritePGM encodes the raster as a plain (P2) PGM with max gray 255, mapping
// pixel values linearly so the smallest becomes 0 and the largest 255. A
// flat raster encodes as all zeros.
func (r *Raster) WritePGM(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P2\n%d %d\n255\n", r.side, r.side)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range r.pix {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}

	for y := 0; y < r.side; y++ {
		for x := 0; x < r.side; x++ {
			if x > 0 {
				bw.WriteByte(' ')
			}
			gray := int(math.Round((r.pix[y*r.side+x] - lo) * scale))
			fmt.Fprintf(bw, "%d", gray)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// SavePGM writes the raster to a file.
func (r *Raster) SavePGM(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	if err := r.WritePGM(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// Filename assembles the fixed artifact naming pattern: tag, experiment id,
// extension.
func Filename(tag string, id uint64, ext string) string {
	return fmt.Sprintf("%s%d%s", tag, id, ext)
}
