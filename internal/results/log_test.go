package results_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jtgibbs/internal/results"
)

func sampleRecord(id uint64) results.Record {
	return results.Record{
		ID:            id,
		Workers:       8,
		RunSoFar:      16.04999999999999,
		Runtime:       15,
		TreeSize:      1000,
		TreeWidth:     3,
		FactorSize:    0,
		TreeHeight:    0,
		Subthreads:    1,
		Priorities:    true,
		ActualRuntime: 6.012345678901234,
		TotalUpdates:  123456789,
		LogLik:        -98765.43210987654,
	}
}

func TestNextIDMissingFile(t *testing.T) {
	log := results.NewLog(filepath.Join(t.TempDir(), "absent.tsv"))
	id, err := log.NextID()
	if err != nil {
		t.Fatalf("NextID on missing file: %v", err)
	}
	if id != 0 {
		t.Errorf("NextID on missing file: got %d, want 0", id)
	}
}

func TestNextIDIdempotent(t *testing.T) {
	log := results.NewLog(filepath.Join(t.TempDir(), "results.tsv"))
	if err := log.Append(sampleRecord(0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	first, err := log.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	second, err := log.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if first != second {
		t.Errorf("NextID not idempotent without appends: %d then %d", first, second)
	}
	if first != 1 {
		t.Errorf("NextID after one append: got %d, want 1", first)
	}
}

func TestAppendAssignsSequentialIDs(t *testing.T) {
	log := results.NewLog(filepath.Join(t.TempDir(), "results.tsv"))

	const k = 5
	for i := 0; i < k; i++ {
		id, err := log.NextID()
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		if id != uint64(i) {
			t.Fatalf("iteration %d: NextID returned %d", i, id)
		}
		if err := log.Append(sampleRecord(id)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	data, err := os.ReadFile(log.Path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != k {
		t.Fatalf("log has %d lines, want %d", len(lines), k)
	}
	for i, line := range lines {
		rec, err := results.ParseLine(line)
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if rec.ID != uint64(i) {
			t.Errorf("line %d: id %d", i, rec.ID)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	want := sampleRecord(42)
	line := want.Line()

	if n := len(strings.Split(line, "\t")); n != results.NumFields {
		t.Fatalf("record line has %d fields, want %d", n, results.NumFields)
	}

	got, err := results.ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if got != want {
		t.Errorf("round trip changed the record:\n got %+v\nwant %+v", got, want)
	}
}

func TestRecordFloatPrecision(t *testing.T) {
	// 16 significant digits must survive the text round trip.
	rec := sampleRecord(0)
	rec.LogLik = -1234.567890123456
	rec.ActualRuntime = 0.1234567890123456

	got, err := results.ParseLine(rec.Line())
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if got.LogLik != rec.LogLik {
		t.Errorf("loglik lost precision: wrote %v, read %v", rec.LogLik, got.LogLik)
	}
	if got.ActualRuntime != rec.ActualRuntime {
		t.Errorf("actual runtime lost precision: wrote %v, read %v", rec.ActualRuntime, got.ActualRuntime)
	}
}

func TestRecordPrioritiesField(t *testing.T) {
	rec := sampleRecord(0)

	rec.Priorities = false
	if fields := strings.Split(rec.Line(), "\t"); fields[9] != "0" {
		t.Errorf("priorities false encoded as %q, want 0", fields[9])
	}
	rec.Priorities = true
	if fields := strings.Split(rec.Line(), "\t"); fields[9] != "1" {
		t.Errorf("priorities true encoded as %q, want 1", fields[9])
	}
}

func TestParseLineErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"too few fields", "1\t2\t3"},
		{"too many fields", strings.Repeat("1\t", 13) + "1"},
		{"bad id", strings.Replace(sampleRecord(0).Line(), "0", "x", 1)},
		{"bad priorities", strings.Replace(sampleRecord(0).Line(), "\t1\t", "\tyes\t", 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := results.ParseLine(tc.line); err == nil {
				t.Errorf("expected error for %s, got none", tc.name)
			}
		})
	}
}
