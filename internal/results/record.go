// Package results maintains the append-only experiment results log: one
// tab-separated record per completed checkpoint, with the log's current line
// count doubling as the next experiment id.
package results

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one row of the results log, written once per checkpoint and
// never updated. Field order is fixed by the log format.
type Record struct {
	ID            uint64  // experiment id
	Workers       int     // sampler worker count
	RunSoFar      float64 // cumulative runtime after this segment, seconds
	Runtime       float64 // target cumulative runtime of this checkpoint
	TreeSize      int
	TreeWidth     int
	FactorSize    int
	TreeHeight    int
	Subthreads    int
	Priorities    bool
	ActualRuntime float64 // measured wall clock of this segment, seconds
	TotalUpdates  uint64  // per-vertex update counts summed over the model
	LogLik        float64 // unnormalized log-likelihood
}

// NumFields is the number of tab-separated fields in one record line.
const NumFields = 13

// Line renders the record as one tab-separated log line, without a trailing
// newline. Floats carry 16 significant digits.
func (r Record) Line() string {
	fields := []string{
		strconv.FormatUint(r.ID, 10),
		strconv.Itoa(r.Workers),
		formatFloat(r.RunSoFar),
		formatFloat(r.Runtime),
		strconv.Itoa(r.TreeSize),
		strconv.Itoa(r.TreeWidth),
		strconv.Itoa(r.FactorSize),
		strconv.Itoa(r.TreeHeight),
		strconv.Itoa(r.Subthreads),
		formatBool(r.Priorities),
		formatFloat(r.ActualRuntime),
		strconv.FormatUint(r.TotalUpdates, 10),
		formatFloat(r.LogLik),
	}
	return strings.Join(fields, "\t")
}

// ParseLine parses one log line back into a Record.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != NumFields {
		return Record{}, fmt.Errorf("record has %d fields, want %d", len(fields), NumFields)
	}

	var r Record
	var err error
	parse := func(i int, dst any) {
		if err != nil {
			return
		}
		switch d := dst.(type) {
		case *uint64:
			*d, err = strconv.ParseUint(fields[i], 10, 64)
		case *int:
			*d, err = strconv.Atoi(fields[i])
		case *float64:
			*d, err = strconv.ParseFloat(fields[i], 64)
		case *bool:
			switch fields[i] {
			case "0":
				*d = false
			case "1":
				*d = true
			default:
				err = fmt.Errorf("bad boolean %q", fields[i])
			}
		}
		if err != nil {
			err = fmt.Errorf("field %d: %w", i, err)
		}
	}

	parse(0, &r.ID)
	parse(1, &r.Workers)
	parse(2, &r.RunSoFar)
	parse(3, &r.Runtime)
	parse(4, &r.TreeSize)
	parse(5, &r.TreeWidth)
	parse(6, &r.FactorSize)
	parse(7, &r.TreeHeight)
	parse(8, &r.Subthreads)
	parse(9, &r.Priorities)
	parse(10, &r.ActualRuntime)
	parse(11, &r.TotalUpdates)
	parse(12, &r.LogLik)
	return r, err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 16, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
