package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// LoadAlchemy reads an Alchemy-format model file from disk.
func LoadAlchemy(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	m, err := ParseAlchemy(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// ParseAlchemy parses the Alchemy export format: a "variables:" section with
// one "name / arity" entry per line, followed by a "factors:" section with
// one "name / name / ... // w0 w1 ..." entry per line. Table values are log
// potentials, listed with the first named variable varying fastest. Factor
// scopes are reordered to ascending variable id, remapping the table to
// match.
func ParseAlchemy(r io.Reader) (*Model, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024) // factor tables can be long lines

	m := &Model{}
	byName := make(map[string]Variable)
	lineNo := 0

	// Header.
	line, ok := nextLine(sc, &lineNo)
	if !ok {
		return nil, fmt.Errorf("line %d: expected \"variables:\" header", lineNo)
	}
	if line != "variables:" {
		return nil, fmt.Errorf("line %d: expected \"variables:\" header, got %q", lineNo, line)
	}

	// Variables until the factors header.
	for {
		line, ok = nextLine(sc, &lineNo)
		if !ok {
			return nil, fmt.Errorf("line %d: missing \"factors:\" section", lineNo)
		}
		if line == "factors:" {
			break
		}
		name, arityStr, found := strings.Cut(line, "/")
		if !found {
			return nil, fmt.Errorf("line %d: malformed variable %q", lineNo, line)
		}
		name = strings.TrimSpace(name)
		arity, err := strconv.Atoi(strings.TrimSpace(arityStr))
		if err != nil {
			return nil, fmt.Errorf("line %d: variable %s: bad arity: %w", lineNo, name, err)
		}
		if arity < 1 {
			return nil, fmt.Errorf("line %d: variable %s: arity must be positive, got %d", lineNo, name, arity)
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("line %d: duplicate variable %s", lineNo, name)
		}
		v := Variable{ID: len(m.Variables), Arity: arity}
		m.Variables = append(m.Variables, v)
		m.Names = append(m.Names, name)
		byName[name] = v
	}

	// Factors until EOF.
	for {
		line, ok = nextLine(sc, &lineNo)
		if !ok {
			break
		}
		f, err := parseFactor(line, byName)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		m.Factors = append(m.Factors, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	return m, nil
}

// nextLine advances to the next non-blank line, trimmed.
func nextLine(sc *bufio.Scanner, lineNo *int) (string, bool) {
	for sc.Scan() {
		*lineNo++
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			return line, true
		}
	}
	return "", false
}

func parseFactor(line string, byName map[string]Variable) (Factor, error) {
	varsPart, tablePart, found := strings.Cut(line, "//")
	if !found {
		return Factor{}, fmt.Errorf("malformed factor %q", line)
	}

	// Scope in file order.
	var fileScope []Variable
	seen := make(map[int]bool)
	for _, name := range strings.Split(varsPart, "/") {
		name = strings.TrimSpace(name)
		if name == "" {
			return Factor{}, fmt.Errorf("factor with empty variable name in %q", line)
		}
		v, ok := byName[name]
		if !ok {
			return Factor{}, fmt.Errorf("factor references unknown variable %s", name)
		}
		if seen[v.ID] {
			return Factor{}, fmt.Errorf("factor repeats variable %s", name)
		}
		seen[v.ID] = true
		fileScope = append(fileScope, v)
	}
	if len(fileScope) == 0 {
		return Factor{}, fmt.Errorf("factor with empty scope in %q", line)
	}

	// Table values in file order, first named variable fastest.
	fields := strings.Fields(tablePart)
	size := 1
	for _, v := range fileScope {
		size *= v.Arity
	}
	if len(fields) != size {
		return Factor{}, fmt.Errorf("factor table has %d values, want %d", len(fields), size)
	}
	table := make([]float64, size)
	for i, field := range fields {
		w, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Factor{}, fmt.Errorf("bad table value %q: %w", field, err)
		}
		table[i] = w
	}

	return remapToSortedScope(fileScope, table), nil
}

// remapToSortedScope reorders a factor's scope to ascending variable id and
// permutes the table so each assignment keeps its log value.
func remapToSortedScope(fileScope []Variable, table []float64) Factor {
	scope := make([]Variable, len(fileScope))
	copy(scope, fileScope)
	sort.Slice(scope, func(i, j int) bool { return scope[i].ID < scope[j].ID })

	// Position of each file-order variable in the sorted scope, and the
	// strides on both sides.
	sortedPos := make([]int, len(fileScope))
	for i, fv := range fileScope {
		for j, sv := range scope {
			if sv.ID == fv.ID {
				sortedPos[i] = j
				break
			}
		}
	}
	sortedStride := make([]int, len(scope))
	stride := 1
	for i, v := range scope {
		sortedStride[i] = stride
		stride *= v.Arity
	}

	out := make([]float64, len(table))
	for j, w := range table {
		rest := j
		idx := 0
		for i, fv := range fileScope {
			digit := rest % fv.Arity
			rest /= fv.Arity
			idx += digit * sortedStride[sortedPos[i]]
		}
		out[idx] = w
	}
	return Factor{Scope: scope, Table: out}
}
