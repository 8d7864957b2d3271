// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package trace parses the per-core memory-reference trace files that
// drive a simulation run.
package trace

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/archsim/coherence/pkg/coherence"
	cerrors "github.com/archsim/coherence/pkg/errors"
)

// Path builds the path to the trace file for core i of the given
// family, under dir (the "traces" directory): dir/family_i.data.
func Path(dir, family string, core int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.data", family, core))
}

// Parse reads lines of the form "<label> <value>" from s, skipping
// any line that does not split into exactly two whitespace-separated
// tokens. label must parse as an integer (it is not validated against
// {0,1,2} here; Core.Run skips unrecognized labels itself).
func Parse(s *bufio.Scanner) ([]coherence.Record, error) {
	var records []coherence.Record
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) != 2 {
			continue
		}
		label, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		records = append(records, coherence.Record{Label: label, Value: fields[1]})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrTraceIO, err)
	}
	return records, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) ([]coherence.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open trace file %s: %w", cerrors.ErrTraceIO, path, err)
	}
	defer f.Close()

	records, err := Parse(bufio.NewScanner(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	return records, nil
}

// LoadFamily loads the numCores per-core trace files for family under
// dir, in core order.
func LoadFamily(dir, family string, numCores int) ([][]coherence.Record, error) {
	traces := make([][]coherence.Record, numCores)
	for i := 0; i < numCores; i++ {
		records, err := ParseFile(Path(dir, family, i))
		if err != nil {
			return nil, err
		}
		traces[i] = records
	}
	return traces, nil
}
