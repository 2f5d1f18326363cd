// internal/batch/queries.go
package batch

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/flightsearch-cli/internal/flightsearch"
)

// Entry is one search in a batch file. Dates use flightsearch.DateLayout.
type Entry struct {
	Departure string `yaml:"departure"`
	Arrival   string `yaml:"arrival"`
	Start     string `yaml:"start"`
	End       string `yaml:"end"`
}

// File is the layout of a batch file:
//
//	searches:
//	  - departure: Seoul
//	    arrival: Busan
//	    start: 2025-03-05
//	    end: 2025-03-09
type File struct {
	Searches []Entry `yaml:"searches"`
}

// LoadQueries reads and validates a batch file.
func LoadQueries(path string) ([]flightsearch.TripQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return ParseQueries(bytes.NewReader(data))
}

// ParseQueries decodes a batch file. Every entry must be a valid query; the
// error names the first bad entry by position.
func ParseQueries(r io.Reader) ([]flightsearch.TripQuery, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("batch file is empty")
		}
		return nil, fmt.Errorf("decode batch file: %w", err)
	}
	if len(f.Searches) == 0 {
		return nil, fmt.Errorf("batch file has no searches")
	}

	queries := make([]flightsearch.TripQuery, 0, len(f.Searches))
	for i, e := range f.Searches {
		q, err := flightsearch.ParseTripQuery(e.Departure, e.Arrival, e.Start, e.End)
		if err != nil {
			return nil, fmt.Errorf("search #%d: %w", i+1, err)
		}
		queries = append(queries, q)
	}
	return queries, nil
}
