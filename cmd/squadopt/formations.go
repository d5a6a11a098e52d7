package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
)

// formationEntry is one item of a formations file:
//
//   - name: 4-4-2
//     counts: [1, 4, 4, 2]
//
// counts are goalkeepers, defenders, midfielders, forwards. name alone is
// parsed as a shape when counts is omitted.
type formationEntry struct {
	Name   string `yaml:"name"`
	Counts []int  `yaml:"counts"`
}

func readFormations(r io.Reader) ([]optimizer.Formation, error) {
	var entries []formationEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse formations file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: formations file is empty", optimizer.ErrInvalidFormation)
	}

	out := make([]optimizer.Formation, 0, len(entries))
	for i, e := range entries {
		var f optimizer.Formation
		switch {
		case len(e.Counts) == 4:
			copy(f[:], e.Counts)
			if err := f.Validate(); err != nil {
				return nil, fmt.Errorf("formation %d: %w", i, err)
			}
		case len(e.Counts) == 0 && e.Name != "":
			parsed, err := optimizer.ParseFormation(e.Name)
			if err != nil {
				return nil, fmt.Errorf("formation %d: %w", i, err)
			}
			f = parsed
		default:
			return nil, fmt.Errorf("%w: entry %d needs four counts or a name", optimizer.ErrInvalidFormation, i)
		}
		out = append(out, f)
	}
	return out, nil
}
