// Package roster loads the project and task roster snapshots that the
// domain parsers match transcripts against.
//
// Rosters are plain YAML files exported by the back office. FieldVoice never
// mutates them; each capture reads a fresh read-only snapshot so edits take
// effect on the next parse without a restart.
package roster

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crewtrack/fieldvoice/pkg/types"
)

// File is the top-level structure of a roster YAML file.
//
// Example:
//
//	entries:
//	  - id: p1
//	    name: "Smith House"
//	    status: active
//	  - id: p2
//	    name: "Downtown Office"
//	    status: planning
type File struct {
	Entries []types.RosterEntry `yaml:"entries"`
}

// Load reads and parses a roster YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func Load(path string) ([]types.RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %q: %w", path, err)
	}
	defer f.Close()

	entries, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("roster: parse %q: %w", path, err)
	}
	return entries, nil
}

// LoadFromReader parses roster YAML from an [io.Reader]. The reader is
// consumed entirely; the caller is responsible for closing it.
func LoadFromReader(r io.Reader) ([]types.RosterEntry, error) {
	var rf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("roster: decode yaml: %w", err)
	}
	if err := validate(rf.Entries); err != nil {
		return nil, err
	}
	return rf.Entries, nil
}

// validate checks roster entries for missing fields and duplicate IDs.
// Returns a joined error listing every problem found.
func validate(entries []types.RosterEntry) error {
	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			errs = append(errs, fmt.Errorf("roster: entries[%d].id is required", i))
		} else if prev, ok := seen[e.ID]; ok {
			errs = append(errs, fmt.Errorf("roster: entries[%d].id %q is a duplicate of entries[%d]", i, e.ID, prev))
		} else {
			seen[e.ID] = i
		}
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("roster: entries[%d].name is required", i))
		}
	}
	return errors.Join(errs...)
}
