// Package ministry holds the ministry reference set and the heuristic that
// attributes a debate section to the ministry most likely responsible for it.
package ministry

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PMO is the head-of-government acronym. Matches against it yield to any
// specific portfolio.
const PMO = "PMO"

//go:embed ministries.yaml
var referenceYAML []byte

// Entry is one ministry of the reference set
type Entry struct {
	Acronym      string   `yaml:"acronym"`
	Name         string   `yaml:"name"`
	Designations []string `yaml:"designations"`
}

// Designation maps one ministerial designation string to its ministry
type Designation struct {
	Text    string
	Acronym string
}

// Reference is the parsed reference set in file order
type Reference struct {
	Entries      []Entry
	Designations []Designation
}

// Parse decodes a reference set document
func Parse(data []byte) (*Reference, error) {
	var doc struct {
		Ministries []Entry `yaml:"ministries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ministry reference: %w", err)
	}
	if len(doc.Ministries) == 0 {
		return nil, fmt.Errorf("ministry reference is empty")
	}

	ref := &Reference{Entries: doc.Ministries}
	seen := make(map[string]bool)
	for _, e := range doc.Ministries {
		if e.Acronym == "" || e.Name == "" {
			return nil, fmt.Errorf("ministry entry missing acronym or name: %+v", e)
		}
		if seen[e.Acronym] {
			return nil, fmt.Errorf("duplicate ministry acronym %s", e.Acronym)
		}
		seen[e.Acronym] = true
		for _, d := range e.Designations {
			ref.Designations = append(ref.Designations, Designation{Text: d, Acronym: e.Acronym})
		}
	}
	return ref, nil
}

var defaultReference = mustParse(referenceYAML)

func mustParse(data []byte) *Reference {
	ref, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return ref
}

// Default returns the embedded reference set
func Default() *Reference {
	return defaultReference
}
