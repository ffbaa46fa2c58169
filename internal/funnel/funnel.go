// Package funnel maps pageview paths onto the five ordered purchase funnel
// stages. The mapping is data, not code: it ships as an embedded YAML file
// and can be replaced with a custom file via configuration.
package funnel

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Stage is a named step of the purchase journey.
type Stage string

// The five funnel stages, in journey order.
const (
	StageLanding  Stage = "Landing Page"
	StageProduct  Stage = "Product Page"
	StageCart     Stage = "Cart"
	StageCheckout Stage = "Checkout"
	StageThankYou Stage = "Thank You"
)

// Stages returns the funnel stages in journey order.
func Stages() []Stage {
	return []Stage{StageLanding, StageProduct, StageCart, StageCheckout, StageThankYou}
}

//go:embed stages.yml
var defaultMappingYAML []byte

type mappingFile struct {
	Stages []struct {
		Name  string   `yaml:"name"`
		Paths []string `yaml:"paths"`
	} `yaml:"stages"`
}

// Mapping is a pure lookup from pageview path to funnel stage. Paths absent
// from the mapping belong to no stage and are excluded from the funnel.
type Mapping struct {
	byPath  map[string]Stage
	byStage map[Stage][]string
}

// Default returns the mapping embedded in the binary. The embedded file is
// validated at startup, so a parse failure here is a build defect.
func Default() *Mapping {
	m, err := parse(defaultMappingYAML)
	if err != nil {
		panic(fmt.Sprintf("funnel: embedded stage mapping is invalid: %v", err))
	}
	return m
}

// LoadFile reads a custom stage mapping from a YAML file.
func LoadFile(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read funnel mapping %s: %w", path, err)
	}

	m, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid funnel mapping %s: %w", path, err)
	}
	return m, nil
}

func parse(data []byte) (*Mapping, error) {
	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse stage mapping: %w", err)
	}

	known := make(map[Stage]bool, len(Stages()))
	for _, stage := range Stages() {
		known[stage] = true
	}

	m := &Mapping{
		byPath:  make(map[string]Stage),
		byStage: make(map[Stage][]string),
	}

	for _, entry := range file.Stages {
		stage := Stage(entry.Name)
		if !known[stage] {
			return nil, fmt.Errorf("unknown funnel stage %q", entry.Name)
		}
		for _, path := range entry.Paths {
			if existing, dup := m.byPath[path]; dup {
				return nil, fmt.Errorf("path %q mapped to both %q and %q", path, existing, stage)
			}
			m.byPath[path] = stage
			m.byStage[stage] = append(m.byStage[stage], path)
		}
	}

	return m, nil
}

// StageFor returns the stage for a pageview path. The second return value is
// false for paths outside the funnel.
func (m *Mapping) StageFor(path string) (Stage, bool) {
	stage, ok := m.byPath[path]
	return stage, ok
}

// PathsFor returns the paths mapped to a stage, in mapping-file order.
// The slice may be empty for stages with no configured paths.
func (m *Mapping) PathsFor(stage Stage) []string {
	return m.byStage[stage]
}
