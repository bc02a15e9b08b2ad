// Package rules parses the optional detector tuning file.
// This is a pure function package - reading the file is the caller's job.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chartkit/chartwatch/internal/core/patterns"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrEmptyInput  = errors.New("rules file is empty")
	ErrInvalidYAML = errors.New("rules file is not valid YAML")
)

// =============================================================================
// Types
// =============================================================================

// Rule tunes a single detector. A nil Enabled means enabled.
type Rule struct {
	Enabled   *bool   `yaml:"enabled"`
	Window    int     `yaml:"window"`
	Threshold float64 `yaml:"threshold"`
}

// Rules is the parsed tuning file: an optional shared window plus
// per-detector overrides.
type Rules struct {
	Window    int             `yaml:"window"`
	Detectors map[string]Rule `yaml:"detectors"`
}

// =============================================================================
// Parser Functions
// =============================================================================

// Parse parses detector rules YAML and validates detector names and
// tuning ranges against the pattern registry.
func Parse(yamlContent string) (*Rules, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	var r Rules
	if err := yaml.Unmarshal([]byte(yamlContent), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if r.Window != 0 && r.Window < 2 {
		return nil, patterns.ErrInvalidWindow
	}
	for name, rule := range r.Detectors {
		if !patterns.IsValidDetector(name) {
			return nil, fmt.Errorf("%w: %s", patterns.ErrUnknownDetector, name)
		}
		if rule.Window != 0 && rule.Window < 2 {
			return nil, fmt.Errorf("detector %s: %w", name, patterns.ErrInvalidWindow)
		}
		if rule.Threshold < 0 {
			return nil, fmt.Errorf("detector %s: %w", name, patterns.ErrInvalidThreshold)
		}
	}
	return &r, nil
}

// Specs resolves the rules into detector specs: registry defaults,
// shared window, then per-detector overrides, with disabled detectors
// removed.
func (r *Rules) Specs() []patterns.Spec {
	specs := make([]patterns.Spec, 0, len(patterns.Names()))
	for _, name := range patterns.Names() {
		spec := patterns.Spec{Name: name, Window: r.Window}

		rule, ok := r.Detectors[name]
		if ok {
			if rule.Enabled != nil && !*rule.Enabled {
				continue
			}
			if rule.Window != 0 {
				spec.Window = rule.Window
			}
			if rule.Threshold != 0 {
				spec.Threshold = rule.Threshold
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
