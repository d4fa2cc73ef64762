package ranking

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/matchfeed/internal/config"
)

// WeightOverrides holds partial weights from a calibration file. Nil fields keep the base value,
// so an explicit 0 disables a component.
type WeightOverrides struct {
	EmbeddingSimilarity *float64 `yaml:"embedding_similarity"`
	SkillOverlap        *float64 `yaml:"skill_overlap"`
	SeniorityMatch      *float64 `yaml:"seniority_match"`
	RecencyDecay        *float64 `yaml:"recency_decay"`
	LocationMatch       *float64 `yaml:"location_match"`
}

// Calibration is the YAML structure of a calibration file.
type Calibration struct {
	Version string `yaml:"version"`
	// Active optionally switches the active weight set.
	Active     string                     `yaml:"active"`
	WeightSets map[string]WeightOverrides `yaml:"weight_sets"`
}

// LoadCalibration reads a calibration file. An empty path yields an empty calibration.
func LoadCalibration(path string) (*Calibration, error) {
	if path == "" {
		return &Calibration{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}
	var cal Calibration
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("failed to parse calibration file: %w", err)
	}
	return &cal, nil
}

// MergeCalibration applies cal over base and validates every resulting set. Sets named only in
// the calibration start from the default weights. The base map is not modified.
func MergeCalibration(base map[string]WeightSet, cal *Calibration) (map[string]WeightSet, error) {
	out := make(map[string]WeightSet, len(base))
	for name, ws := range base {
		out[name] = ws
	}
	if cal != nil {
		for name, o := range cal.WeightSets {
			ws, ok := out[name]
			if !ok {
				ws = DefaultWeightSet()
			}
			ws.Name = name
			out[name] = applyOverrides(ws, o)
		}
	}
	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := out[name].Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyOverrides(ws WeightSet, o WeightOverrides) WeightSet {
	if o.EmbeddingSimilarity != nil {
		ws.EmbeddingSimilarity = *o.EmbeddingSimilarity
	}
	if o.SkillOverlap != nil {
		ws.SkillOverlap = *o.SkillOverlap
	}
	if o.SeniorityMatch != nil {
		ws.SeniorityMatch = *o.SeniorityMatch
	}
	if o.RecencyDecay != nil {
		ws.RecencyDecay = *o.RecencyDecay
	}
	if o.LocationMatch != nil {
		ws.LocationMatch = *o.LocationMatch
	}
	return ws
}

// SetsFromConfig converts every configured weight set.
func SetsFromConfig(cfg config.ScoringConfig) map[string]WeightSet {
	out := make(map[string]WeightSet, len(cfg.WeightSets)+1)
	for name, w := range cfg.WeightSets {
		out[name] = FromConfig(name, w)
	}
	if _, ok := out[config.DefaultWeightSetName]; !ok {
		out[config.DefaultWeightSetName] = DefaultWeightSet()
	}
	return out
}
