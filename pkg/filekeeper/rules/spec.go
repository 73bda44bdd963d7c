package rules

import "fmt"

// Spec is the configuration shape of one custom rule, as it appears under
// the "rules" key of the config file. A spec with a pattern becomes a
// PatternRule; otherwise its extensions become an ExtensionRule.
type Spec struct {
	Category   string   `mapstructure:"category"`
	Extensions []string `mapstructure:"extensions"`
	Pattern    string   `mapstructure:"pattern"`
	Priority   int      `mapstructure:"priority"`
}

// FromSpecs converts configured rule specs into rules, rejecting invalid
// specs (empty category, bad regex, neither pattern nor extensions) at
// load time rather than at match time.
func FromSpecs(specs []Spec) ([]Rule, error) {
	result := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		switch {
		case spec.Pattern != "":
			rule, err := NewPatternRule(spec.Category, spec.Priority, spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: %w", i, err)
			}
			result = append(result, rule)
		case len(spec.Extensions) > 0:
			rule, err := NewExtensionRule(spec.Category, spec.Priority, spec.Extensions...)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: %w", i, err)
			}
			result = append(result, rule)
		default:
			return nil, fmt.Errorf("rules[%d] for %q has neither a pattern nor extensions", i, spec.Category)
		}
	}
	return result, nil
}
