package entity

import (
	"sort"

	"github.com/rotisserie/eris"
)

const (
	DefaultTier1Min = 0.85
	DefaultTier2Min = 0.55
)

type ThresholdPair struct {
	Tier1Min float64 `json:"tier1_min" mapstructure:"tier1_min"`
	Tier2Min float64 `json:"tier2_min" mapstructure:"tier2_min"`
}

// ThresholdConfig is the routing policy snapshot. It is loaded once at startup
// and passed by value to every Resolve call; nothing mutates it afterwards.
type ThresholdConfig struct {
	Tier1Min          float64                  `json:"tier1_min" mapstructure:"tier1_min"`
	Tier2Min          float64                  `json:"tier2_min" mapstructure:"tier2_min"`
	CategoryOverrides map[string]ThresholdPair `json:"category_overrides" mapstructure:"category_overrides"`
}

func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{Tier1Min: DefaultTier1Min, Tier2Min: DefaultTier2Min}
}

// For returns the effective thresholds for a category, falling back to the
// global pair when no override exists.
func (c ThresholdConfig) For(category string) ThresholdPair {
	if o, ok := c.CategoryOverrides[category]; ok {
		return o
	}
	return ThresholdPair{Tier1Min: c.Tier1Min, Tier2Min: c.Tier2Min}
}

// Validate checks the global pair and every override. Any failure wraps
// ErrConfigInvalid.
func (c ThresholdConfig) Validate() error {
	if err := validatePair("global", ThresholdPair{Tier1Min: c.Tier1Min, Tier2Min: c.Tier2Min}); err != nil {
		return err
	}
	names := make([]string, 0, len(c.CategoryOverrides))
	for name := range c.CategoryOverrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := validatePair("category "+name, c.CategoryOverrides[name]); err != nil {
			return err
		}
	}
	return nil
}

// Clone deep-copies the override map so a caller cannot alias the snapshot.
func (c ThresholdConfig) Clone() ThresholdConfig {
	out := c
	if c.CategoryOverrides != nil {
		out.CategoryOverrides = make(map[string]ThresholdPair, len(c.CategoryOverrides))
		for k, v := range c.CategoryOverrides {
			out.CategoryOverrides[k] = v
		}
	}
	return out
}

func validatePair(scope string, p ThresholdPair) error {
	if p.Tier1Min < 0 || p.Tier1Min > 1 {
		return eris.Wrapf(ErrConfigInvalid, "%s: tier1_min %.3f outside [0,1]", scope, p.Tier1Min)
	}
	if p.Tier2Min < 0 || p.Tier2Min > 1 {
		return eris.Wrapf(ErrConfigInvalid, "%s: tier2_min %.3f outside [0,1]", scope, p.Tier2Min)
	}
	if p.Tier1Min <= p.Tier2Min {
		return eris.Wrapf(ErrConfigInvalid, "%s: tier1_min %.3f must exceed tier2_min %.3f", scope, p.Tier1Min, p.Tier2Min)
	}
	return nil
}
