// Package refdata holds the district crop catalog: per-crop agronomic optima
// and market baselines consumed by the advisory engine. The built-in catalog
// covers the major Krishna District crops; operators can overlay it with a
// YAML file for other districts or updated baselines.
package refdata

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Range is an inclusive [Lo, Hi] interval.
type Range struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Lo && v <= r.Hi
}

// CropProfile describes one crop's agronomic optima and market baseline.
// Yields are quintals per acre, prices rupees per quintal, rainfall is
// annual millimetres.
type CropProfile struct {
	Name             string
	BaseYieldPerAcre float64
	MinYieldPerAcre  float64
	MaxYieldPerAcre  float64
	OptimalTempC     Range
	OptimalRainfall  Range
	OptimalHumidity  Range
	AvgPrice         float64
	MinPrice         float64
	MaxPrice         float64
	PeakMonths       []time.Month
	LowMonths        []time.Month
}

// IsPeakMonth reports whether m is a historically elevated-price month.
func (p CropProfile) IsPeakMonth(m time.Month) bool {
	for _, pm := range p.PeakMonths {
		if pm == m {
			return true
		}
	}
	return false
}

// IsLowMonth reports whether m is a historically depressed-price month.
func (p CropProfile) IsLowMonth(m time.Month) bool {
	for _, lm := range p.LowMonths {
		if lm == m {
			return true
		}
	}
	return false
}

// Catalog resolves crop names to profiles. Lookups are case-insensitive and
// never fail: unknown crops resolve to the default profile so the advisory
// pipeline degrades instead of erroring on a new crop name.
type Catalog struct {
	crops    map[string]CropProfile
	fallback CropProfile
}

// NewCatalog builds a catalog from the built-in district defaults.
func NewCatalog() *Catalog {
	crops := make(map[string]CropProfile, len(defaultProfiles))
	for _, p := range defaultProfiles {
		crops[p.Name] = p
	}
	return &Catalog{crops: crops, fallback: defaultFallback}
}

// Load builds the default catalog and, when path is non-empty, overlays it
// with profiles from a YAML file. Overlay entries replace same-named
// defaults; new names extend the catalog.
func Load(path string) (*Catalog, error) {
	catalog := NewCatalog()
	if path == "" {
		return catalog, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crop catalog %s: %w", path, err)
	}

	var specs map[string]cropSpec
	if err := yaml.Unmarshal(content, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse crop catalog %s: %w", path, err)
	}

	for name, spec := range specs {
		profile, err := spec.toProfile(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, fmt.Errorf("crop catalog %s: %w", path, err)
		}
		catalog.crops[profile.Name] = profile
	}

	return catalog, nil
}

// Profile returns the profile for the named crop. Unknown crops get the
// default profile carrying the requested name, so reports still show what
// the farmer grows.
func (c *Catalog) Profile(name string) CropProfile {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := c.crops[key]; ok {
		return p
	}
	p := c.fallback
	if key != "" {
		p.Name = key
	}
	return p
}

// Has reports whether the crop has its own profile (not the fallback).
func (c *Catalog) Has(name string) bool {
	_, ok := c.crops[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Names returns all catalogued crop names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.crops))
	for name := range c.crops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the fallback profile used for unknown crops.
func (c *Catalog) Default() CropProfile {
	return c.fallback
}

// cropSpec is the YAML shape of one catalog entry.
type cropSpec struct {
	BaseYieldPerAcre float64 `yaml:"base_yield_per_acre"`
	MinYieldPerAcre  float64 `yaml:"min_yield_per_acre"`
	MaxYieldPerAcre  float64 `yaml:"max_yield_per_acre"`
	TemperatureC     Range   `yaml:"temperature_c"`
	RainfallMM       Range   `yaml:"rainfall_mm"`
	HumidityPct      Range   `yaml:"humidity_pct"`
	AvgPrice         float64 `yaml:"avg_price"`
	MinPrice         float64 `yaml:"min_price"`
	MaxPrice         float64 `yaml:"max_price"`
	PeakMonths       []int   `yaml:"peak_months"`
	LowMonths        []int   `yaml:"low_months"`
}

func (s cropSpec) toProfile(name string) (CropProfile, error) {
	if name == "" {
		return CropProfile{}, fmt.Errorf("crop entry with empty name")
	}
	if s.BaseYieldPerAcre <= 0 {
		return CropProfile{}, fmt.Errorf("crop %s: base yield must be positive", name)
	}
	if s.MinYieldPerAcre > s.BaseYieldPerAcre || s.BaseYieldPerAcre > s.MaxYieldPerAcre {
		return CropProfile{}, fmt.Errorf("crop %s: yields must satisfy min <= base <= max", name)
	}
	if s.MinPrice <= 0 || s.MinPrice > s.AvgPrice || s.AvgPrice > s.MaxPrice {
		return CropProfile{}, fmt.Errorf("crop %s: prices must satisfy 0 < min <= avg <= max", name)
	}
	for _, r := range []struct {
		label string
		rng   Range
	}{
		{"temperature_c", s.TemperatureC},
		{"rainfall_mm", s.RainfallMM},
		{"humidity_pct", s.HumidityPct},
	} {
		if r.rng.Lo > r.rng.Hi {
			return CropProfile{}, fmt.Errorf("crop %s: %s range is inverted", name, r.label)
		}
	}

	peak, err := toMonths(s.PeakMonths)
	if err != nil {
		return CropProfile{}, fmt.Errorf("crop %s: peak_months: %w", name, err)
	}
	low, err := toMonths(s.LowMonths)
	if err != nil {
		return CropProfile{}, fmt.Errorf("crop %s: low_months: %w", name, err)
	}

	return CropProfile{
		Name:             name,
		BaseYieldPerAcre: s.BaseYieldPerAcre,
		MinYieldPerAcre:  s.MinYieldPerAcre,
		MaxYieldPerAcre:  s.MaxYieldPerAcre,
		OptimalTempC:     s.TemperatureC,
		OptimalRainfall:  s.RainfallMM,
		OptimalHumidity:  s.HumidityPct,
		AvgPrice:         s.AvgPrice,
		MinPrice:         s.MinPrice,
		MaxPrice:         s.MaxPrice,
		PeakMonths:       peak,
		LowMonths:        low,
	}, nil
}

func toMonths(values []int) ([]time.Month, error) {
	months := make([]time.Month, 0, len(values))
	for _, v := range values {
		if v < 1 || v > 12 {
			return nil, fmt.Errorf("month %d outside 1-12", v)
		}
		months = append(months, time.Month(v))
	}
	return months, nil
}
