package recommender

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed preferences.yaml
var defaultPreferencesYAML []byte

type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (b Bounds) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

func (b Bounds) format(unit string) string {
	s := strconv.FormatFloat(b.Min, 'f', -1, 64) + "–" + strconv.FormatFloat(b.Max, 'f', -1, 64)
	if unit != "" {
		s += " " + unit
	}
	return s
}

type CropPreference struct {
	Soils    []string `yaml:"soils"`
	PH       Bounds   `yaml:"ph"`
	Temp     Bounds   `yaml:"temp"`
	Humidity Bounds   `yaml:"humidity"`
	Rain     Bounds   `yaml:"rain"`
}

// Preferences is the fallback crop table. Keys are lower-case crop names.
type Preferences struct {
	Nutrients map[string]string         `yaml:"nutrients"`
	Crops     map[string]CropPreference `yaml:"crops"`
}

func ParsePreferences(blob []byte) (*Preferences, error) {
	var p Preferences
	if err := yaml.Unmarshal(blob, &p); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	if len(p.Crops) == 0 {
		return nil, fmt.Errorf("parse preferences: no crops defined")
	}
	for name, c := range p.Crops {
		for _, b := range []Bounds{c.PH, c.Temp, c.Humidity, c.Rain} {
			if b.Min > b.Max {
				return nil, fmt.Errorf("parse preferences: %s has min > max", name)
			}
		}
	}
	return &p, nil
}

func DefaultPreferences() *Preferences {
	p, err := ParsePreferences(defaultPreferencesYAML)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Preferences) Lookup(crop string) (CropPreference, bool) {
	c, ok := p.Crops[strings.ToLower(strings.TrimSpace(crop))]
	return c, ok
}

// Details renders the table entry for crop in the shape clients project.
// Unknown crops yield an empty map.
func (p *Preferences) Details(crop string) map[string]any {
	pref, ok := p.Lookup(crop)
	if !ok {
		return map[string]any{}
	}
	nutrients := make(map[string]any, len(p.Nutrients))
	for k, v := range p.Nutrients {
		nutrients[k] = v
	}
	return map[string]any{
		"optimal_soil_type":     strings.Join(pref.Soils, ", "),
		"optimal_pH_range":      pref.PH.format(""),
		"nutrient_requirements": nutrients,
		"rainfall_requirement":  pref.Rain.format("mm"),
		"temperature_range":     pref.Temp.format("°C"),
		"humidity_range":        pref.Humidity.format("%"),
	}
}

func (p *Preferences) names() []string {
	names := make([]string, 0, len(p.Crops))
	for name := range p.Crops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
