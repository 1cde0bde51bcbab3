package advisor

import (
	"math"
	"strings"
)

type Range struct {
	Field string
	Label string
	Min   float64
	Max   float64
	value func(FormInput) float64
}

// Ranges is the closed-interval table every numeric input is checked against.
var Ranges = []Range{
	{Field: "ph", Label: "pH", Min: 0, Max: 14, value: func(in FormInput) float64 { return in.PH }},
	{Field: "n", Label: "Nitrogen (N)", Min: 0, Max: 1000, value: func(in FormInput) float64 { return in.N }},
	{Field: "p", Label: "Phosphorus (P)", Min: 0, Max: 1000, value: func(in FormInput) float64 { return in.P }},
	{Field: "k", Label: "Potassium (K)", Min: 0, Max: 1000, value: func(in FormInput) float64 { return in.K }},
	{Field: "rain", Label: "Rainfall (mm)", Min: 0, Max: 10000, value: func(in FormInput) float64 { return in.Rain }},
	{Field: "temp", Label: "Temperature (°C)", Min: -20, Max: 50, value: func(in FormInput) float64 { return in.Temp }},
	{Field: "humidity", Label: "Humidity (%)", Min: 0, Max: 100, value: func(in FormInput) float64 { return in.Humidity }},
}

// Validate checks in against Ranges and reports every violation at once.
func Validate(in FormInput) error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Soil) == "" {
		verr.Missing = append(verr.Missing, "soil")
	}
	for _, r := range Ranges {
		v := r.value(in)
		if math.IsNaN(v) || v < r.Min || v > r.Max {
			verr.Violations = append(verr.Violations, Violation{
				Field: r.Field,
				Label: r.Label,
				Value: v,
				Min:   r.Min,
				Max:   r.Max,
			})
		}
	}
	if len(verr.Violations) == 0 && len(verr.Missing) == 0 {
		return nil
	}
	return verr
}
