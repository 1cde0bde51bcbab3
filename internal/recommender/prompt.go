package recommender

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

const promptHeader = `Given farm parameters, recommend the single best crop and return a JSON object only (no extra text) with these keys:
- recommendation (string),
- explanation (string),
- confidence (0-1 float),
- details (object; optional, may include preferred ranges such as optimal_soil_type, optimal_pH_range, temperature_range, humidity_range, rainfall_requirement, nutrient_requirements),
- growing_tips (array of strings; optional).

Return valid JSON only.

Input:
`

type promptField struct {
	label string
	get   func(advisor.FormInput) string
	set   func(*advisor.FormInput, string) error
}

func numberField(label string, ptr func(*advisor.FormInput) *float64) promptField {
	return promptField{
		label: label,
		get: func(in advisor.FormInput) string {
			return strconv.FormatFloat(*ptr(&in), 'f', -1, 64)
		},
		set: func(in *advisor.FormInput, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			*ptr(in) = f
			return nil
		},
	}
}

var promptFields = []promptField{
	{
		label: "SOIL",
		get:   func(in advisor.FormInput) string { return in.Soil },
		set:   func(in *advisor.FormInput, v string) error { in.Soil = v; return nil },
	},
	numberField("pH", func(in *advisor.FormInput) *float64 { return &in.PH }),
	numberField("N", func(in *advisor.FormInput) *float64 { return &in.N }),
	numberField("P", func(in *advisor.FormInput) *float64 { return &in.P }),
	numberField("K", func(in *advisor.FormInput) *float64 { return &in.K }),
	numberField("RAINFALL_MM", func(in *advisor.FormInput) *float64 { return &in.Rain }),
	numberField("TEMPERATURE_C", func(in *advisor.FormInput) *float64 { return &in.Temp }),
	numberField("HUMIDITY_PERCENT", func(in *advisor.FormInput) *float64 { return &in.Humidity }),
	{
		label: "LOCATION",
		get: func(in advisor.FormInput) string {
			if strings.TrimSpace(in.Location) == "" {
				return "unknown"
			}
			return in.Location
		},
		set: func(in *advisor.FormInput, v string) error {
			if v != "unknown" {
				in.Location = v
			}
			return nil
		},
	},
}

func buildPrompt(in advisor.FormInput) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, f := range promptFields {
		b.WriteString(f.label + ": " + f.get(in) + "\n")
	}
	return b.String()
}

// parsePromptInput recovers the field parameters from a prompt built by
// buildPrompt.
func parsePromptInput(prompt string) (advisor.FormInput, error) {
	var in advisor.FormInput
	idx := strings.LastIndex(prompt, "\nInput:\n")
	if idx < 0 {
		return in, fmt.Errorf("prompt has no input section")
	}
	seen := map[string]bool{}
	sc := bufio.NewScanner(strings.NewReader(prompt[idx+len("\nInput:\n"):]))
	for sc.Scan() {
		label, value, ok := strings.Cut(sc.Text(), ": ")
		if !ok {
			continue
		}
		for _, f := range promptFields {
			if f.label == label {
				if err := f.set(&in, strings.TrimSpace(value)); err != nil {
					return in, err
				}
				seen[label] = true
			}
		}
	}
	for _, f := range promptFields {
		if !seen[f.label] {
			return in, fmt.Errorf("prompt missing %s", f.label)
		}
	}
	return in, nil
}
