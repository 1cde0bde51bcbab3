package advisor

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

var (
	SoilTypeKeys    = Aliases{"optimal_soil_type", "optimalSoilType", "optimal_soil", "soil_type", "soilType", "soil"}
	PHRangeKeys     = Aliases{"optimal_pH_range", "optimal_ph_range", "optimalPhRange", "optimalPHRange", "ph_range", "phRange", "pH_range", "pH", "ph"}
	TemperatureKeys = Aliases{"temperature_range", "temperatureRange", "optimal_temperature", "optimalTemperature", "temp_range", "tempRange", "temperature", "temp"}
	HumidityKeys    = Aliases{"humidity_range", "humidityRange", "optimal_humidity", "optimalHumidity", "humidity"}
	RainfallKeys    = Aliases{"rainfall_requirement", "rainfallRequirement", "rainfall_range", "rainfallRange", "rainfall", "rain"}
	NutrientKeys    = Aliases{"nutrient_requirements", "nutrientRequirements", "nutrients", "npk"}
)

var knownDetailKeys = func() map[string]struct{} {
	known := map[string]struct{}{}
	for _, keys := range []Aliases{SoilTypeKeys, PHRangeKeys, TemperatureKeys, HumidityKeys, RainfallKeys, NutrientKeys} {
		for _, k := range keys {
			known[k] = struct{}{}
		}
	}
	return known
}()

// Project maps a details value onto the fixed panel fields. Keys none of the
// alias lists know about are listed under Additional so unexpected upstream
// schemas still show up.
func Project(details any) DetailsView {
	view := DetailsView{
		SoilType:         Placeholder,
		PHRange:          Placeholder,
		TemperatureRange: Placeholder,
		HumidityRange:    Placeholder,
		Rainfall:         Placeholder,
	}
	m, ok := details.(map[string]any)
	if !ok {
		if !isEmptyValue(details) {
			view.Additional = []Entry{{Key: "details", Value: jsonText(details)}}
		}
		return view
	}

	view.SoilType = pick(m, SoilTypeKeys)
	view.PHRange = pick(m, PHRangeKeys)
	view.TemperatureRange = pick(m, TemperatureKeys)
	view.HumidityRange = pick(m, HumidityKeys)
	view.Rainfall = pick(m, RainfallKeys)
	view.Nutrients = nutrients(m)

	keys := make([]string, 0, len(m))
	for k := range m {
		if _, known := knownDetailKeys[k]; !known {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isEmptyValue(m[k]) {
			continue
		}
		view.Additional = append(view.Additional, Entry{Key: k, Value: jsonText(m[k])})
	}
	return view
}

func pick(m map[string]any, keys Aliases) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || isEmptyValue(v) {
			continue
		}
		return displayText(v)
	}
	return Placeholder
}

func nutrients(m map[string]any) []Entry {
	for _, k := range NutrientKeys {
		v, ok := m[k]
		if !ok || isEmptyValue(v) {
			continue
		}
		nm, isMap := v.(map[string]any)
		if !isMap {
			return []Entry{{Value: displayText(v)}}
		}
		names := make([]string, 0, len(nm))
		for name := range nm {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]Entry, 0, len(names))
		for _, name := range names {
			if isEmptyValue(nm[name]) {
				continue
			}
			out = append(out, Entry{Key: name, Value: displayText(nm[name])})
		}
		return out
	}
	return nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func displayText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return jsonText(v)
}

func jsonText(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
