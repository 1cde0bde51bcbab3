package advisor

import "time"

// FormInput is one set of field measurements submitted for a recommendation.
type FormInput struct {
	Soil     string  `json:"soil"`
	PH       float64 `json:"ph"`
	N        float64 `json:"n"`
	P        float64 `json:"p"`
	K        float64 `json:"k"`
	Rain     float64 `json:"rain"`
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Location string  `json:"location,omitempty"`
}

// NormalizedResult is the canonical shape every recommendation payload is
// reduced to, whatever envelope or key spelling the upstream used.
type NormalizedResult struct {
	Recommendation string   `json:"recommendation"`
	Explanation    string   `json:"explanation"`
	Details        any      `json:"details"`
	GrowingTips    []string `json:"growing_tips"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Error          string   `json:"error,omitempty"`
	// Raw holds the response text when it could not be parsed as JSON.
	Raw string `json:"__raw,omitempty"`
}

func (r NormalizedResult) Empty() bool {
	return r.Recommendation == "" && r.Explanation == "" && r.Details == nil && len(r.GrowingTips) == 0
}

type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e Entry) String() string {
	if e.Key == "" {
		return e.Value
	}
	return e.Key + ": " + e.Value
}

const Placeholder = "—"

type DetailsView struct {
	SoilType         string  `json:"soil_type"`
	PHRange          string  `json:"ph_range"`
	TemperatureRange string  `json:"temperature_range"`
	HumidityRange    string  `json:"humidity_range"`
	Rainfall         string  `json:"rainfall"`
	Nutrients        []Entry `json:"nutrients,omitempty"`
	Additional       []Entry `json:"additional,omitempty"`
}

// Snapshot is a successful submission kept by the caller for a later save.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Name      string           `json:"name,omitempty"`
	Location  string           `json:"location,omitempty"`
	Input     FormInput        `json:"input"`
	Result    NormalizedResult `json:"result"`
}

// HistoryRecord is the body posted to the history endpoint.
type HistoryRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	Input          FormInput `json:"input"`
	Recommendation string    `json:"recommendation"`
	Explanation    string    `json:"explanation"`
	Details        any       `json:"details"`
	GrowingTips    []string  `json:"growing_tips"`
}

func (s *Snapshot) HistoryRecord() HistoryRecord {
	tips := s.Result.GrowingTips
	if tips == nil {
		tips = []string{}
	}
	return HistoryRecord{
		Timestamp:      s.Timestamp,
		Name:           s.Name,
		Location:       s.Location,
		Input:          s.Input,
		Recommendation: s.Result.Recommendation,
		Explanation:    s.Result.Explanation,
		Details:        s.Result.Details,
		GrowingTips:    tips,
	}
}
