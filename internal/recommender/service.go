package recommender

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

const maxModelOutput = 2000

// Response is the canonical body the recommendation endpoint returns.
type Response struct {
	Recommendation string   `json:"recommendation"`
	Explanation    string   `json:"explanation"`
	Confidence     *float64 `json:"confidence"`
	Details        any      `json:"details"`
	GrowingTips    []string `json:"growing_tips"`
}

// Error is a failed recommendation with the HTTP status and body fields the
// endpoint reports.
type Error struct {
	Status      int
	Message     string
	Detail      string
	ModelOutput string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func (e *Error) Body() map[string]any {
	body := map[string]any{"error": e.Message}
	if e.Detail != "" {
		body["detail"] = e.Detail
	}
	if e.ModelOutput != "" {
		body["model_output"] = e.ModelOutput
	}
	return body
}

type Service struct {
	caller LLMCaller
	prefs  *Preferences
	log    *zap.Logger
}

func NewService(caller LLMCaller, prefs *Preferences, log *zap.Logger) *Service {
	if prefs == nil {
		prefs = DefaultPreferences()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{caller: caller, prefs: prefs, log: log}
}

// Recommend asks the model for one crop and fills gaps in its answer from the
// preference table and the tip heuristics.
func (s *Service) Recommend(ctx context.Context, in advisor.FormInput) (*Response, error) {
	var (
		raw string
		err error
	)
	if scorer, ok := s.caller.(InputScorer); ok {
		raw, err = scorer.Score(ctx, in)
	} else {
		raw, err = s.caller.GenerateJSON(ctx, buildPrompt(in))
	}
	if err != nil {
		s.log.Error("model call failed", zap.Error(err))
		return nil, &Error{Status: http.StatusBadGateway, Message: "Model API error", Detail: err.Error()}
	}

	blob, ok := extractJSON(raw)
	if !ok {
		short := raw
		if len(short) >= maxModelOutput {
			short = advisor.Truncate(short, maxModelOutput-100) + "..."
		}
		s.log.Warn("model output was not JSON", zap.Int("len", len(raw)))
		return nil, &Error{Status: http.StatusBadGateway, Message: "Could not parse JSON from model output", ModelOutput: short}
	}

	model := advisor.Normalize(blob)
	details := model.Details
	if m, isMap := details.(map[string]any); details == nil || (isMap && len(m) == 0) {
		details = s.prefs.Details(model.Recommendation)
	}

	resp := &Response{
		Recommendation: model.Recommendation,
		Explanation:    model.Explanation,
		Confidence:     model.Confidence,
		Details:        details,
		GrowingTips:    mergeTips(model.GrowingTips, generatedTips(in)),
	}
	s.log.Info("recommendation produced",
		zap.String("recommendation", resp.Recommendation),
		zap.Int("tips", len(resp.GrowingTips)))
	return resp, nil
}
