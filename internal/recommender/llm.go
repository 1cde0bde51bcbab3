package recommender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

const systemPrompt = "You are an agricultural advisor. Respond with strict JSON only."

const DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), model: model}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   2048,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.2),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// RuleCaller answers prompts offline by scoring the field parameters in the
// prompt against the preference table.
type RuleCaller struct {
	prefs *Preferences
}

func NewRuleCaller(prefs *Preferences) *RuleCaller {
	return &RuleCaller{prefs: prefs}
}

// InputScorer is implemented by callers that answer from the form input
// itself. Service prefers it over GenerateJSON.
type InputScorer interface {
	Score(ctx context.Context, in advisor.FormInput) (string, error)
}

func (r *RuleCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	in, err := parsePromptInput(prompt)
	if err != nil {
		return "", fmt.Errorf("rule caller: %w", err)
	}
	return r.Score(ctx, in)
}

// Score picks the crop whose preferred conditions match the most inputs.
func (r *RuleCaller) Score(_ context.Context, in advisor.FormInput) (string, error) {
	best, score := "", -1
	for _, name := range r.prefs.names() {
		if s := matchScore(r.prefs.Crops[name], in); s > score {
			best, score = name, s
		}
	}
	out, err := json.Marshal(map[string]any{
		"recommendation": titleCase(best),
		"explanation":    fmt.Sprintf("%s matches %d of 5 preferred growing conditions for the given field.", titleCase(best), score),
		"confidence":     float64(score) / 5,
		"details":        map[string]any{},
		"growing_tips":   []string{},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func matchScore(p CropPreference, in advisor.FormInput) int {
	score := 0
	soil := strings.ToLower(in.Soil)
	for _, s := range p.Soils {
		if strings.Contains(soil, s) {
			score++
			break
		}
	}
	for _, ok := range []bool{p.PH.Contains(in.PH), p.Temp.Contains(in.Temp), p.Humidity.Contains(in.Humidity), p.Rain.Contains(in.Rain)} {
		if ok {
			score++
		}
	}
	return score
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var jsonObjectSpan = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON pulls the first JSON object out of model output: the whole
// text, the text inside a code fence, or the widest {...} span.
func extractJSON(text string) ([]byte, bool) {
	for _, candidate := range []string{strings.TrimSpace(text), stripCodeFences(text)} {
		if gjson.Valid(candidate) && gjson.Parse(candidate).IsObject() {
			return []byte(candidate), true
		}
	}
	if m := jsonObjectSpan.FindString(text); m != "" && gjson.Valid(m) {
		return []byte(m), true
	}
	return nil, false
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
