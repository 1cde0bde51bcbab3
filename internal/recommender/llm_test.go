package recommender

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

type mockMessager struct {
	params   anthropic.MessageNewParams
	response *anthropic.Message
	err      error
}

func (m *mockMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.params = params
	return m.response, m.err
}

func withMockClient(mock *mockMessager) func() {
	old := newAnthropicClient
	newAnthropicClient = func(_ string) AnthropicMessager { return mock }
	return func() { newAnthropicClient = old }
}

func TestAnthropicCallerConcatenatesTextBlocks(t *testing.T) {
	mock := &mockMessager{response: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: `{"recommendation":`},
			{Type: "thinking", Text: "ignored"},
			{Type: "text", Text: `"Rice"}`},
		},
	}}
	defer withMockClient(mock)()

	caller, err := NewAnthropicCaller("test-key", "")
	if err != nil {
		t.Fatalf("new caller: %v", err)
	}
	out, err := caller.GenerateJSON(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != `{"recommendation":"Rice"}` {
		t.Fatalf("unexpected output: %q", out)
	}
	if string(mock.params.Model) != DefaultModel {
		t.Fatalf("expected default model, got %q", mock.params.Model)
	}
}

func TestNewAnthropicCallerRequiresKey(t *testing.T) {
	if _, err := NewAnthropicCaller("  ", ""); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestStripCodeFences(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	if got := stripCodeFences(in); got != "{\"a\":1}" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestExtractJSON(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
		ok   bool
	}{
		{in: `{"recommendation":"Rice"}`, want: `{"recommendation":"Rice"}`, ok: true},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`, ok: true},
		{in: "Sure! Here you go:\n{\"a\":{\"b\":2}}\nHope it helps.", want: `{"a":{"b":2}}`, ok: true},
		{in: "no json here", ok: false},
		{in: "[1,2,3]", ok: false},
		{in: "{broken", ok: false},
	} {
		got, ok := extractJSON(tc.in)
		if ok != tc.ok {
			t.Fatalf("extractJSON(%q) ok=%v want %v", tc.in, ok, tc.ok)
		}
		if ok && string(got) != tc.want {
			t.Fatalf("extractJSON(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestRuleCallerScoresPreferences(t *testing.T) {
	caller := NewRuleCaller(DefaultPreferences())
	in := advisor.FormInput{Soil: "Clay Loam", PH: 6.5, N: 120, P: 80, K: 200, Rain: 1200, Temp: 25, Humidity: 65}
	out, err := caller.GenerateJSON(context.Background(), buildPrompt(in))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var got struct {
		Recommendation string  `json:"recommendation"`
		Confidence     float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Recommendation != "Sorghum" || got.Confidence != 1 {
		t.Fatalf("expected Sorghum with full match, got %+v", got)
	}
}

func TestRuleCallerRejectsForeignPrompt(t *testing.T) {
	if _, err := NewRuleCaller(DefaultPreferences()).GenerateJSON(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for prompt without input section")
	}
}

func TestPromptRoundTrip(t *testing.T) {
	in := advisor.FormInput{Soil: "sandy", PH: 7.25, N: 10, P: 5, K: 40, Rain: 250, Temp: -3.5, Humidity: 30, Location: "Kano"}
	prompt := buildPrompt(in)
	if !strings.Contains(prompt, "TEMPERATURE_C: -3.5") || !strings.Contains(prompt, "LOCATION: Kano") {
		t.Fatalf("unexpected prompt:\n%s", prompt)
	}
	got, err := parsePromptInput(prompt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, in)
	}

	in.Location = ""
	got, err = parsePromptInput(buildPrompt(in))
	if err != nil || got.Location != "" {
		t.Fatalf("unknown location should round trip to empty, got %+v err=%v", got, err)
	}
}
