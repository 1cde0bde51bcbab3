package advisor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeDirectPayload(t *testing.T) {
	got := Normalize([]byte(`{"recommendation":"Rice","growing_tips":["Tip A"]}`))
	want := NormalizedResult{Recommendation: "Rice", GrowingTips: []string{"Tip A"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeUnwrapsEnvelope(t *testing.T) {
	inner := map[string]any{
		"recommendation": "Wheat",
		"explanation":    "cool and dry",
		"confidence":     0.8,
		"details":        map[string]any{"optimal_soil_type": "loamy"},
		"growing_tips":   []string{"Sow early"},
	}
	body, _ := json.Marshal(inner)
	env, _ := json.Marshal(map[string]any{
		"statusCode": 200,
		"headers":    map[string]string{"Content-Type": "application/json"},
		"body":       string(body),
	})

	got := Normalize(env)
	conf := 0.8
	want := NormalizedResult{
		Recommendation: "Wheat",
		Explanation:    "cool and dry",
		Details:        map[string]any{"optimal_soil_type": "loamy"},
		GrowingTips:    []string{"Sow early"},
		Confidence:     &conf,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeKeepsEnvelopeWhenBodyIsNotJSON(t *testing.T) {
	got := Normalize([]byte(`{"statusCode":502,"body":"Bad Gateway"}`))
	if got.Recommendation != "" || got.Details != nil {
		t.Fatalf("expected empty canonical fields, got %+v", got)
	}
	if got.Raw != "Bad Gateway" {
		t.Fatalf("expected raw body to be kept for diagnosis, got %q", got.Raw)
	}
}

func TestNormalizeAliases(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want NormalizedResult
	}{
		{
			name: "camel case tips",
			in:   `{"recommendedCrop":"Maize","growingTips":["a","",null,"b"]}`,
			want: NormalizedResult{Recommendation: "Maize", GrowingTips: []string{"a", "b"}},
		},
		{
			name: "empty primary falls through to next alias",
			in:   `{"recommendation":"","crop":"Sorghum","reason":"heat tolerant"}`,
			want: NormalizedResult{Recommendation: "Sorghum", Explanation: "heat tolerant"},
		},
		{
			name: "nested body details",
			in:   `{"recommendation":"Rice","body":{"result":{"soil":"clay"}}}`,
			want: NormalizedResult{Recommendation: "Rice", Details: map[string]any{"soil": "clay"}},
		},
		{
			name: "details as json string",
			in:   `{"details":"{\"ph_range\":\"5-6\"}"}`,
			want: NormalizedResult{Details: map[string]any{"ph_range": "5-6"}},
		},
		{
			name: "details as plain string",
			in:   `{"details":"grows anywhere"}`,
			want: NormalizedResult{Details: "grows anywhere"},
		},
		{
			name: "error payload",
			in:   `{"error":"Model API error","detail":"timeout"}`,
			want: NormalizedResult{Error: "Model API error"},
		},
		{
			name: "error object",
			in:   `{"ok":false,"error":{"code":"internal","message":"boom"}}`,
			want: NormalizedResult{Error: "boom"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize([]byte(tc.in))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeNeverPanics(t *testing.T) {
	deep := `{"recommendation":"Deep"}`
	for i := 0; i < 12; i++ {
		b, _ := json.Marshal(map[string]any{"statusCode": 200, "body": deep})
		deep = string(b)
	}
	for _, in := range []string{
		"",
		"   ",
		"not json at all",
		"{",
		"null",
		"42",
		`"just a string"`,
		"[1,2,3]",
		`{"body":null}`,
		`{"body":"[]"}`,
		strings.Repeat("[", 500),
		deep,
	} {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("normalize panicked on %q: %v", in, r)
				}
			}()
			_ = Normalize([]byte(in))
		}()
	}
}

func TestNormalizeInvalidJSONKeepsRawText(t *testing.T) {
	got := Normalize([]byte("<html>oops</html>"))
	if got.Raw != "<html>oops</html>" {
		t.Fatalf("unexpected raw: %q", got.Raw)
	}
	if !got.Empty() {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestUnwrapEnvelope(t *testing.T) {
	body, status := UnwrapEnvelope([]byte(`{"statusCode":201,"headers":{},"body":"{\"id\":\"abc\"}"}`))
	if status != 201 {
		t.Fatalf("expected status 201, got %d", status)
	}
	if string(body) != `{"id":"abc"}` {
		t.Fatalf("unexpected body: %s", body)
	}

	body, status = UnwrapEnvelope([]byte(`{"id":"direct"}`))
	if status != 0 || string(body) != `{"id":"direct"}` {
		t.Fatalf("direct payload changed: status=%d body=%s", status, body)
	}
}
