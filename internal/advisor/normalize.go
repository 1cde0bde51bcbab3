package advisor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// maxEnvelopeDepth bounds how many nested {statusCode, body} wrappers are peeled.
const maxEnvelopeDepth = 4

// Aliases is an ordered list of gjson paths that name the same concept.
// Resolution takes the first path holding a usable value.
type Aliases []string

var (
	RecommendationKeys = Aliases{"recommendation", "recommended_crop", "recommendedCrop", "crop"}
	ExplanationKeys    = Aliases{"explanation", "reason", "rationale"}
	DetailsKeys        = Aliases{"details", "crop_details", "cropDetails", "body.details", "body.result", "body.data"}
	GrowingTipsKeys    = Aliases{"growing_tips", "growingTips", "tips"}
	ConfidenceKeys     = Aliases{"confidence", "score"}
	ErrorKeys          = Aliases{"error", "errorMessage", "message"}
)

// Normalize reduces a recommendation response body to the canonical result.
// It never fails: text that is not JSON comes back with Raw set and every
// canonical field empty.
func Normalize(raw []byte) NormalizedResult {
	var out NormalizedResult
	if !gjson.ValidBytes(raw) {
		out.Raw = string(raw)
		return out
	}
	doc, _, inner := unwrap(gjson.ParseBytes(raw))
	out.Raw = inner

	out.Recommendation, _ = resolve(doc, RecommendationKeys, decodeText)
	out.Explanation, _ = resolve(doc, ExplanationKeys, decodeText)
	out.Details, _ = resolve(doc, DetailsKeys, decodeDetails)
	out.GrowingTips, _ = resolve(doc, GrowingTipsKeys, decodeTips)
	if c, ok := resolve(doc, ConfidenceKeys, decodeNumber); ok {
		out.Confidence = &c
	}
	out.Error, _ = resolve(doc, ErrorKeys, decodeErrorText)
	return out
}

// UnwrapEnvelope returns the innermost payload of raw and the statusCode of
// the outermost envelope (0 when raw is not an envelope). Input that is not
// JSON is returned unchanged.
func UnwrapEnvelope(raw []byte) ([]byte, int) {
	if !gjson.ValidBytes(raw) {
		return raw, 0
	}
	doc, status, _ := unwrap(gjson.ParseBytes(raw))
	return []byte(doc.Raw), status
}

// unwrap peels envelopes whose body is a JSON-encoded object. When a body is
// present but not JSON, the envelope is kept and the body text is returned.
func unwrap(doc gjson.Result) (gjson.Result, int, string) {
	status := 0
	for depth := 0; depth < maxEnvelopeDepth && doc.IsObject(); depth++ {
		body := doc.Get("body")
		if body.Type != gjson.String {
			break
		}
		if depth == 0 {
			if sc := doc.Get("statusCode"); sc.Type == gjson.Number {
				status = int(sc.Int())
			}
		}
		if !gjson.Valid(body.Str) {
			return doc, status, body.Str
		}
		inner := gjson.Parse(body.Str)
		if !inner.IsObject() {
			break
		}
		doc = inner
	}
	return doc, status, ""
}

func resolve[T any](doc gjson.Result, keys Aliases, decode func(gjson.Result) (T, bool)) (T, bool) {
	if doc.IsObject() {
		for _, k := range keys {
			v := doc.Get(k)
			if !v.Exists() || v.Type == gjson.Null {
				continue
			}
			if out, ok := decode(v); ok {
				return out, true
			}
		}
	}
	var zero T
	return zero, false
}

func decodeText(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		if strings.TrimSpace(v.Str) == "" {
			return "", false
		}
		return v.Str, true
	case gjson.Number:
		return v.Raw, true
	}
	return "", false
}

func decodeErrorText(v gjson.Result) (string, bool) {
	if v.IsObject() {
		if msg, ok := decodeText(v.Get("message")); ok {
			return msg, true
		}
		return v.Raw, len(v.Map()) > 0
	}
	return decodeText(v)
}

func decodeNumber(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return f, err == nil
	}
	return 0, false
}

func decodeTips(v gjson.Result) ([]string, bool) {
	if v.Type == gjson.String {
		if strings.TrimSpace(v.Str) == "" {
			return nil, false
		}
		return []string{v.Str}, true
	}
	if !v.IsArray() {
		return nil, false
	}
	var tips []string
	for _, item := range v.Array() {
		switch {
		case item.Type == gjson.Null:
		case item.Type == gjson.String:
			if strings.TrimSpace(item.Str) != "" {
				tips = append(tips, item.Str)
			}
		default:
			tips = append(tips, item.Raw)
		}
	}
	return tips, len(tips) > 0
}

// decodeDetails accepts an object, a non-empty array, or a string. A string is
// parsed as JSON when possible and otherwise kept verbatim.
func decodeDetails(v gjson.Result) (any, bool) {
	switch {
	case v.IsObject():
		m, ok := v.Value().(map[string]any)
		return m, ok && len(m) > 0
	case v.IsArray():
		items, ok := v.Value().([]any)
		return items, ok && len(items) > 0
	case v.Type == gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return nil, false
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil || parsed == nil {
			return v.Str, true
		}
		return parsed, true
	}
	return nil, false
}
