package recommender

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

var requiredFields = []string{"soil", "ph", "n", "p", "k", "rain", "temp", "humidity"}

// DecodeInput reads a form submission. The body may be the input itself or a
// gateway proxy event carrying it as a JSON string in "body". Numbers sent as
// strings are accepted.
func DecodeInput(blob []byte) (advisor.FormInput, error) {
	var in advisor.FormInput
	body, _ := advisor.UnwrapEnvelope(blob)
	if !gjson.ValidBytes(body) {
		return in, &Error{Status: http.StatusBadRequest, Message: "Invalid JSON in request body"}
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return in, &Error{Status: http.StatusBadRequest, Message: "Invalid JSON in request body"}
	}
	for _, f := range requiredFields {
		if v := doc.Get(f); !v.Exists() || v.Type == gjson.Null {
			return in, &Error{Status: http.StatusBadRequest, Message: "Missing field: " + f}
		}
	}

	in.Soil = singleLine(doc.Get("soil").String())
	in.Location = singleLine(doc.Get("location").String())
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"ph", &in.PH}, {"n", &in.N}, {"p", &in.P}, {"k", &in.K},
		{"rain", &in.Rain}, {"temp", &in.Temp}, {"humidity", &in.Humidity},
	} {
		v := doc.Get(f.key)
		switch v.Type {
		case gjson.Number:
			*f.dst = v.Num
		case gjson.String:
			n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
			if err != nil {
				return in, &Error{Status: http.StatusBadRequest, Message: "Invalid field: " + f.key}
			}
			*f.dst = n
		default:
			return in, &Error{Status: http.StatusBadRequest, Message: "Invalid field: " + f.key}
		}
	}
	return in, nil
}

// singleLine folds runs of whitespace, newlines included, into one space so
// free text cannot add lines to the prompt.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
