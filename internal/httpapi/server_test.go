package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/joelkehle/cropadvisor/internal/advisor"
	"github.com/joelkehle/cropadvisor/internal/history"
	"github.com/joelkehle/cropadvisor/internal/recommender"
)

type fakeCaller struct {
	out   string
	err   error
	calls int
}

func (f *fakeCaller) GenerateJSON(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.out, f.err
}

func newServerForTest(t *testing.T, caller recommender.LLMCaller, envelope bool) http.Handler {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewServer(recommender.NewService(caller, nil, nil), store, Config{Envelope: envelope})
}

const testOrigin = "https://fields.example"

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var blob []byte
	switch b := body.(type) {
	case string:
		blob = []byte(b)
	default:
		var err error
		blob, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(blob))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", testOrigin)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func validForm() map[string]any {
	return map[string]any{
		"soil": "clay", "ph": 6.5, "n": 120, "p": 80, "k": 200,
		"rain": 1200, "temp": 25, "humidity": 65, "location": "Delta",
	}
}

func TestRecommendReturnsModelAnswer(t *testing.T) {
	caller := &fakeCaller{out: `{"recommendation":"Rice","explanation":"wet and warm","confidence":0.8}`}
	h := newServerForTest(t, caller, false)

	rr := postJSON(t, h, "/recommend", validForm())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	body := gjson.Parse(rr.Body.String())
	require.Equal(t, "Rice", body.Get("recommendation").String())
	require.Equal(t, 0.8, body.Get("confidence").Float())
	require.Equal(t, "clay, loamy", body.Get("details.optimal_soil_type").String())
	require.True(t, body.Get("growingTips").IsArray())
}

func TestRecommendAcceptsProxyEventAndStringNumbers(t *testing.T) {
	caller := &fakeCaller{out: `{"recommendation":"Maize"}`}
	h := newServerForTest(t, caller, false)

	inner := `{"soil":"loamy","ph":"6.2","n":"90","p":40,"k":120,"rain":"800","temp":22,"humidity":55}`
	event, err := json.Marshal(map[string]any{"body": inner})
	require.NoError(t, err)

	rr := postJSON(t, h, "/recommend", string(event))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "Maize", gjson.Get(rr.Body.String(), "recommendation").String())
}

func TestRecommendMissingField(t *testing.T) {
	caller := &fakeCaller{}
	h := newServerForTest(t, caller, false)

	form := validForm()
	delete(form, "humidity")
	rr := postJSON(t, h, "/recommend", form)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Missing field: humidity", gjson.Get(rr.Body.String(), "error").String())
	require.Zero(t, caller.calls)
}

func TestRecommendInvalidJSON(t *testing.T) {
	h := newServerForTest(t, &fakeCaller{}, false)
	rr := postJSON(t, h, "/recommend", "{not json")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Invalid JSON in request body", gjson.Get(rr.Body.String(), "error").String())
}

func TestRecommendRangeViolations(t *testing.T) {
	caller := &fakeCaller{}
	h := newServerForTest(t, caller, false)

	form := validForm()
	form["ph"] = 15
	form["humidity"] = 120
	rr := postJSON(t, h, "/recommend", form)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	violations := gjson.Get(rr.Body.String(), "violations.#.field").Array()
	require.Len(t, violations, 2)
	require.Equal(t, "ph", violations[0].String())
	require.Equal(t, "humidity", violations[1].String())
	require.Zero(t, caller.calls)
}

func TestRecommendModelFailureIsBadGateway(t *testing.T) {
	h := newServerForTest(t, &fakeCaller{err: errors.New("quota exceeded")}, false)
	rr := postJSON(t, h, "/recommend", validForm())
	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Equal(t, "Model API error", gjson.Get(rr.Body.String(), "error").String())
	require.Equal(t, "quota exceeded", gjson.Get(rr.Body.String(), "detail").String())
}

func preflight(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodOptions, path, nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPreflight(t *testing.T) {
	h := newServerForTest(t, &fakeCaller{}, false)
	rr := preflight(t, h, "/recommend")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, http.MethodPost, rr.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type", rr.Header().Get("Access-Control-Allow-Headers"))
	require.Empty(t, rr.Body.String())
}

func TestPreflightInEnvelopeMode(t *testing.T) {
	h := newServerForTest(t, &fakeCaller{}, true)
	rr := preflight(t, h, "/history")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	env := gjson.Parse(rr.Body.String())
	require.Equal(t, int64(200), env.Get("statusCode").Int())
	require.Equal(t, "", env.Get("body").String())
	require.Equal(t, "Content-Type,Authorization", env.Get("headers.Access-Control-Allow-Headers").String())
}

func TestRecommendOfflineScorerIgnoresLineBreaksInSoil(t *testing.T) {
	prefs := recommender.DefaultPreferences()
	h := newServerForTest(t, recommender.NewRuleCaller(prefs), false)

	form := validForm()
	form["soil"] = "clay\npH: acidic"
	rr := postJSON(t, h, "/recommend", form)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotEmpty(t, gjson.Get(rr.Body.String(), "recommendation").String())
}

func TestEnvelopeModeWrapsResponses(t *testing.T) {
	h := newServerForTest(t, &fakeCaller{out: `{"recommendation":"Wheat"}`}, true)

	rr := postJSON(t, h, "/recommend", validForm())
	require.Equal(t, http.StatusOK, rr.Code)
	env := gjson.Parse(rr.Body.String())
	require.Equal(t, int64(200), env.Get("statusCode").Int())
	require.Equal(t, "*", env.Get("headers.Access-Control-Allow-Origin").String())
	require.Equal(t, "Wheat", gjson.Get(env.Get("body").String(), "recommendation").String())

	// The client-side normalizer sees through the envelope.
	res := advisor.Normalize(rr.Body.Bytes())
	require.Equal(t, "Wheat", res.Recommendation)

	form := validForm()
	delete(form, "soil")
	rr = postJSON(t, h, "/recommend", form)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(400), gjson.Get(rr.Body.String(), "statusCode").Int())
}

func TestHistoryRoundTrip(t *testing.T) {
	h := newServerForTest(t, &fakeCaller{}, false)

	rec := advisor.HistoryRecord{
		Name:           "North field",
		Location:       "Delta",
		Input:          advisor.FormInput{Soil: "clay", PH: 6.5},
		Recommendation: "Rice",
		GrowingTips:    []string{},
	}
	rr := postJSON(t, h, "/history", rec)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := gjson.Get(rr.Body.String(), "id").String()
	require.NotEmpty(t, id)
	require.True(t, gjson.Get(rr.Body.String(), "timestamp").Exists())

	rr = get(t, h, "/history/"+id)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Rice", gjson.Get(rr.Body.String(), "record.recommendation").String())

	rr = get(t, h, "/history?limit=5")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(1), gjson.Get(rr.Body.String(), "records.#").Int())
	require.Equal(t, id, gjson.Get(rr.Body.String(), "records.0.id").String())
}

func TestHistoryErrors(t *testing.T) {
	h := newServerForTest(t, &fakeCaller{}, false)

	rr := get(t, h, "/history/does-not-exist")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = postJSON(t, h, "/history", map[string]any{"name": "empty"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), "recommendation"), rr.Body.String())

	rr = postJSON(t, h, "/history", "[1,2")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoutesOmittedWithoutServices(t *testing.T) {
	h := NewServer(nil, nil, Config{})
	rr := postJSON(t, h, "/recommend", validForm())
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	require.False(t, gjson.Get(rr.Body.String(), "history").Bool())
}
