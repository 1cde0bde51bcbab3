package advisorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

var tracer = otel.Tracer("github.com/joelkehle/cropadvisor/internal/advisorclient")

// Client talks to the recommendation and history endpoints. Each call is a
// single attempt; non-2xx responses are returned with their status rather
// than as errors so callers can inspect enveloped error bodies.
type Client struct {
	recommendURL string
	historyURL   string
	http         *http.Client
	log          *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(recommendURL, historyURL string, opts ...Option) *Client {
	c := &Client{
		recommendURL: strings.TrimSpace(recommendURL),
		historyURL:   strings.TrimRight(strings.TrimSpace(historyURL), "/"),
		http:         &http.Client{Timeout: 30 * time.Second},
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) DoJSON(ctx context.Context, method, target string, payload []byte) ([]byte, int, error) {
	ctx, span := tracer.Start(ctx, method+" "+target, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, &advisor.NetworkError{Op: method + " " + target, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn("request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, 0, &advisor.NetworkError{Op: method + " " + target, Err: err}
	}
	defer resp.Body.Close()
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, resp.StatusCode, &advisor.NetworkError{Op: "read " + target, Err: err}
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.Int("http.response.body.size", len(blob)),
	)
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("status=%d", resp.StatusCode))
	}
	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return blob, resp.StatusCode, nil
}

// Recommend posts the form input and returns the raw response body.
func (c *Client) Recommend(ctx context.Context, in advisor.FormInput) ([]byte, int, error) {
	blob, err := json.Marshal(in)
	if err != nil {
		return nil, 0, err
	}
	return c.DoJSON(ctx, http.MethodPost, c.recommendURL, blob)
}

func (c *Client) SaveHistory(ctx context.Context, rec advisor.HistoryRecord) ([]byte, int, error) {
	blob, err := json.Marshal(rec)
	if err != nil {
		return nil, 0, err
	}
	return c.DoJSON(ctx, http.MethodPost, c.historyURL, blob)
}

type HistoryEntry struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"created_at"`
	Record    advisor.HistoryRecord `json:"record"`
}

// ListHistory fetches the most recent saved records, newest first.
func (c *Client) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	target := c.historyURL
	if limit > 0 {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		target += "?" + q.Encode()
	}
	out, status, err := c.DoJSON(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	body, envStatus := advisor.UnwrapEnvelope(out)
	if envStatus != 0 && status < 300 {
		status = envStatus
	}
	if status < 200 || status >= 300 {
		return nil, &advisor.HistoryAPIError{Status: status, Body: body}
	}
	var resp struct {
		Records []HistoryEntry `json:"records"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &advisor.ParseError{What: "history list", Err: err}
	}
	return resp.Records, nil
}
