package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateRendering
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateRendering:
		return "rendering"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recommender is the transport side of one submission.
type Recommender interface {
	Recommend(ctx context.Context, in advisor.FormInput) ([]byte, int, error)
}

type HistorySaver interface {
	SaveHistory(ctx context.Context, rec advisor.HistoryRecord) ([]byte, int, error)
}

// Renderer receives UI updates. Render must leave the previous view in place
// when it returns an error.
type Renderer interface {
	SetLoading(on bool)
	Render(result advisor.NormalizedResult, view advisor.DetailsView) error
	ShowError(err error)
}

type Meta struct {
	Name     string
	Location string
}

// HistoryIDKeys names the fields a save response may carry the new id in.
var HistoryIDKeys = []string{"id", "history_id", "historyId", "record_id", "recordId"}

type Controller struct {
	recommender Recommender
	saver       HistorySaver
	renderer    Renderer
	log         *zap.Logger
	clock       func() time.Time
	observe     func(from, to State)

	mu    sync.Mutex
	state State
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(from, to State)) Option {
	return func(c *Controller) { c.observe = fn }
}

func NewController(rec Recommender, saver HistorySaver, renderer Renderer, opts ...Option) *Controller {
	c := &Controller{
		recommender: rec,
		saver:       saver,
		renderer:    renderer,
		log:         zap.NewNop(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	c.log.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
	if c.observe != nil {
		c.observe(from, to)
	}
}

func (c *Controller) fail(err error) error {
	c.transition(StateError)
	c.renderer.ShowError(err)
	c.log.Warn("submission failed", zap.String("code", advisor.Code(err)), zap.Error(err))
	c.transition(StateIdle)
	return err
}

// Submit validates in, requests one recommendation and renders it. The
// returned snapshot is what Save expects; callers keep it for as long as the
// result should stay saveable.
func (c *Controller) Submit(ctx context.Context, in advisor.FormInput, meta Meta) (*advisor.Snapshot, error) {
	c.transition(StateValidating)
	if err := advisor.Validate(in); err != nil {
		return nil, c.fail(err)
	}
	if in.Location == "" {
		in.Location = meta.Location
	}

	c.transition(StateSubmitting)
	c.renderer.SetLoading(true)
	raw, status, err := c.recommender.Recommend(ctx, in)
	c.renderer.SetLoading(false)
	if err != nil {
		var ne *advisor.NetworkError
		if !errors.As(err, &ne) {
			err = &advisor.NetworkError{Op: "recommend", Err: err}
		}
		return nil, c.fail(err)
	}

	c.transition(StateRendering)
	status = responseStatus(raw, status)
	result := advisor.Normalize(raw)
	if result.Recommendation == "" && result.Error != "" {
		return nil, c.fail(&advisor.UpstreamError{Status: status, Message: result.Error})
	}
	if status >= 400 {
		msg := result.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, c.fail(&advisor.UpstreamError{Status: status, Message: msg})
	}
	if result.Raw != "" && result.Empty() {
		c.log.Warn("response was not a recommendation payload", zap.String("raw", truncate(result.Raw, 500)))
	}
	view := advisor.Project(result.Details)
	if err := c.render(result, view); err != nil {
		return nil, c.fail(fmt.Errorf("render: %w", err))
	}

	snap := &advisor.Snapshot{
		Timestamp: c.clock().UTC(),
		Name:      strings.TrimSpace(meta.Name),
		Location:  strings.TrimSpace(meta.Location),
		Input:     in,
		Result:    result,
	}
	c.log.Info("recommendation rendered",
		zap.String("recommendation", result.Recommendation),
		zap.Int("tips", len(result.GrowingTips)))
	c.transition(StateIdle)
	return snap, nil
}

func (c *Controller) render(result advisor.NormalizedResult, view advisor.DetailsView) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()
	return c.renderer.Render(result, view)
}

// Save posts snap to the history endpoint and returns the id it was stored
// under. A nil snapshot fails with advisor.ErrNoResult without any request.
func (c *Controller) Save(ctx context.Context, snap *advisor.Snapshot) (string, error) {
	if snap == nil {
		return "", advisor.ErrNoResult
	}
	raw, status, err := c.saver.SaveHistory(ctx, snap.HistoryRecord())
	if err != nil {
		var ne *advisor.NetworkError
		if !errors.As(err, &ne) {
			err = &advisor.NetworkError{Op: "save history", Err: err}
		}
		return "", err
	}
	body, _ := advisor.UnwrapEnvelope(raw)
	status = responseStatus(raw, status)
	if status < 200 || status >= 300 {
		return "", &advisor.HistoryAPIError{Status: status, Body: body}
	}
	id := historyID(body)
	if id == "" {
		c.log.Warn("history response carried no id", zap.ByteString("body", body))
	}
	c.log.Info("history saved", zap.String("id", id), zap.String("recommendation", snap.Result.Recommendation))
	return id, nil
}

// responseStatus prefers an envelope statusCode over a 2xx transport status.
func responseStatus(raw []byte, status int) int {
	_, envStatus := advisor.UnwrapEnvelope(raw)
	if envStatus != 0 && status >= 200 && status < 300 {
		return envStatus
	}
	return status
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return advisor.Truncate(s, n) + "..."
}
