package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/joelkehle/cropadvisor/internal/advisor"
	"github.com/joelkehle/cropadvisor/internal/history"
	"github.com/joelkehle/cropadvisor/internal/recommender"
)

const maxBodyBytes = 1 << 20

type Recommender interface {
	Recommend(ctx context.Context, in advisor.FormInput) (*recommender.Response, error)
}

type HistoryStore interface {
	Save(ctx context.Context, rec advisor.HistoryRecord) (history.Entry, error)
	List(ctx context.Context, limit int) ([]history.Entry, error)
	Get(ctx context.Context, id string) (history.Entry, error)
}

type Config struct {
	// Envelope wraps every response as {statusCode, headers, body} with an
	// HTTP 200, the way a non-proxy API gateway integration returns it.
	Envelope bool
	Logger   *zap.Logger
}

type Server struct {
	rec      Recommender
	hist     HistoryStore
	envelope bool
	log      *zap.Logger
}

// NewServer mounts the recommendation and history endpoints. Either service
// may be nil, in which case its routes are not registered.
func NewServer(rec Recommender, hist HistoryStore, cfg Config) http.Handler {
	s := &Server{rec: rec, hist: hist, envelope: cfg.Envelope, log: cfg.Logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     corsMethods,
		AllowedHeaders:     corsAllowed,
		OptionsPassthrough: s.envelope,
	}))
	if s.envelope {
		r.Use(s.envelopePreflight)
	}

	r.Get("/healthz", s.handleHealth)
	if rec != nil {
		r.Post("/recommend", s.handleRecommend)
	}
	if hist != nil {
		r.Post("/history", s.handleSaveHistory)
		r.Get("/history", s.handleListHistory)
		r.Get("/history/{id}", s.handleGetHistory)
	}
	return r
}

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsAllowed = []string{"Content-Type", "Authorization"}
)

// corsHeaders are repeated inside envelope responses, where the gateway
// rather than this server sets the real headers.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": strings.Join(corsAllowed, ","),
	"Access-Control-Allow-Methods": strings.Join(corsMethods, ","),
}

// envelopePreflight answers preflights passed through by the cors handler
// with an envelope.
func (s *Server) envelopePreflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			s.respond(w, http.StatusOK, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respond writes payload directly or inside a gateway envelope. A nil payload
// in envelope mode yields an empty body string.
func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	if !s.envelope {
		writeJSON(w, status, payload)
		return
	}
	body := ""
	if payload != nil {
		blob, err := json.Marshal(payload)
		if err != nil {
			s.log.Error("encode response", zap.Error(err))
			status, blob = http.StatusInternalServerError, []byte(`{"error":"internal error"}`)
		}
		body = string(blob)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range corsHeaders {
		headers[k] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statusCode": status,
		"headers":    headers,
		"body":       body,
	})
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	var (
		rerr *recommender.Error
		verr *advisor.ValidationError
	)
	switch {
	case errors.As(err, &rerr):
		s.respond(w, rerr.Status, rerr.Body())
	case errors.As(err, &verr):
		s.respond(w, http.StatusBadRequest, map[string]any{
			"error":      verr.Error(),
			"missing":    verr.Missing,
			"violations": verr.Violations,
		})
	case errors.Is(err, history.ErrNotFound):
		s.respond(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		s.respond(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"recommend":   s.rec != nil,
		"history":     s.hist != nil,
		"envelope":    s.envelope,
		"server_time": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	blob, err := readBody(w, r)
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON in request body"})
		return
	}
	in, err := recommender.DecodeInput(blob)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := advisor.Validate(in); err != nil {
		s.respondError(w, err)
		return
	}
	resp, err := s.rec.Recommend(r.Context(), in)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, resp)
}

func (s *Server) handleSaveHistory(w http.ResponseWriter, r *http.Request) {
	blob, err := readBody(w, r)
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON in request body"})
		return
	}
	body, _ := advisor.UnwrapEnvelope(blob)
	var rec advisor.HistoryRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		return
	}
	entry, err := s.hist.Save(r.Context(), rec)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]any{
		"id":        entry.ID,
		"timestamp": entry.CreatedAt,
	})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), history.DefaultListLimit)
	entries, err := s.hist.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"records": entries})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entry, err := s.hist.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, entry)
}
