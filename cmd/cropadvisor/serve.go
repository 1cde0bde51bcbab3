package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/cropadvisor/internal/history"
	"github.com/joelkehle/cropadvisor/internal/httpapi"
	"github.com/joelkehle/cropadvisor/internal/recommender"
)

var serveOpts struct {
	addr        string
	db          string
	envelope    bool
	noHistory   bool
	preferences string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recommendation and history endpoints",
	Long: `Serves POST /recommend, POST /history, GET /history and GET /history/{id}.

Recommendations come from Anthropic when ANTHROPIC_API_KEY is set and
CROPADVISOR_NO_LLM is not; otherwise from the built-in preference table.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.addr, "addr", "", "listen address (default $CROPADVISOR_ADDR or :8080)")
	f.StringVar(&serveOpts.db, "db", "", "SQLite history database (default $CROPADVISOR_DB)")
	f.BoolVar(&serveOpts.envelope, "envelope", false, "wrap responses as {statusCode, headers, body}")
	f.BoolVar(&serveOpts.noHistory, "no-history", false, "do not serve the history endpoints")
	f.StringVar(&serveOpts.preferences, "preferences", "", "YAML crop preference table replacing the built-in one")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	addr := firstNonEmpty(serveOpts.addr, cfg.Server.Addr)
	envelope := cfg.Server.Envelope || serveOpts.envelope

	prefs := recommender.DefaultPreferences()
	if serveOpts.preferences != "" {
		blob, err := os.ReadFile(serveOpts.preferences)
		if err != nil {
			return fmt.Errorf("read preferences: %w", err)
		}
		if prefs, err = recommender.ParsePreferences(blob); err != nil {
			return err
		}
	}

	var caller recommender.LLMCaller
	if cfg.LLM.Disabled || cfg.LLM.APIKey == "" {
		logger.Warn("no model configured, using preference table scorer")
		caller = recommender.NewRuleCaller(prefs)
	} else {
		ac, err := recommender.NewAnthropicCaller(cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return err
		}
		caller = ac
	}
	svc := recommender.NewService(caller, prefs, logger.Named("recommender"))

	var hist httpapi.HistoryStore
	if !serveOpts.noHistory {
		dbPath := firstNonEmpty(serveOpts.db, cfg.Server.DBPath)
		store, err := history.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		hist = store
		logger.Info("history store opened", zap.String("path", dbPath))
	}

	handler := httpapi.NewServer(svc, hist, httpapi.Config{
		Envelope: envelope,
		Logger:   logger.Named("http"),
	})
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	logger.Info("cropadvisor listening", zap.String("addr", addr), zap.Bool("envelope", envelope))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
