package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/cropadvisor/internal/advisor"
	"github.com/joelkehle/cropadvisor/internal/advisorclient"
	"github.com/joelkehle/cropadvisor/internal/render"
	"github.com/joelkehle/cropadvisor/internal/session"
)

var recommendOpts struct {
	input   advisor.FormInput
	name    string
	save    bool
	out     string
	html    string
	pdf     string
	paper   string
	rawJSON bool
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Submit field readings and print the recommended crop",
	Long: `Validates the readings, posts them to CROPADVISOR_RECOMMEND_URL and renders
the normalized answer.

Example:
  cropadvisor recommend --soil clay --ph 6.5 --n 120 --p 80 --k 200 \
    --rain 1200 --temp 25 --humidity 65 --location Delta --out field.json`,
	RunE: runRecommend,
}

func init() {
	f := recommendCmd.Flags()
	in := &recommendOpts.input
	f.StringVar(&in.Soil, "soil", "", "soil type (required)")
	f.Float64Var(&in.PH, "ph", 0, "soil pH (0-14)")
	f.Float64Var(&in.N, "n", 0, "nitrogen (0-1000)")
	f.Float64Var(&in.P, "p", 0, "phosphorus (0-1000)")
	f.Float64Var(&in.K, "k", 0, "potassium (0-1000)")
	f.Float64Var(&in.Rain, "rain", 0, "annual rainfall in mm (0-10000)")
	f.Float64Var(&in.Temp, "temp", 0, "average temperature in °C (-20-50)")
	f.Float64Var(&in.Humidity, "humidity", 0, "relative humidity in % (0-100)")
	f.StringVar(&in.Location, "location", "", "field location")
	f.StringVar(&recommendOpts.name, "name", "", "label stored with the result")
	f.BoolVar(&recommendOpts.save, "save", false, "save the result to history")
	f.StringVar(&recommendOpts.out, "out", "cropadvisor-last.json", "write the result snapshot to this file for 'save'; empty to skip")
	f.StringVar(&recommendOpts.html, "html", "", "write an HTML report to this file")
	f.StringVar(&recommendOpts.pdf, "pdf", "", "write a PDF report to this file (needs Chrome)")
	f.StringVar(&recommendOpts.paper, "paper", "a4", "PDF paper size: a4 or letter")
	f.BoolVar(&recommendOpts.rawJSON, "json", false, "print the normalized result as JSON instead of a card")
}

func newClient() *advisorclient.Client {
	return advisorclient.NewClient(cfg.Client.RecommendURL, cfg.Client.HistoryURL,
		advisorclient.WithLogger(logger),
		advisorclient.WithTimeout(cfg.Client.Timeout))
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireClient(true, recommendOpts.save); err != nil {
		return err
	}
	ctx := cmd.Context()
	client := newClient()
	cardOut := cmd.OutOrStdout()
	if recommendOpts.rawJSON {
		cardOut = io.Discard
	}
	term := render.NewTerminal(cardOut, cmd.ErrOrStderr())
	term.Quiet(recommendOpts.rawJSON)
	ctrl := session.NewController(client, client, term, session.WithLogger(logger))

	snap, err := ctrl.Submit(ctx, recommendOpts.input, session.Meta{
		Name:     recommendOpts.name,
		Location: recommendOpts.input.Location,
	})
	if err != nil {
		return err
	}

	if recommendOpts.rawJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap.Result); err != nil {
			return err
		}
	}
	if recommendOpts.out != "" {
		if err := writeSnapshot(recommendOpts.out, snap); err != nil {
			return err
		}
		logger.Info("snapshot written", zap.String("path", recommendOpts.out))
	}
	if recommendOpts.html != "" {
		page, err := render.HTML(snap)
		if err != nil {
			return err
		}
		if err := os.WriteFile(recommendOpts.html, []byte(page), 0o644); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
	}
	if recommendOpts.pdf != "" {
		paper, err := render.ParsePaper(recommendOpts.paper)
		if err != nil {
			return err
		}
		pdf, err := render.NewPDFRenderer(render.WithPaper(paper)).Render(ctx, snap)
		if err != nil {
			return err
		}
		if err := os.WriteFile(recommendOpts.pdf, pdf, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
	}
	if recommendOpts.save {
		id, err := ctrl.Save(ctx, snap)
		if err != nil {
			return err
		}
		printSaved(cmd, id)
	}
	return nil
}

func writeSnapshot(path string, snap *advisor.Snapshot) error {
	blob, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func printSaved(cmd *cobra.Command, id string) {
	if id == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Saved to history.")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved to history (id %s).\n", id)
}
