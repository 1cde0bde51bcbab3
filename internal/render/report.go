package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

// Markdown builds a printable report for a saved or fresh recommendation.
func Markdown(snap *advisor.Snapshot) string {
	result := snap.Result
	view := advisor.Project(result.Details)

	var b strings.Builder
	rec := result.Recommendation
	if rec == "" {
		rec = advisor.Placeholder
	}
	fmt.Fprintf(&b, "# Crop recommendation: %s\n\n", rec)
	if result.Explanation != "" {
		b.WriteString(result.Explanation + "\n\n")
	}
	if result.Confidence != nil {
		fmt.Fprintf(&b, "Confidence: **%.0f%%**\n\n", *result.Confidence*100)
	}

	b.WriteString("## Field conditions\n\n")
	b.WriteString("| Parameter | Value |\n|---|---|\n")
	in := snap.Input
	for _, r := range [][2]string{
		{"Soil", in.Soil},
		{"pH", formatNumber(in.PH)},
		{"Nitrogen (N)", formatNumber(in.N)},
		{"Phosphorus (P)", formatNumber(in.P)},
		{"Potassium (K)", formatNumber(in.K)},
		{"Rainfall (mm)", formatNumber(in.Rain)},
		{"Temperature (°C)", formatNumber(in.Temp)},
		{"Humidity (%)", formatNumber(in.Humidity)},
	} {
		fmt.Fprintf(&b, "| %s | %s |\n", r[0], cell(r[1]))
	}
	b.WriteString("\n")

	b.WriteString("## Optimal conditions\n\n")
	b.WriteString("| Concept | Value |\n|---|---|\n")
	for _, r := range [][2]string{
		{"Soil type", view.SoilType},
		{"pH range", view.PHRange},
		{"Temperature range", view.TemperatureRange},
		{"Humidity range", view.HumidityRange},
		{"Rainfall", view.Rainfall},
	} {
		fmt.Fprintf(&b, "| %s | %s |\n", r[0], cell(r[1]))
	}
	for _, e := range view.Nutrients {
		label := "Nutrients"
		if e.Key != "" {
			label = "Nutrients: " + e.Key
		}
		fmt.Fprintf(&b, "| %s | %s |\n", cell(label), cell(e.Value))
	}
	b.WriteString("\n")

	if len(view.Additional) > 0 {
		b.WriteString("### Additional\n\n")
		for _, e := range view.Additional {
			fmt.Fprintf(&b, "- `%s`\n", strings.ReplaceAll(e.String(), "`", "'"))
		}
		b.WriteString("\n")
	}

	if len(result.GrowingTips) > 0 {
		b.WriteString("## Growing tips\n\n")
		for _, tip := range result.GrowingTips {
			b.WriteString("- " + tip + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the report as a standalone page.
func HTML(snap *advisor.Snapshot) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(Markdown(snap)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Crop Recommendation</title>" +
		"<style>" + reportCSS + "</style></head><body><main class='report'>" +
		"<div class='report-meta'>" + metaHTML(snap) + "</div>" +
		content.String() +
		"</main></body></html>", nil
}

func metaHTML(snap *advisor.Snapshot) string {
	var out strings.Builder
	if snap.Name != "" {
		out.WriteString("<div><strong>Name:</strong> " + html.EscapeString(snap.Name) + "</div>")
	}
	if snap.Location != "" {
		out.WriteString("<div><strong>Location:</strong> " + html.EscapeString(snap.Location) + "</div>")
	}
	if !snap.Timestamp.IsZero() {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(snap.Timestamp.In(time.Local).Format("January 2, 2006 at 3:04 PM MST")) + "</div>")
	}
	return out.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func formatNumber(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

const reportCSS = `body{font-family:Georgia,serif;background:#fff;color:#1c1917;margin:0;padding:1rem;}
.report{max-width:860px;margin:0 auto;}
.report-meta{color:#44403c;font-size:0.9rem;margin-bottom:1rem;}
h1{color:#3f6212;border-bottom:2px solid #65a30d;padding-bottom:0.3rem;}
h2{margin-top:1.6rem;}
table{width:100%;border-collapse:collapse;font-size:0.9rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;}
code{background:#f5f5f4;padding:0 0.2rem;}
@media print{@page{size:auto;margin:12mm;}body{padding:0;}}`
