package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3f6212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#78716c")).Width(22)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#a8a29e")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#b91c1c"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#a3a3a3")).
			Padding(0, 1)
)

// Terminal renders results as a styled text card on an io.Writer.
type Terminal struct {
	out io.Writer
	err io.Writer

	mu    sync.Mutex
	last  string
	quiet bool
}

func NewTerminal(out, errOut io.Writer) *Terminal {
	return &Terminal{out: out, err: errOut}
}

// Quiet suppresses the loading indicator, for non-interactive output.
func (t *Terminal) Quiet(on bool) { t.quiet = on }

func (t *Terminal) SetLoading(on bool) {
	if !on || t.quiet {
		return
	}
	fmt.Fprintln(t.err, mutedStyle.Render("Requesting recommendation..."))
}

func (t *Terminal) Render(result advisor.NormalizedResult, view advisor.DetailsView) error {
	frame := Card(result, view)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.out, frame+"\n"); err != nil {
		return err
	}
	t.last = frame
	return nil
}

func (t *Terminal) ShowError(err error) {
	fmt.Fprintln(t.err, errorStyle.Render("Error: ")+err.Error())
}

// Last returns the most recently rendered card.
func (t *Terminal) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func Card(result advisor.NormalizedResult, view advisor.DetailsView) string {
	var blocks []string

	rec := result.Recommendation
	if rec == "" {
		rec = advisor.Placeholder
	}
	header := titleStyle.Render("Recommended crop: " + rec)
	if result.Confidence != nil {
		header += mutedStyle.Render(fmt.Sprintf("  (confidence %.0f%%)", *result.Confidence*100))
	}
	blocks = append(blocks, header)
	if result.Explanation != "" {
		blocks = append(blocks, lipgloss.NewStyle().Width(76).Render(result.Explanation))
	}

	if len(result.GrowingTips) > 0 {
		blocks = append(blocks, sectionStyle.Render("Growing tips"))
		for _, tip := range result.GrowingTips {
			blocks = append(blocks, "  • "+tip)
		}
	}

	blocks = append(blocks, sectionStyle.Render("Details"), panelStyle.Render(detailsPanel(view)))

	if result.Raw != "" && result.Empty() {
		blocks = append(blocks, sectionStyle.Render("Raw response"), mutedStyle.Render(result.Raw))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func detailsPanel(view advisor.DetailsView) string {
	rows := []string{
		row("Optimal soil type", view.SoilType),
		row("pH range", view.PHRange),
		row("Temperature range", view.TemperatureRange),
		row("Humidity range", view.HumidityRange),
		row("Rainfall", view.Rainfall),
	}
	if len(view.Nutrients) == 0 {
		rows = append(rows, row("Nutrients", advisor.Placeholder))
	} else {
		for i, e := range view.Nutrients {
			label := ""
			if i == 0 {
				label = "Nutrients"
			}
			rows = append(rows, row(label, e.String()))
		}
	}
	if len(view.Additional) > 0 {
		rows = append(rows, "", mutedStyle.Render("Additional"))
		for _, e := range view.Additional {
			rows = append(rows, "  "+e.String())
		}
	}
	return strings.Join(rows, "\n")
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}
