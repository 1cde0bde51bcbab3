package render

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

// Paper is a page size in inches.
type Paper struct {
	Name   string
	Width  float64
	Height float64
}

var (
	PaperA4     = Paper{Name: "a4", Width: 8.27, Height: 11.69}
	PaperLetter = Paper{Name: "letter", Width: 8.5, Height: 11}
)

// ParsePaper resolves a paper name such as "a4" or "Letter".
func ParsePaper(name string) (Paper, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PaperA4.Name:
		return PaperA4, nil
	case PaperLetter.Name:
		return PaperLetter, nil
	}
	return Paper{}, fmt.Errorf("unknown paper size %q (want a4 or letter)", name)
}

// Margins are in inches.
type Margins struct {
	Top, Right, Bottom, Left float64
}

const pageFooter = `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
	`<span class="title"></span> · page <span class="pageNumber"></span>/<span class="totalPages"></span></div>`

// PDFRenderer prints report HTML with a headless Chrome.
type PDFRenderer struct {
	chromePath string
	timeout    time.Duration
	paper      Paper
	margins    Margins
	footer     bool
}

type PDFOption func(*PDFRenderer)

func WithPaper(p Paper) PDFOption {
	return func(r *PDFRenderer) { r.paper = p }
}

func WithMargins(m Margins) PDFOption {
	return func(r *PDFRenderer) { r.margins = m }
}

// WithPDFTimeout bounds browser start-up plus printing.
func WithPDFTimeout(d time.Duration) PDFOption {
	return func(r *PDFRenderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithChromePath(path string) PDFOption {
	return func(r *PDFRenderer) {
		if path != "" {
			r.chromePath = path
		}
	}
}

func WithPageFooter(on bool) PDFOption {
	return func(r *PDFRenderer) { r.footer = on }
}

func NewPDFRenderer(opts ...PDFOption) *PDFRenderer {
	r := &PDFRenderer{
		chromePath: detectChromePath(),
		timeout:    30 * time.Second,
		paper:      PaperA4,
		margins:    Margins{Top: 0.5, Right: 0.45, Bottom: 0.75, Left: 0.45},
		footer:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PDFRenderer) printParams() *page.PrintToPDFParams {
	p := page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(r.paper.Width).
		WithPaperHeight(r.paper.Height).
		WithMarginTop(r.margins.Top).
		WithMarginRight(r.margins.Right).
		WithMarginBottom(r.margins.Bottom).
		WithMarginLeft(r.margins.Left)
	if r.footer {
		p = p.WithDisplayHeaderFooter(true).
			WithHeaderTemplate(`<div></div>`).
			WithFooterTemplate(pageFooter)
	}
	return p
}

func (r *PDFRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	return opts
}

// Render prints the HTML report of snap.
func (r *PDFRenderer) Render(ctx context.Context, snap *advisor.Snapshot) ([]byte, error) {
	doc, err := HTML(snap)
	if err != nil {
		return nil, err
	}
	return r.Print(ctx, doc)
}

// Print loads doc into a blank tab and prints it.
func (r *PDFRenderer) Print(ctx context.Context, doc string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := r.printParams().Do(ctx)
			pdf = out
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}

func detectChromePath() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, p := range []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
