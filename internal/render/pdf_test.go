package render

import (
	"testing"
	"time"
)

func TestParsePaper(t *testing.T) {
	for name, want := range map[string]Paper{"": PaperA4, "A4": PaperA4, " letter ": PaperLetter} {
		got, err := ParsePaper(name)
		if err != nil || got != want {
			t.Fatalf("ParsePaper(%q) = %+v, %v", name, got, err)
		}
	}
	if _, err := ParsePaper("tabloid"); err == nil {
		t.Fatal("expected error for unknown paper")
	}
}

func TestPDFRendererOptions(t *testing.T) {
	r := NewPDFRenderer(
		WithPaper(PaperLetter),
		WithMargins(Margins{Top: 1, Right: 0.5, Bottom: 1, Left: 0.5}),
		WithPDFTimeout(5*time.Second),
		WithChromePath("/opt/chrome"),
		WithPageFooter(false),
	)
	if r.timeout != 5*time.Second || r.chromePath != "/opt/chrome" {
		t.Fatalf("options not applied: %+v", r)
	}
	p := r.printParams()
	if p.PaperWidth != 8.5 || p.PaperHeight != 11 {
		t.Fatalf("unexpected paper %vx%v", p.PaperWidth, p.PaperHeight)
	}
	if p.MarginTop != 1 || p.MarginLeft != 0.5 || !p.PrintBackground {
		t.Fatalf("unexpected params: %+v", p)
	}
	if p.DisplayHeaderFooter || p.FooterTemplate != "" {
		t.Fatalf("footer should be off: %+v", p)
	}
	if n := len(r.allocatorOptions()); n <= 4 {
		t.Fatalf("expected default allocator options plus ours, got %d", n)
	}
}

func TestPDFRendererDefaults(t *testing.T) {
	t.Setenv("CHROME_PATH", "/usr/local/bin/chrome-test")
	r := NewPDFRenderer(WithPDFTimeout(0), WithChromePath(""))
	if r.timeout != 30*time.Second {
		t.Fatalf("zero timeout should keep default, got %v", r.timeout)
	}
	if r.chromePath != "/usr/local/bin/chrome-test" {
		t.Fatalf("expected CHROME_PATH, got %q", r.chromePath)
	}
	p := r.printParams()
	if p.PaperWidth != PaperA4.Width || !p.DisplayHeaderFooter || p.FooterTemplate != pageFooter {
		t.Fatalf("unexpected default params: %+v", p)
	}
}
