package render

import (
	"context"
	"fmt"
	"io"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/hojadevida/internal/browser"
)

// RodPrinter prints HTML to PDF in a fresh Chrome tab per call.
type RodPrinter struct {
	browsers *browser.Manager
}

// NewRodPrinter creates a printer backed by m.
func NewRodPrinter(m *browser.Manager) *RodPrinter {
	return &RodPrinter{browsers: m}
}

// PrintPDF loads html into a blank tab and prints it with the page's own
// CSS page size and backgrounds.
func (p *RodPrinter) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	b, err := p.browsers.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		// A dead connection fails here; let the next call reconnect.
		p.browsers.Invalidate(b)
		return nil, fmt.Errorf("render: open tab: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("render: set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("render: wait load: %w", err)
	}

	r, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("render: print: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("render: read pdf: %w", err)
	}
	return data, nil
}
