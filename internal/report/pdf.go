package report

import (
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed style.css
var styleCSS string

const DefaultRenderTimeout = 60 * time.Second

type Layout int

const (
	LayoutPortrait Layout = iota
	LayoutLandscape
)

// Document is one markdown document headed for PDF.
type Document struct {
	Title    string
	Markdown string
	Layout   Layout
	Meta     []MetaItem
	Badges   []string
}

type MetaItem struct {
	Label string
	Value string
}

type PDFRenderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
}

func NewChromiumPDFRenderer(timeout time.Duration) *ChromiumPDFRenderer {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &ChromiumPDFRenderer{
		chromePath: detectChromePath(),
		timeout:    timeout,
	}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	htmlDoc, err := BuildHTML(doc)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	width, height := paperSize(doc.Layout)
	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#7a6e6e;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

// A4, either way round.
func paperSize(l Layout) (width, height float64) {
	if l == LayoutLandscape {
		return 11.69, 8.27
	}
	return 8.27, 11.69
}

func BuildHTML(doc Document) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(doc.Markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	contentHTML := applyPrintLayoutHooks(content.String())

	bodyClass := "report"
	if doc.Layout == LayoutLandscape {
		bodyClass = "deck"
	}
	title := doc.Title
	if strings.TrimSpace(title) == "" {
		title = "Loss Audit"
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + styleCSS + "</style></head>" +
		"<body class='" + bodyClass + "'><div class='pdf-wrap'><section class='report-viewer'>" +
		"<div class='report-header'><div class='report-meta'>" + buildMetaHTML(doc.Meta) + "</div>" +
		"<div class='report-badges'>" + buildBadgeHTML(doc.Badges) + "</div></div>" +
		"<div class='report-html'>" + contentHTML + "</div></section></div></body></html>", nil
}

var (
	reSectionHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*(Friction Point Analysis|Strategic Remediation Roadmap)\s*</h2>`)
	reSlideBreak     = regexp.MustCompile(`<hr\s*/?>`)
	reSeverityCell   = regexp.MustCompile(`<td>(OPTIMIZED|SUB-OPTIMAL|CRITICAL)</td>`)
)

func applyPrintLayoutHooks(contentHTML string) string {
	out := reSectionHeading.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">$2</h2>`)
	out = reSlideBreak.ReplaceAllString(out, `<div class="slide-break"></div>`)
	out = reSeverityCell.ReplaceAllStringFunc(out, func(cell string) string {
		m := reSeverityCell.FindStringSubmatch(cell)
		return `<td class="rating rating-` + strings.ToLower(m[1]) + `">` + m[1] + `</td>`
	})
	return out
}

func buildMetaHTML(items []MetaItem) string {
	var out strings.Builder
	for _, it := range items {
		if strings.TrimSpace(it.Value) == "" {
			continue
		}
		out.WriteString("<div><strong>" + html.EscapeString(it.Label) + ":</strong> " + html.EscapeString(it.Value) + "</div>")
	}
	return out.String()
}

func buildBadgeHTML(badges []string) string {
	var out strings.Builder
	for _, b := range badges {
		if strings.TrimSpace(b) == "" {
			continue
		}
		out.WriteString("<span class='report-badge'>" + html.EscapeString(b) + "</span>")
	}
	return out.String()
}

func detectChromePath() string {
	if p := strings.TrimSpace(os.Getenv("CHROME_PATH")); p != "" {
		return p
	}
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
