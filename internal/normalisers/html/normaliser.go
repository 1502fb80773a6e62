package html

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Elements whose content never reaches the output.
const droppedElements = "script, style, noscript, template, svg, iframe"

// blockElements get a separator around their text so words in adjacent
// blocks do not run together.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMETypeHTML, domain.MIMETypeXHTML}
}

// Normalise converts an HTML document to its visible text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.NewExtractionError(raw.MIMEType, "parse html", err)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	if title == "" {
		title = raw.File.Name
	}

	content := visibleText(page)
	if content == "" {
		return nil, domain.NewExtractionError(raw.MIMEType, "no text", nil)
	}

	doc := domain.Document{
		FileID:   raw.File.ID,
		FileName: raw.File.Name,
		MIMEType: raw.MIMEType,
		Title:    title,
		Content:  content,
		Metadata: map[string]any{
			"mime_type": raw.MIMEType,
			"format":    "html",
		},
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// visibleText returns the body's text nodes with whitespace collapsed.
func visibleText(page *goquery.Document) string {
	page.Find(droppedElements).Remove()

	body := page.Find("body")
	if body.Length() == 0 {
		body = page.Selection
	}

	var sb strings.Builder
	for _, node := range body.Nodes {
		writeText(&sb, node)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func writeText(sb *strings.Builder, node *xhtml.Node) {
	switch node.Type {
	case xhtml.TextNode:
		sb.WriteString(node.Data)
		return
	case xhtml.CommentNode:
		return
	}

	block := node.Type == xhtml.ElementNode && blockElements[node.Data]
	if block {
		sb.WriteByte(' ')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(sb, child)
	}
	if block {
		sb.WriteByte(' ')
	}
}
