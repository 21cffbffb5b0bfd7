package extract

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aqstack/ragstore/internal/model"
)

type websiteExtractor struct{}

func (e *websiteExtractor) Type() model.DocumentType {
	return model.DocumentTypeWebsite
}

// Extract parses the stored HTML snapshot. It yields a single long-form
// segment; the chunker windows it and assigns section locators.
func (e *websiteExtractor) Extract(ctx context.Context, src io.Reader, doc *model.Document) (*Result, error) {
	page, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return nil, extractionErr("parse html: %v", err)
	}
	page.Find("script, style, noscript, iframe").Remove()

	title := strings.TrimSpace(page.Find("title").First().Text())
	body := page.Find("body")
	text := body.Text()
	if body.Length() == 0 {
		text = page.Text()
	}
	text = collapseWhitespace(text)
	if text == "" {
		return nil, extractionErr("no meaningful content could be extracted from the webpage")
	}

	meta := model.DocumentMeta{
		Title: title,
		URL:   doc.Name,
	}
	if parsed, err := url.Parse(doc.Name); err == nil {
		meta.Domain = parsed.Host
	}
	return &Result{Meta: meta, Segments: []Segment{{Text: text}}}, nil
}

// collapseWhitespace flattens runs of whitespace into single spaces, keeping
// paragraph breaks so window boundaries land on readable text.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
