package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/aqstack/ragstore/internal/model"
)

type pdfExtractor struct{}

func (e *pdfExtractor) Type() model.DocumentType {
	return model.DocumentTypePDF
}

func (e *pdfExtractor) Extract(ctx context.Context, src io.Reader, doc *model.Document) (*Result, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, extractionErr("read pdf source: %v", err)
	}
	if err := api.Validate(bytes.NewReader(data), nil); err != nil {
		return nil, extractionErr("invalid or corrupt pdf: %v", err)
	}
	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, extractionErr("count pdf pages: %v", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, extractionErr("open pdf: %v", err)
	}

	meta := model.DocumentMeta{PageCount: pageCount}
	if info := reader.Trailer().Key("Info"); !info.IsNull() {
		meta.Title = strings.TrimSpace(info.Key("Title").Text())
		meta.Author = strings.TrimSpace(info.Key("Author").Text())
	}

	segments := make([]Segment, 0, pageCount)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logutil.GetLogger(ctx).Warn("pdf page text extraction failed",
				zap.String("document_id", doc.ID), zap.Int("page", i), zap.Error(err))
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Locator: fmt.Sprintf("Page %d", i),
			Text:    text,
		})
	}
	if len(segments) == 0 {
		return nil, extractionErr("no text content found in pdf")
	}
	return &Result{Meta: meta, Segments: segments}, nil
}
