// Package chunker turns extracted segments into ordinally-numbered chunk
// drafts. Chunking is deterministic: identical input always yields an
// identical chunk sequence.
package chunker

import (
	"fmt"

	"github.com/aqstack/ragstore/internal/extract"
	"github.com/aqstack/ragstore/internal/model"
	apperr "github.com/aqstack/ragstore/internal/pkg/errors"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk maps segments to chunk drafts. Row/page oriented formats keep their
// natural boundaries (one segment, one chunk); website text is split into
// fixed-size rune windows with overlap and gets section locators.
func (c *Chunker) Chunk(doc *model.Document, segments []extract.Segment) ([]*model.Chunk, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: extractor produced no segments", apperr.ErrChunking)
	}
	var chunks []*model.Chunk
	if doc.Type == model.DocumentTypeWebsite {
		for _, seg := range segments {
			for _, window := range splitWindows(seg.Text, c.size, c.overlap) {
				chunks = append(chunks, &model.Chunk{
					DocumentID: doc.ID,
					Ordinal:    len(chunks),
					Locator:    fmt.Sprintf("Section %d", len(chunks)),
					Content:    window,
				})
			}
		}
	} else {
		for _, seg := range segments {
			chunks = append(chunks, &model.Chunk{
				DocumentID: doc.ID,
				Ordinal:    len(chunks),
				Locator:    seg.Locator,
				Content:    seg.Text,
			})
		}
	}
	for i, chunk := range chunks {
		if chunk.Content == "" {
			return nil, fmt.Errorf("%w: empty chunk at ordinal %d", apperr.ErrChunking, i)
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", apperr.ErrChunking)
	}
	return chunks, nil
}

func splitWindows(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := size - overlap
	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
