package chunker_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqstack/ragstore/internal/chunker"
	"github.com/aqstack/ragstore/internal/extract"
	"github.com/aqstack/ragstore/internal/model"
	appErr "github.com/aqstack/ragstore/internal/pkg/errors"
)

func TestChunkerRowOrientedKeepsSegmentBoundaries(t *testing.T) {
	c := chunker.New(1000, 200)
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeCSV}
	segments := []extract.Segment{
		{Locator: "Row 1", Text: "name: alice, age: 30"},
		{Locator: "Row 2", Text: "name: bob, age: 41"},
		{Locator: "Row 3", Text: "name: carol, age: 28"},
	}

	chunks, err := c.Chunk(doc, segments)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		require.Equal(t, "doc-1", chunk.DocumentID)
		require.Equal(t, i, chunk.Ordinal)
		require.Equal(t, segments[i].Locator, chunk.Locator)
		require.Equal(t, segments[i].Text, chunk.Content)
	}
}

func TestChunkerWebsiteWindowsWithOverlap(t *testing.T) {
	c := chunker.New(100, 20)
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeWebsite}
	text := strings.Repeat("abcdefghij", 25)
	chunks, err := c.Chunk(doc, []extract.Segment{{Text: text}})
	require.NoError(t, err)
	// step 80: windows start at 0, 80, 160, 240
	require.Len(t, chunks, 4)
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Ordinal)
		require.Equal(t, fmt.Sprintf("Section %d", i), chunk.Locator)
	}
	require.Len(t, []rune(chunks[0].Content), 100)
	require.Equal(t, chunks[0].Content[80:], chunks[1].Content[:20])
	require.Equal(t, text[240:], chunks[3].Content)
}

func TestChunkerWebsiteDeterministic(t *testing.T) {
	c := chunker.New(50, 10)
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeWebsite}
	text := strings.Repeat("段落文本内容 ", 60)
	first, err := c.Chunk(doc, []extract.Segment{{Text: text}})
	require.NoError(t, err)
	second, err := c.Chunk(doc, []extract.Segment{{Text: text}})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestChunkerShortWebsiteTextSingleWindow(t *testing.T) {
	c := chunker.New(1000, 200)
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeWebsite}
	chunks, err := c.Chunk(doc, []extract.Segment{{Text: "short page"}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "Section 0", chunks[0].Locator)
	require.Equal(t, "short page", chunks[0].Content)
}

func TestChunkerRejectsEmptyInput(t *testing.T) {
	c := chunker.New(1000, 200)
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypePDF}

	_, err := c.Chunk(doc, nil)
	require.ErrorIs(t, err, appErr.ErrChunking)

	_, err = c.Chunk(doc, []extract.Segment{{Locator: "Page 1", Text: ""}})
	require.ErrorIs(t, err, appErr.ErrChunking)
}

func TestChunkerNewClampsBadOptions(t *testing.T) {
	c := chunker.New(0, -1)
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeWebsite}
	chunks, err := c.Chunk(doc, []extract.Segment{{Text: strings.Repeat("x", 1500)}})
	require.NoError(t, err)
	// defaults 1000/200: windows at 0 and 800
	require.Len(t, chunks, 2)
}
