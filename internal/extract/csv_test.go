package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqstack/ragstore/internal/model"
	appErr "github.com/aqstack/ragstore/internal/pkg/errors"
)

func TestCSVExtractorRendersRowsWithHeader(t *testing.T) {
	input := "name,age,city\nalice,30,berlin\nbob,41,tokyo\n"
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeCSV}

	e := &csvExtractor{}
	res, err := e.Extract(context.Background(), strings.NewReader(input), doc)
	require.NoError(t, err)
	require.Len(t, res.Segments, 2)
	require.Equal(t, "Row 1", res.Segments[0].Locator)
	require.Equal(t, "name: alice, age: 30, city: berlin", res.Segments[0].Text)
	require.Equal(t, "Row 2", res.Segments[1].Locator)
	require.Equal(t, "name: bob, age: 41, city: tokyo", res.Segments[1].Text)
	require.Equal(t, 2, res.Meta.RowCount)
	require.Equal(t, 3, res.Meta.ColumnCount)
}

func TestCSVExtractorBlankHeaderFallsBackToColumnNumber(t *testing.T) {
	input := "name,,city\nalice,30,berlin\n"
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeCSV}

	e := &csvExtractor{}
	res, err := e.Extract(context.Background(), strings.NewReader(input), doc)
	require.NoError(t, err)
	require.Equal(t, "name: alice, column 2: 30, city: berlin", res.Segments[0].Text)
}

func TestCSVExtractorRejectsEmptyAndHeaderOnly(t *testing.T) {
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeCSV}
	e := &csvExtractor{}

	_, err := e.Extract(context.Background(), strings.NewReader(""), doc)
	require.ErrorIs(t, err, appErr.ErrExtraction)

	_, err = e.Extract(context.Background(), strings.NewReader("name,age\n"), doc)
	require.ErrorIs(t, err, appErr.ErrExtraction)
}

func TestCSVExtractorMalformedRow(t *testing.T) {
	input := "name,age\nalice,30\n\"broken\n"
	doc := &model.Document{ID: "doc-1", Type: model.DocumentTypeCSV}

	e := &csvExtractor{}
	_, err := e.Extract(context.Background(), strings.NewReader(input), doc)
	require.ErrorIs(t, err, appErr.ErrExtraction)
}
