package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/aqstack/ragstore/internal/model"
)

type csvExtractor struct{}

func (e *csvExtractor) Type() model.DocumentType {
	return model.DocumentTypeCSV
}

func (e *csvExtractor) Extract(ctx context.Context, src io.Reader, doc *model.Document) (*Result, error) {
	reader := csv.NewReader(src)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, extractionErr("empty csv file")
	}
	if err != nil {
		return nil, extractionErr("read csv header: %v", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var segments []Segment
	rowNumber := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, extractionErr("read csv row %d: %v", rowNumber+1, err)
		}
		rowNumber++
		segments = append(segments, Segment{
			Locator: fmt.Sprintf("Row %d", rowNumber),
			Text:    renderRow(header, record),
		})
	}
	if len(segments) == 0 {
		return nil, extractionErr("csv file has no data rows")
	}
	meta := model.DocumentMeta{
		RowCount:    rowNumber,
		ColumnCount: len(header),
	}
	return &Result{Meta: meta, Segments: segments}, nil
}

// renderRow joins a record into "column: value" pairs so the embedded text
// keeps the column names as context.
func renderRow(header, record []string) string {
	parts := make([]string, 0, len(record))
	for i, value := range record {
		name := fmt.Sprintf("column %d", i+1)
		if i < len(header) && header[i] != "" {
			name = header[i]
		}
		parts = append(parts, name+": "+strings.TrimSpace(value))
	}
	return strings.Join(parts, ", ")
}
