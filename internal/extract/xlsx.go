package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aqstack/ragstore/internal/model"
)

type xlsxExtractor struct{}

func (e *xlsxExtractor) Type() model.DocumentType {
	return model.DocumentTypeXLSX
}

func (e *xlsxExtractor) Extract(ctx context.Context, src io.Reader, doc *model.Document) (*Result, error) {
	file, err := excelize.OpenReader(src)
	if err != nil {
		return nil, extractionErr("invalid or corrupt xlsx: %v", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, extractionErr("xlsx file has no sheets")
	}

	meta := model.DocumentMeta{
		SheetCount: len(sheets),
		SheetNames: sheets,
	}
	var segments []Segment
	for _, sheet := range sheets {
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, extractionErr("read sheet %q: %v", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		header := rows[0]
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		if len(header) > meta.ColumnCount {
			meta.ColumnCount = len(header)
		}
		for i, record := range rows[1:] {
			if emptyRow(record) {
				continue
			}
			rowNumber := i + 1
			meta.RowCount++
			segments = append(segments, Segment{
				Locator: fmt.Sprintf("Sheet '%s', Row %d", sheet, rowNumber),
				Text:    renderRow(header, record),
			})
		}
	}
	if len(segments) == 0 {
		return nil, extractionErr("xlsx file has no data rows")
	}
	return &Result{Meta: meta, Segments: segments}, nil
}

func emptyRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
