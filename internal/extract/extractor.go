package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/aqstack/ragstore/internal/model"
	apperr "github.com/aqstack/ragstore/internal/pkg/errors"
)

// Segment is one ordered unit of extracted text. For page/row oriented formats
// the locator is final; for long-form text the chunker assigns section locators
// after windowing.
type Segment struct {
	Locator string
	Text    string
}

type Result struct {
	Meta     model.DocumentMeta
	Segments []Segment
}

// Extractor turns a raw byte source into ordered segments. Extraction failures
// are terminal for the run and never retried.
type Extractor interface {
	Type() model.DocumentType
	Extract(ctx context.Context, src io.Reader, doc *model.Document) (*Result, error)
}

// ForType selects the extractor for a declared document type once at admission;
// the typed value is carried through the pipeline instead of re-deriving from
// strings at each step.
func ForType(t model.DocumentType) (Extractor, error) {
	switch t {
	case model.DocumentTypePDF:
		return &pdfExtractor{}, nil
	case model.DocumentTypeCSV:
		return &csvExtractor{}, nil
	case model.DocumentTypeXLSX:
		return &xlsxExtractor{}, nil
	case model.DocumentTypeWebsite:
		return &websiteExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported document type: %s", apperr.ErrInvalid, t)
	}
}

func extractionErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperr.ErrExtraction, fmt.Sprintf(format, args...))
}
