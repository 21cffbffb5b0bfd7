package model

type DocumentType string

const (
	DocumentTypePDF     DocumentType = "pdf"
	DocumentTypeCSV     DocumentType = "csv"
	DocumentTypeXLSX    DocumentType = "xlsx"
	DocumentTypeWebsite DocumentType = "website"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypePDF, DocumentTypeCSV, DocumentTypeXLSX, DocumentTypeWebsite:
		return true
	}
	return false
}

type RagMode string

const (
	RagModeSemantic   RagMode = "semantic"
	RagModeStructured RagMode = "structured"
)

func (m RagMode) Valid() bool {
	return m == RagModeSemantic || m == RagModeStructured
}

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusReady      DocumentStatus = "READY"
	StatusError      DocumentStatus = "ERROR"
)

type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	FileKey     string         `json:"file_key"`
	Type        DocumentType   `json:"type"`
	Mode        RagMode        `json:"mode"`
	Description string         `json:"description"`
	Status      DocumentStatus `json:"status"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	Ctime       int64          `json:"ctime"`
	Mtime       int64          `json:"mtime"`
}

// DocumentMeta is the type-specific metadata record. Exactly one row exists per
// document once a run succeeds; it is replaced wholesale on reprocess.
type DocumentMeta struct {
	DocumentID  string   `json:"document_id"`
	Title       string   `json:"title,omitempty"`
	Author      string   `json:"author,omitempty"`
	PageCount   int      `json:"page_count,omitempty"`
	RowCount    int      `json:"row_count,omitempty"`
	ColumnCount int      `json:"column_count,omitempty"`
	SheetCount  int      `json:"sheet_count,omitempty"`
	SheetNames  []string `json:"sheet_names,omitempty"`
	URL         string   `json:"url,omitempty"`
	Domain      string   `json:"domain,omitempty"`
}
