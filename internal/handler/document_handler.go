package handler

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/aqstack/ragstore/internal/config"
	"github.com/aqstack/ragstore/internal/filestore"
	"github.com/aqstack/ragstore/internal/model"
	"github.com/aqstack/ragstore/internal/pkg/errcode"
	"github.com/aqstack/ragstore/internal/pkg/response"
	"github.com/aqstack/ragstore/internal/service"
)

// maxFetchBytes caps website snapshots so a runaway page cannot exhaust the
// blob store.
const maxFetchBytes = 20 << 20

type DocumentHandler struct {
	ingest *service.IngestService
	files  filestore.Store
	client *http.Client
}

func NewDocumentHandler(ingest *service.IngestService, files filestore.Store, cfg config.IngestConfig) *DocumentHandler {
	return &DocumentHandler{
		ingest: ingest,
		files:  files,
		client: &http.Client{Timeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second},
	}
}

var extToType = map[string]model.DocumentType{
	".pdf":  model.DocumentTypePDF,
	".csv":  model.DocumentTypeCSV,
	".xlsx": model.DocumentTypeXLSX,
}

// Upload admits a file document. The bytes land in the file store first; the
// document record only exists once its source is durably stored.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	docType := extToType[ext]
	if value := c.PostForm("type"); value != "" {
		docType = model.DocumentType(value)
	}
	if !docType.Valid() || docType == model.DocumentTypeWebsite {
		response.Error(c, errcode.ErrInvalidFile, "unsupported document type")
		return
	}
	mode := model.RagMode(c.DefaultPostForm("mode", string(model.RagModeSemantic)))
	if !mode.Valid() {
		response.Error(c, errcode.ErrInvalid, "unknown rag mode")
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = file.Filename
	}

	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	key := uuid.NewString() + ext
	if err := h.files.Save(c.Request.Context(), key, opened, file.Size); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("save upload failed", zap.String("file_key", key), zap.Error(err))
		response.Error(c, errcode.ErrUploadFailed, "failed to store file")
		return
	}
	doc, err := h.ingest.Admit(c.Request.Context(), service.AdmitRequest{
		Name:        name,
		FileKey:     key,
		Type:        docType,
		Mode:        mode,
		Description: c.PostForm("description"),
	})
	if err != nil {
		if derr := h.files.Delete(c.Request.Context(), key); derr != nil {
			logutil.GetLogger(c.Request.Context()).Warn("cleanup stored file failed", zap.String("file_key", key), zap.Error(derr))
		}
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

type websiteRequest struct {
	URL         string `json:"url"`
	Mode        string `json:"mode"`
	Description string `json:"description"`
}

// AdmitWebsite fetches the page once and stores the HTML snapshot, so
// reprocessing replays the same bytes instead of refetching a moving target.
func (h *DocumentHandler) AdmitWebsite(c *gin.Context) {
	var req websiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		response.Error(c, errcode.ErrInvalid, "url must be http or https")
		return
	}
	mode := model.RagModeSemantic
	if req.Mode != "" {
		mode = model.RagMode(req.Mode)
	}
	if !mode.Valid() {
		response.Error(c, errcode.ErrInvalid, "unknown rag mode")
		return
	}

	body, err := h.fetchPage(c, req.URL)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("fetch website failed", zap.String("url", req.URL), zap.Error(err))
		response.Error(c, errcode.ErrInvalid, fmt.Sprintf("failed to fetch url: %v", err))
		return
	}
	key := uuid.NewString() + ".html"
	if err := h.files.Save(c.Request.Context(), key, filestore.BytesFile(body), int64(len(body))); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("save snapshot failed", zap.String("file_key", key), zap.Error(err))
		response.Error(c, errcode.ErrUploadFailed, "failed to store snapshot")
		return
	}
	doc, err := h.ingest.Admit(c.Request.Context(), service.AdmitRequest{
		Name:        req.URL,
		FileKey:     key,
		Type:        model.DocumentTypeWebsite,
		Mode:        mode,
		Description: req.Description,
	})
	if err != nil {
		if derr := h.files.Delete(c.Request.Context(), key); derr != nil {
			logutil.GetLogger(c.Request.Context()).Warn("cleanup snapshot failed", zap.String("file_key", key), zap.Error(derr))
		}
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) fetchPage(c *gin.Context, rawURL string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", "ragstore/1.0")
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return body, nil
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.ingest.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

type documentDetail struct {
	Document *model.Document     `json:"document"`
	Meta     *model.DocumentMeta `json:"meta,omitempty"`
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, meta, err := h.ingest.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, documentDetail{Document: doc, Meta: meta})
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	docID := c.Param("id")
	if err := h.ingest.Reprocess(c.Request.Context(), docID); err != nil {
		handleError(c, err)
		return
	}
	doc, _, err := h.ingest.Get(c.Request.Context(), docID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.ingest.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}
