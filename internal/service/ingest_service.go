package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aqstack/ragstore/internal/ai"
	"github.com/aqstack/ragstore/internal/chunker"
	"github.com/aqstack/ragstore/internal/config"
	"github.com/aqstack/ragstore/internal/extract"
	"github.com/aqstack/ragstore/internal/filestore"
	"github.com/aqstack/ragstore/internal/model"
	apperr "github.com/aqstack/ragstore/internal/pkg/errors"
)

// Store is the persistence contract the coordinator drives. The postgres
// implementation lives in internal/store; tests use an in-memory fake.
type Store interface {
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, docID string) (*model.Document, error)
	ListDocuments(ctx context.Context) ([]*model.Document, error)
	GetMeta(ctx context.Context, docID string) (*model.DocumentMeta, error)
	SetProcessing(ctx context.Context, docID string) error
	SetError(ctx context.Context, docID string, detail string) error
	CommitRun(ctx context.Context, docID string, meta *model.DocumentMeta, chunks []*model.Chunk) error
	DeleteDocument(ctx context.Context, docID string) error
	ListStuckProcessing(ctx context.Context, olderThan time.Duration) ([]string, error)
}

type AdmitRequest struct {
	Name        string
	FileKey     string
	Description string
	Type        model.DocumentType
	Mode        model.RagMode
}

// IngestService owns the document status machine and the bounded worker pool
// that executes pipeline runs. At most one run is active or queued per
// document id at any time.
type IngestService struct {
	store    Store
	files    filestore.Store
	embedder ai.IEmbedder
	chunker  *chunker.Chunker
	cfg      config.IngestConfig

	queue chan string

	mu       sync.Mutex
	inflight map[string]struct{}

	group *errgroup.Group
}

func NewIngestService(store Store, files filestore.Store, embedder ai.IEmbedder, cfg config.IngestConfig) *IngestService {
	return &IngestService{
		store:    store,
		files:    files,
		embedder: embedder,
		chunker:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:      cfg,
		queue:    make(chan string, cfg.QueueSize),
		inflight: make(map[string]struct{}),
	}
}

// Start launches the worker pool. Workers drain until ctx is canceled.
func (s *IngestService) Start(ctx context.Context) {
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Workers; i++ {
		group.Go(func() error {
			return s.worker(ctx)
		})
	}
	s.group = group
}

func (s *IngestService) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

func (s *IngestService) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case docID := <-s.queue:
			s.runPipeline(ctx, docID)
			s.release(docID)
		}
	}
}

// Admit creates the document in PROCESSING and schedules its first run. The
// caller has already placed the raw bytes in the file store under FileKey.
func (s *IngestService) Admit(ctx context.Context, req AdmitRequest) (*model.Document, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown document type: %s", apperr.ErrInvalid, req.Type)
	}
	if req.Mode == "" {
		req.Mode = model.RagModeSemantic
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown rag mode: %s", apperr.ErrInvalid, req.Mode)
	}
	if req.Name == "" || req.FileKey == "" {
		return nil, fmt.Errorf("%w: name and file key are required", apperr.ErrInvalid)
	}
	now := time.Now().Unix()
	doc := &model.Document{
		ID:          uuid.NewString(),
		Name:        req.Name,
		FileKey:     req.FileKey,
		Type:        req.Type,
		Mode:        req.Mode,
		Description: req.Description,
		Status:      model.StatusProcessing,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	if s.tryAcquire(doc.ID) {
		s.enqueue(ctx, doc.ID)
	}
	return doc, nil
}

func (s *IngestService) Get(ctx context.Context, docID string) (*model.Document, *model.DocumentMeta, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	meta, err := s.store.GetMeta(ctx, docID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			return nil, nil, err
		}
		meta = nil
	}
	return doc, meta, nil
}

func (s *IngestService) List(ctx context.Context) ([]*model.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Reprocess schedules a fresh run for an existing document. A document whose
// run is active or queued is rejected with a busy conflict, never interleaved.
func (s *IngestService) Reprocess(ctx context.Context, docID string) error {
	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		return err
	}
	if !s.tryAcquire(docID) {
		return fmt.Errorf("%w: document is already being processed", apperr.ErrConflict)
	}
	if err := s.store.SetProcessing(ctx, docID); err != nil {
		s.release(docID)
		return err
	}
	s.enqueue(ctx, docID)
	return nil
}

// Delete removes the document, its chunks and metadata, then drops the stored
// bytes. A busy document cannot be deleted mid-run.
func (s *IngestService) Delete(ctx context.Context, docID string) error {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if !s.tryAcquire(docID) {
		return fmt.Errorf("%w: document is being processed", apperr.ErrConflict)
	}
	defer s.release(docID)
	if err := s.store.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, doc.FileKey); err != nil {
		logutil.GetLogger(ctx).Warn("delete stored file failed",
			zap.String("document_id", docID), zap.String("file_key", doc.FileKey), zap.Error(err))
	}
	return nil
}

// RequeueStuck reschedules documents left in PROCESSING, e.g. after a crash.
// Documents with an active or queued run are skipped.
func (s *IngestService) RequeueStuck(ctx context.Context) error {
	ids, err := s.store.ListStuckProcessing(ctx, time.Duration(s.cfg.StuckAfterMinutes)*time.Minute)
	if err != nil {
		return err
	}
	for _, docID := range ids {
		if !s.tryAcquire(docID) {
			continue
		}
		logutil.GetLogger(ctx).Info("requeueing stuck document", zap.String("document_id", docID))
		s.enqueue(ctx, docID)
	}
	return nil
}

func (s *IngestService) tryAcquire(docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[docID]; busy {
		return false
	}
	s.inflight[docID] = struct{}{}
	return true
}

func (s *IngestService) release(docID string) {
	s.mu.Lock()
	delete(s.inflight, docID)
	s.mu.Unlock()
}

// enqueue assumes the caller holds the document's run slot. A full queue
// defers the document: the slot is released and the requeue job picks the
// still-PROCESSING document up later.
func (s *IngestService) enqueue(ctx context.Context, docID string) {
	select {
	case s.queue <- docID:
	default:
		s.release(docID)
		logutil.GetLogger(ctx).Warn("ingest queue full, deferring document", zap.String("document_id", docID))
	}
}

func (s *IngestService) runPipeline(ctx context.Context, docID string) {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", docID))
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		logger.Error("load document for run failed", zap.Error(err))
		return
	}
	start := time.Now()
	chunks, meta, err := s.executeRun(ctx, doc)
	if err != nil {
		logger.Error("pipeline run failed", zap.Error(err))
		if serr := s.store.SetError(ctx, docID, err.Error()); serr != nil {
			logger.Error("record run error failed", zap.Error(serr))
		}
		return
	}
	if err := s.store.CommitRun(ctx, docID, meta, chunks); err != nil {
		logger.Error("commit run failed", zap.Error(err))
		if serr := s.store.SetError(ctx, docID, err.Error()); serr != nil {
			logger.Error("record run error failed", zap.Error(serr))
		}
		return
	}
	logger.Info("document ready",
		zap.String("type", string(doc.Type)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", time.Since(start)))
}

// executeRun performs the sequential stages of one run: extract, chunk, then
// embed every chunk. Nothing is persisted here; a failure at any stage leaves
// the prior chunk set untouched.
func (s *IngestService) executeRun(ctx context.Context, doc *model.Document) ([]*model.Chunk, *model.DocumentMeta, error) {
	extractor, err := extract.ForType(doc.Type)
	if err != nil {
		return nil, nil, err
	}
	src, err := s.files.Open(ctx, doc.FileKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open source: %v", apperr.ErrExtraction, err)
	}
	defer src.Close()
	res, err := extractor.Extract(ctx, src, doc)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.chunker.Chunk(doc, res.Segments)
	if err != nil {
		return nil, nil, err
	}
	for _, chunk := range chunks {
		embedding, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return nil, nil, err
		}
		chunk.Embedding = embedding
	}
	meta := res.Meta
	meta.DocumentID = doc.ID
	return chunks, &meta, nil
}
