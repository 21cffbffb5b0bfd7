// Package store composes the repo layer into the pipeline's persistence
// contract. Every multi-record mutation runs inside one explicit transaction
// acquired here and released deterministically, so readers never observe a
// mid-replace state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aqstack/ragstore/internal/model"
	apperr "github.com/aqstack/ragstore/internal/pkg/errors"
	"github.com/aqstack/ragstore/internal/repo"
)

type Store struct {
	db     *sql.DB
	docs   *repo.DocumentRepo
	chunks *repo.ChunkRepo
}

func New(db *sql.DB, docs *repo.DocumentRepo, chunks *repo.ChunkRepo) *Store {
	return &Store{db: db, docs: docs, chunks: chunks}
}

func (s *Store) CreateDocument(ctx context.Context, doc *model.Document) error {
	return s.docs.Create(ctx, doc)
}

func (s *Store) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, docID)
}

func (s *Store) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	return s.docs.List(ctx)
}

func (s *Store) GetMeta(ctx context.Context, docID string) (*model.DocumentMeta, error) {
	return s.docs.GetMeta(ctx, docID)
}

// SetProcessing resets a document for a new pipeline run.
func (s *Store) SetProcessing(ctx context.Context, docID string) error {
	return s.docs.SetStatus(ctx, docID, model.StatusProcessing, "")
}

// SetError records the terminal error of a run. Chunks computed during the
// failed run were never persisted, so nothing else needs to roll back.
func (s *Store) SetError(ctx context.Context, docID string, detail string) error {
	return s.docs.SetStatus(ctx, docID, model.StatusError, detail)
}

// CommitRun atomically replaces the document's chunk set, rewrites its
// metadata record and flips it to READY. On any failure the transaction rolls
// back and the prior chunk set stays intact.
func (s *Store) CommitRun(ctx context.Context, docID string, meta *model.DocumentMeta, chunks []*model.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", apperr.ErrPersistence, err)
	}
	defer tx.Rollback()
	if err := s.chunks.ReplaceTx(ctx, tx, docID, chunks); err != nil {
		return fmt.Errorf("%w: replace chunks: %v", apperr.ErrPersistence, err)
	}
	if err := s.docs.ReplaceMetaTx(ctx, tx, meta); err != nil {
		return fmt.Errorf("%w: replace metadata: %v", apperr.ErrPersistence, err)
	}
	if err := s.docs.SetStatusTx(ctx, tx, docID, model.StatusReady, ""); err != nil {
		return fmt.Errorf("%w: set status: %v", apperr.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// DeleteDocument removes the document with its chunks and metadata in one
// transaction (the schema also cascades as a backstop).
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", apperr.ErrPersistence, err)
	}
	defer tx.Rollback()
	if err := s.chunks.DeleteByDocumentTx(ctx, tx, docID); err != nil {
		return fmt.Errorf("%w: delete chunks: %v", apperr.ErrPersistence, err)
	}
	if err := s.docs.DeleteTx(ctx, tx, docID); err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("%w: delete document: %v", apperr.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (s *Store) ChunksFor(ctx context.Context, docID string) ([]*model.Chunk, error) {
	return s.chunks.ListByDocument(ctx, docID)
}

func (s *Store) ListReadyChunks(ctx context.Context, allowedDocIDs []string) ([]*model.ReadyChunk, error) {
	return s.chunks.ListReady(ctx, allowedDocIDs)
}

func (s *Store) ListStuckProcessing(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	return s.docs.ListStuckProcessing(ctx, cutoff)
}
