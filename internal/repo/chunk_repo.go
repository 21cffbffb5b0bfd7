package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/aqstack/ragstore/internal/model"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceTx deletes every existing chunk for the document and inserts the new
// set inside the caller's transaction. Readers outside the transaction keep
// seeing the prior set until commit.
func (r *ChunkRepo) ReplaceTx(ctx context.Context, tx *sql.Tx, docID string, chunks []*model.Chunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, docID); err != nil {
		return err
	}
	now := time.Now().Unix()
	const query = `
		INSERT INTO chunks (document_id, ordinal, locator, content, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, chunk := range chunks {
		ctime := chunk.Ctime
		if ctime == 0 {
			ctime = now
		}
		if _, err := tx.ExecContext(ctx, query,
			docID,
			chunk.Ordinal,
			chunk.Locator,
			chunk.Content,
			pgvector.NewVector(chunk.Embedding),
			ctime,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepo) DeleteByDocumentTx(ctx context.Context, tx *sql.Tx, docID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, docID)
	return err
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, docID string) ([]*model.Chunk, error) {
	const query = `
		SELECT document_id, ordinal, locator, content, embedding, ctime
		FROM chunks
		WHERE document_id = $1
		ORDER BY ordinal
	`
	rows, err := r.db.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []*model.Chunk
	for rows.Next() {
		var chunk model.Chunk
		var embedding pgvector.Vector
		if err := rows.Scan(&chunk.DocumentID, &chunk.Ordinal, &chunk.Locator, &chunk.Content, &embedding, &chunk.Ctime); err != nil {
			return nil, err
		}
		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// ListReady returns the chunks of READY semantic documents, optionally
// narrowed to a set of document ids. Narrowing never widens the READY-only
// guarantee. Ordering by (document_id, ordinal) keeps downstream tie-breaks
// deterministic.
func (r *ChunkRepo) ListReady(ctx context.Context, allowedDocIDs []string) ([]*model.ReadyChunk, error) {
	query := `
		SELECT c.document_id, d.name, c.ordinal, c.locator, c.content, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = ? AND d.mode = ?
	`
	args := []interface{}{string(model.StatusReady), string(model.RagModeSemantic)}
	if len(allowedDocIDs) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND c.document_id IN (?)`, args[0], args[1], allowedDocIDs)
		if err != nil {
			return nil, err
		}
	}
	query += ` ORDER BY c.document_id, c.ordinal`
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []*model.ReadyChunk
	for rows.Next() {
		var chunk model.ReadyChunk
		var embedding pgvector.Vector
		if err := rows.Scan(&chunk.DocumentID, &chunk.DocumentName, &chunk.Ordinal, &chunk.Locator, &chunk.Content, &embedding); err != nil {
			return nil, err
		}
		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}
