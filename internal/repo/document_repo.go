package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/aqstack/ragstore/internal/model"
	"github.com/aqstack/ragstore/internal/pkg/dbutil"
	apperr "github.com/aqstack/ragstore/internal/pkg/errors"
)

const documentColumns = "id, name, file_key, type, mode, description, status, error_detail, ctime, mtime"

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":           doc.ID,
		"name":         doc.Name,
		"file_key":     doc.FileKey,
		"type":         string(doc.Type),
		"mode":         string(doc.Mode),
		"description":  doc.Description,
		"status":       string(doc.Status),
		"error_detail": doc.ErrorDetail,
		"ctime":        doc.Ctime,
		"mtime":        doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(sqlStr), args...)
	if dbutil.IsConflict(err) {
		return apperr.ErrConflict
	}
	return err
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": docID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{documentColumns})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, dbutil.Rebind(sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, apperr.ErrNotFound
	}
	return scanDocument(rows)
}

func (r *DocumentRepo) List(ctx context.Context) ([]*model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{documentColumns})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, dbutil.Rebind(sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SetStatus flips a document to the given status outside any run transaction.
// Used for the PROCESSING reset on reprocess and for the ERROR terminal state.
func (r *DocumentRepo) SetStatus(ctx context.Context, docID string, status model.DocumentStatus, errorDetail string) error {
	return r.setStatus(ctx, r.db, docID, status, errorDetail)
}

// SetStatusTx is the in-transaction variant used by the run commit so the
// READY flip becomes visible atomically with the chunk set.
func (r *DocumentRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, docID string, status model.DocumentStatus, errorDetail string) error {
	return r.setStatus(ctx, tx, docID, status, errorDetail)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *DocumentRepo) setStatus(ctx context.Context, ex execer, docID string, status model.DocumentStatus, errorDetail string) error {
	where := map[string]interface{}{
		"id": docID,
	}
	update := map[string]interface{}{
		"status":       string(status),
		"error_detail": errorDetail,
		"mtime":        time.Now().Unix(),
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	result, err := ex.ExecContext(ctx, dbutil.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListStuckProcessing returns documents that have sat in PROCESSING since
// before the cutoff, e.g. after a crash mid-run.
func (r *DocumentRepo) ListStuckProcessing(ctx context.Context, cutoff int64) ([]string, error) {
	const query = `SELECT id FROM documents WHERE status = $1 AND mtime < $2`
	rows, err := r.db.QueryContext(ctx, query, string(model.StatusProcessing), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *DocumentRepo) DeleteTx(ctx context.Context, tx *sql.Tx, docID string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, docID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ReplaceMetaTx rewrites the single metadata record for a document as part of
// a successful run's transaction.
func (r *DocumentRepo) ReplaceMetaTx(ctx context.Context, tx *sql.Tx, meta *model.DocumentMeta) error {
	sheetNames, err := json.Marshal(meta.SheetNames)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO document_meta (document_id, title, author, page_count, row_count, column_count, sheet_count, sheet_names, url, domain)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (document_id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			page_count = EXCLUDED.page_count,
			row_count = EXCLUDED.row_count,
			column_count = EXCLUDED.column_count,
			sheet_count = EXCLUDED.sheet_count,
			sheet_names = EXCLUDED.sheet_names,
			url = EXCLUDED.url,
			domain = EXCLUDED.domain
	`
	_, err = tx.ExecContext(ctx, query,
		meta.DocumentID,
		meta.Title,
		meta.Author,
		meta.PageCount,
		meta.RowCount,
		meta.ColumnCount,
		meta.SheetCount,
		string(sheetNames),
		meta.URL,
		meta.Domain,
	)
	return err
}

func (r *DocumentRepo) GetMeta(ctx context.Context, docID string) (*model.DocumentMeta, error) {
	const query = `
		SELECT document_id, title, author, page_count, row_count, column_count, sheet_count, sheet_names, url, domain
		FROM document_meta
		WHERE document_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, docID)
	var meta model.DocumentMeta
	var sheetNames string
	if err := row.Scan(&meta.DocumentID, &meta.Title, &meta.Author, &meta.PageCount, &meta.RowCount,
		&meta.ColumnCount, &meta.SheetCount, &sheetNames, &meta.URL, &meta.Domain); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(sheetNames), &meta.SheetNames); err != nil {
		return nil, err
	}
	return &meta, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	var docType, mode, status string
	if err := row.Scan(&doc.ID, &doc.Name, &doc.FileKey, &docType, &mode, &doc.Description,
		&status, &doc.ErrorDetail, &doc.Ctime, &doc.Mtime); err != nil {
		return nil, err
	}
	doc.Type = model.DocumentType(docType)
	doc.Mode = model.RagMode(mode)
	doc.Status = model.DocumentStatus(status)
	return &doc, nil
}
