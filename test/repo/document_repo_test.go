package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aqstack/ragstore/internal/model"
	appErr "github.com/aqstack/ragstore/internal/pkg/errors"
	"github.com/aqstack/ragstore/internal/repo"
	"github.com/aqstack/ragstore/test/testutil"
)

func TestDocumentRepoCRUD(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	now := time.Now().Unix()
	doc := &model.Document{
		ID:      "doc-crud-1",
		Name:    "people.csv",
		FileKey: "k1.csv",
		Type:    model.DocumentTypeCSV,
		Mode:    model.RagModeSemantic,
		Status:  model.StatusProcessing,
		Ctime:   now,
		Mtime:   now,
	}
	require.NoError(t, docs.Create(context.Background(), doc))
	require.ErrorIs(t, docs.Create(context.Background(), doc), appErr.ErrConflict)

	fetched, err := docs.GetByID(context.Background(), "doc-crud-1")
	require.NoError(t, err)
	require.Equal(t, "people.csv", fetched.Name)
	require.Equal(t, model.StatusProcessing, fetched.Status)

	_, err = docs.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, docs.SetStatus(context.Background(), "doc-crud-1", model.StatusError, "embedding service failed"))
	fetched, err = docs.GetByID(context.Background(), "doc-crud-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusError, fetched.Status)
	require.Equal(t, "embedding service failed", fetched.ErrorDetail)

	require.ErrorIs(t, docs.SetStatus(context.Background(), "missing", model.StatusReady, ""), appErr.ErrNotFound)

	listed, err := docs.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, listed)
}

func TestDocumentRepoListStuckProcessing(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	old := time.Now().Add(-2 * time.Hour).Unix()
	stuck := &model.Document{
		ID: "doc-stuck-1", Name: "a", FileKey: "a.csv",
		Type: model.DocumentTypeCSV, Mode: model.RagModeSemantic,
		Status: model.StatusProcessing, Ctime: old, Mtime: old,
	}
	require.NoError(t, docs.Create(context.Background(), stuck))

	fresh := time.Now().Unix()
	active := &model.Document{
		ID: "doc-stuck-2", Name: "b", FileKey: "b.csv",
		Type: model.DocumentTypeCSV, Mode: model.RagModeSemantic,
		Status: model.StatusProcessing, Ctime: fresh, Mtime: fresh,
	}
	require.NoError(t, docs.Create(context.Background(), active))

	cutoff := time.Now().Add(-30 * time.Minute).Unix()
	ids, err := docs.ListStuckProcessing(context.Background(), cutoff)
	require.NoError(t, err)
	require.Contains(t, ids, "doc-stuck-1")
	require.NotContains(t, ids, "doc-stuck-2")
}
