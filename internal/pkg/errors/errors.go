package errors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal")

	// Pipeline error kinds. Each stage of an ingestion run fails with exactly
	// one of these; the coordinator matches on the kind to record the
	// document's error detail. None of them escape the coordinator.
	ErrExtraction       = errors.New("extraction failed")
	ErrChunking         = errors.New("chunking failed")
	ErrEmbeddingService = errors.New("embedding service failed")
	ErrPersistence      = errors.New("persistence failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
