package job

import (
	"context"

	"github.com/aqstack/ragstore/internal/service"
)

// RequeueJob reschedules documents stuck in PROCESSING, typically ones whose
// run was lost to a crash or a full ingest queue.
type RequeueJob struct {
	ingest *service.IngestService
}

func NewRequeueJob(ingest *service.IngestService) *RequeueJob {
	return &RequeueJob{ingest: ingest}
}

func (j *RequeueJob) Name() string {
	return "ingest_requeue"
}

func (j *RequeueJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	return j.ingest.RequeueStuck(ctx)
}
