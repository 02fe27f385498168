package async

import (
	"context"
	"time"
)

// Job is one certificate file waiting to be submitted.
type Job struct {
	Path        string
	Overwrite   bool // replace a stored certificate with the same number
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
