package ingest

import "time"

// Status is the outcome of one ingestion run.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Skip reasons.
const (
	ReasonNoPDF    = "no PDF available"
	ReasonNoText   = "no extractable text"
	ReasonNoChunks = "no chunks produced"
)

// Result describes the outcome of ingesting one work.
type Result struct {
	Status     Status
	Reason     string
	ChunkCount int
	Elapsed    time.Duration
}
