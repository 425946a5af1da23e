package storage

import "context"

// Progress represents the last processed position of an event stream.
type Progress struct {
	Block    int64 // last fully processed block
	TxIndex  int
	LogIndex int
}

// ProgressStore provides persistence for ingestion state.
// This enables resumption after restarts without reprocessing whole ranges.
type ProgressStore interface {
	// GetLastProcessed returns the last processed position of stream.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastProcessed(ctx context.Context, stream string) (*Progress, error)

	// SetLastProcessed saves the last processed position of stream.
	SetLastProcessed(ctx context.Context, stream string, progress *Progress) error
}
