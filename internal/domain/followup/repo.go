package followup

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no follow-up exists for a patient id.
var ErrNotFound = errors.New("follow-up record not found")

// Repository is the append-only follow-up log. Concurrent Appends must never
// lose or corrupt a record.
type Repository interface {
	Append(ctx context.Context, r *Record) error
	// ListActive returns non-completed records predicted on or after since,
	// newest first. limit <= 0 returns all.
	ListActive(ctx context.Context, since time.Time, limit, offset int) ([]*Record, int, error)
	// MarkCompleted completes every record of patientID and returns how many
	// changed state.
	MarkCompleted(ctx context.Context, patientID string, at time.Time) (int, error)
	ListAll(ctx context.Context) ([]*Record, error)
	Ping(ctx context.Context) error
}
