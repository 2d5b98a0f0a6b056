package followup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/readmit/readmit/internal/engine"
	"github.com/readmit/readmit/internal/platform/metrics"
)

// ErrStorageUnavailable wraps any backend failure.
var ErrStorageUnavailable = errors.New("follow-up storage unavailable")

// ErrPatientIDRequired is returned when completing without a patient id.
var ErrPatientIDRequired = errors.New("patient id required")

// ActiveWindowMonths bounds how far back active follow-ups are listed.
const ActiveWindowMonths = 6

// Publisher receives follow-up lifecycle events.
type Publisher interface {
	Publish(eventType string, data interface{}) bool
}

// Event types handed to the Publisher.
const (
	EventCreated   = "followup.created"
	EventCompleted = "followup.completed"
)

// CompletedEvent is the payload of EventCompleted.
type CompletedEvent struct {
	PatientID   string    `json:"patient_id"`
	Updated     int       `json:"updated"`
	CompletedAt time.Time `json:"completed_at"`
}

type Service struct {
	repo      Repository
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "followup").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetPublisher sets the sink for lifecycle events. Nil disables publishing.
func (s *Service) SetPublisher(p Publisher) { s.publisher = p }

func (s *Service) publish(eventType string, data interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, data)
	}
}

func (s *Service) storageErr(op string, err error) error {
	metrics.RecordStoreError(op)
	s.logger.Error().Err(err).Str("op", op).Msg("follow-up store failure")
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// Record persists a pending follow-up derived from rep.
func (s *Service) Record(ctx context.Context, rep engine.ReportData) (*Record, error) {
	rec := NewRecord(rep, s.now())
	if err := s.repo.Append(ctx, rec); err != nil {
		return nil, s.storageErr("append", err)
	}
	s.publish(EventCreated, rec)
	return rec, nil
}

// ListActive returns pending follow-ups from the last six months, newest first.
func (s *Service) ListActive(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	since := truncateDay(s.now().AddDate(0, -ActiveWindowMonths, 0))
	items, total, err := s.repo.ListActive(ctx, since, limit, offset)
	if err != nil {
		return nil, 0, s.storageErr("list", err)
	}
	return items, total, nil
}

// Complete marks every follow-up of patientID completed.
func (s *Service) Complete(ctx context.Context, patientID string) (int, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return 0, ErrPatientIDRequired
	}
	at := s.now()
	n, err := s.repo.MarkCompleted(ctx, patientID, at)
	if errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, s.storageErr("complete", err)
	}
	s.logger.Info().Str("patient_id", patientID).Int("records", n).Msg("follow-up completed")
	s.publish(EventCompleted, CompletedEvent{PatientID: patientID, Updated: n, CompletedAt: at})
	return n, nil
}

// ListAll returns every record, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*Record, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, s.storageErr("list_all", err)
	}
	return items, nil
}

// Ping probes the backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
