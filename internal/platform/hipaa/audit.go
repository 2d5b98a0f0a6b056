package hipaa

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/readmit/readmit/internal/platform/db"
)

// Audit actions, aligned with the FHIR AuditEvent action codes.
const (
	ActionCreate  = "C"
	ActionRead    = "R"
	ActionUpdate  = "U"
	ActionExecute = "E"
)

// Audit outcomes, aligned with the FHIR AuditEvent outcome codes.
const (
	OutcomeSuccess        = "0"
	OutcomeMinorFailure   = "4"
	OutcomeSeriousFailure = "8"
)

// AccessEvent records one access to protected health information.
// PatientID is empty for bulk reads such as the follow-up list.
type AccessEvent struct {
	ID         uuid.UUID `json:"id"`
	PatientID  string    `json:"patient_id,omitempty"`
	Resource   string    `json:"resource"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	Actor      string    `json:"actor"`
	Roles      []string  `json:"roles,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}

// Sink persists access events.
type Sink interface {
	Write(ctx context.Context, ev *AccessEvent) error
}

// PGSink writes events to the phi_access_log table.
type PGSink struct {
	pool *pgxpool.Pool
}

func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

func (s *PGSink) Write(ctx context.Context, ev *AccessEvent) error {
	const query = `
		INSERT INTO phi_access_log (
			id, patient_id, resource, action, outcome, actor, roles,
			ip_address, user_agent, request_id, accessed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	args := []any{
		ev.ID, ev.PatientID, ev.Resource, ev.Action, ev.Outcome, ev.Actor, ev.Roles,
		ev.IPAddress, ev.UserAgent, ev.RequestID, ev.AccessedAt,
	}
	if tx := db.TxFromContext(ctx); tx != nil {
		_, err := tx.Exec(ctx, query, args...)
		return err
	}
	_, err := s.pool.Exec(ctx, query, args...)
	return err
}

// LogSink writes events as structured log lines. Used when there is no
// database to hold the audit trail.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "phi_audit").Logger()}
}

func (s *LogSink) Write(_ context.Context, ev *AccessEvent) error {
	s.logger.Info().
		Str("audit_id", ev.ID.String()).
		Str("patient_id", ev.PatientID).
		Str("resource", ev.Resource).
		Str("action", ev.Action).
		Str("outcome", ev.Outcome).
		Str("actor", ev.Actor).
		Strs("roles", ev.Roles).
		Str("ip", ev.IPAddress).
		Str("request_id", ev.RequestID).
		Time("accessed_at", ev.AccessedAt).
		Msg("phi access")
	return nil
}

// AuditLogger stamps and records access events.
type AuditLogger struct {
	sink   Sink
	logger zerolog.Logger
	now    func() time.Time
}

func NewAuditLogger(sink Sink, logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{
		sink:   sink,
		logger: logger.With().Str("component", "phi_audit").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// LogAccess assigns an ID and timestamp when missing and writes the event.
// A sink failure is logged and returned; callers decide whether it is fatal.
func (a *AuditLogger) LogAccess(ctx context.Context, ev *AccessEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.AccessedAt.IsZero() {
		ev.AccessedAt = a.now()
	}
	if ev.Outcome == "" {
		ev.Outcome = OutcomeSuccess
	}
	if err := a.sink.Write(ctx, ev); err != nil {
		a.logger.Error().Err(err).
			Str("resource", ev.Resource).
			Str("patient_id", ev.PatientID).
			Msg("failed to record phi access")
		return fmt.Errorf("phi audit: %w", err)
	}
	return nil
}
