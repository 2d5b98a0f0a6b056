package followup

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/readmit/readmit/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type followupRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &followupRepoPG{pool: pool}
}

func (r *followupRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const frCols = `id, patient_id, patient_name, condition, adjusted_risk, risk_band,
	channel, next_visit, simulation_date, hospital_unit, prediction_date,
	status, completed_at, created_at`

func (r *followupRepoPG) scanRow(row pgx.Row) (*Record, error) {
	var rec Record
	var status string
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.PatientName, &rec.Condition, &rec.AdjustedRisk, &rec.RiskBand,
		&rec.Channel, &rec.NextVisit, &rec.SimulationDate, &rec.HospitalUnit, &rec.PredictionDate,
		&status, &rec.CompletedAt, &rec.CreatedAt)
	rec.Status = Status(status)
	return &rec, err
}

func (r *followupRepoPG) Append(ctx context.Context, rec *Record) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO followup_record (id, patient_id, patient_name, condition, adjusted_risk, risk_band,
			channel, next_visit, simulation_date, hospital_unit, prediction_date,
			status, completed_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.PatientID, rec.PatientName, rec.Condition, rec.AdjustedRisk, rec.RiskBand,
		rec.Channel, rec.NextVisit, rec.SimulationDate, rec.HospitalUnit, rec.PredictionDate,
		string(rec.Status), rec.CompletedAt, rec.CreatedAt)
	return err
}

func (r *followupRepoPG) ListActive(ctx context.Context, since time.Time, limit, offset int) ([]*Record, int, error) {
	const where = ` FROM followup_record WHERE status <> 'Completed' AND prediction_date >= $1`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+where, since).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + frCols + where + ` ORDER BY prediction_date DESC, created_at DESC`
	args := []interface{}{since}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	items, err := r.collect(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *followupRepoPG) MarkCompleted(ctx context.Context, patientID string, at time.Time) (int, error) {
	var changed int
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		WITH upd AS (
			UPDATE followup_record SET status = 'Completed', completed_at = $2
			WHERE patient_id = $1 AND status <> 'Completed'
			RETURNING 1
		)
		SELECT (SELECT COUNT(*) FROM upd),
			EXISTS (SELECT 1 FROM followup_record WHERE patient_id = $1)`,
		patientID, at).Scan(&changed, &exists)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotFound
	}
	return changed, nil
}

func (r *followupRepoPG) ListAll(ctx context.Context) ([]*Record, error) {
	return r.collect(ctx, `SELECT `+frCols+` FROM followup_record ORDER BY prediction_date DESC, created_at DESC`)
}

func (r *followupRepoPG) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *followupRepoPG) collect(ctx context.Context, query string, args ...interface{}) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
