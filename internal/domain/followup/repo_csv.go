package followup

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Column headers of the CSV log. The first eleven match exports produced by
// earlier deployments. A file whose header differs from this one in any way
// (legacy, reordered, extra columns) is rewritten in this order on open.
var csvHeader = []string{
	"Patient ID", "Patient Name", "Problem Type",
	"Readmission Probability", "Risk Label",
	"Followup Channel", "Next Visit",
	"Simulation Date", "Hospital Unit",
	"Prediction Date", "Status",
	"Record ID", "Completed At", "Created At",
}

type followupRepoCSV struct {
	path string
	mu   sync.Mutex
}

// NewRepoCSV opens (or creates) the CSV log at path.
func NewRepoCSV(path string) (Repository, error) {
	r := &followupRepoCSV{path: path}
	if err := r.ensure(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *followupRepoCSV) ensure() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create follow-up directory: %w", err)
		}
	}
	info, err := os.Stat(r.path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		return r.rewrite(nil)
	}
	if err != nil {
		return err
	}

	records, header, err := r.readAll()
	if err != nil {
		return err
	}
	if !headerMatches(header) {
		return r.rewrite(records)
	}
	return nil
}

func headerMatches(header []string) bool {
	if len(header) != len(csvHeader) {
		return false
	}
	for i, h := range header {
		if strings.TrimSpace(h) != csvHeader[i] {
			return false
		}
	}
	return true
}

func (r *followupRepoCSV) Append(_ context.Context, rec *Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(encodeRow(rec)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open follow-up log: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("append follow-up: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync follow-up log: %w", err)
	}
	return f.Close()
}

func (r *followupRepoCSV) ListActive(_ context.Context, since time.Time, limit, offset int) ([]*Record, int, error) {
	r.mu.Lock()
	records, _, err := r.readAll()
	r.mu.Unlock()
	if err != nil {
		return nil, 0, err
	}

	var active []*Record
	for _, rec := range records {
		if rec.IsActive() && !rec.PredictionDate.IsZero() && !rec.PredictionDate.Before(since) {
			active = append(active, rec)
		}
	}
	sortNewestFirst(active)

	total := len(active)
	if limit <= 0 {
		return active, total, nil
	}
	if offset >= total {
		return []*Record{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return active[offset:end], total, nil
}

func (r *followupRepoCSV) MarkCompleted(_ context.Context, patientID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, _, err := r.readAll()
	if err != nil {
		return 0, err
	}
	found, changed := false, 0
	for _, rec := range records {
		if rec.PatientID != patientID {
			continue
		}
		found = true
		if rec.Status != StatusCompleted {
			rec.Status = StatusCompleted
			t := at.UTC()
			rec.CompletedAt = &t
			changed++
		}
	}
	if !found {
		return 0, ErrNotFound
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, r.rewrite(records)
}

func (r *followupRepoCSV) ListAll(_ context.Context) ([]*Record, error) {
	r.mu.Lock()
	records, _, err := r.readAll()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(records)
	return records, nil
}

func (r *followupRepoCSV) Ping(_ context.Context) error {
	f, err := os.OpenFile(r.path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

// readAll parses the whole log. Callers hold mu.
func (r *followupRepoCSV) readAll() ([]*Record, []string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open follow-up log: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read follow-up header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	var records []*Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read follow-up row: %w", err)
		}
		records = append(records, decodeRow(row, idx))
	}
	return records, header, nil
}

// rewrite replaces the log atomically via a temp file in the same directory.
// Callers hold mu.
func (r *followupRepoCSV) rewrite(records []*Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".followups-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return err
	}
	for _, rec := range records {
		if err := w.Write(encodeRow(rec)); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

func encodeRow(rec *Record) []string {
	completed := ""
	if rec.CompletedAt != nil {
		completed = rec.CompletedAt.UTC().Format(time.RFC3339)
	}
	predicted := ""
	if !rec.PredictionDate.IsZero() {
		predicted = rec.PredictionDate.Format(DateLayout)
	}
	id := ""
	if rec.ID != uuid.Nil {
		id = rec.ID.String()
	}
	created := ""
	if !rec.CreatedAt.IsZero() {
		created = rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		rec.PatientID, rec.PatientName, rec.Condition,
		strconv.FormatFloat(rec.AdjustedRisk, 'f', 4, 64), rec.RiskBand,
		rec.Channel, rec.NextVisit,
		rec.SimulationDate, rec.HospitalUnit,
		predicted, string(rec.Status),
		id, completed, created,
	}
}

func decodeRow(row []string, idx map[string]int) *Record {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := &Record{
		PatientID:      get("Patient ID"),
		PatientName:    get("Patient Name"),
		Condition:      get("Problem Type"),
		RiskBand:       get("Risk Label"),
		Channel:        get("Followup Channel"),
		NextVisit:      get("Next Visit"),
		SimulationDate: get("Simulation Date"),
		HospitalUnit:   get("Hospital Unit"),
		Status:         Status(get("Status")),
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if v, err := strconv.ParseFloat(get("Readmission Probability"), 64); err == nil {
		rec.AdjustedRisk = v
	}
	if t, err := time.Parse(DateLayout, firstN(get("Prediction Date"), len(DateLayout))); err == nil {
		rec.PredictionDate = t
	}
	if id, err := uuid.Parse(get("Record ID")); err == nil {
		rec.ID = id
	}
	if t, err := time.Parse(time.RFC3339, get("Completed At")); err == nil {
		rec.CompletedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, get("Created At")); err == nil {
		rec.CreatedAt = t
	}
	return rec
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func sortNewestFirst(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.PredictionDate.Equal(b.PredictionDate) {
			return a.PredictionDate.After(b.PredictionDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
