// Package baseline loads historical unit staffing observations used to scale
// staffing estimates.
package baseline

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/readmit/readmit/internal/engine"
)

var requiredColumns = []string{"date", "beds", "nurses", "doctors", "unit"}

// LoadCSV reads a staffing summary export. A missing file or missing columns
// yield an empty dataset; rows with unparseable values are dropped.
func LoadCSV(path string) ([]engine.BaselineRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads baseline rows from CSV. Header order is free and extra columns
// are ignored.
func Parse(r io.Reader) ([]engine.BaselineRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, nil
		}
	}

	var rows []engine.BaselineRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		row, ok := parseRow(rec, idx)
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func parseRow(rec []string, idx map[string]int) (engine.BaselineRow, bool) {
	field := func(name string) string {
		i := idx[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	date, ok := engine.ParseDate(field("date"))
	if !ok {
		return engine.BaselineRow{}, false
	}
	var nums [3]float64
	for i, col := range []string{"beds", "nurses", "doctors"} {
		v, err := strconv.ParseFloat(field(col), 64)
		if err != nil {
			return engine.BaselineRow{}, false
		}
		nums[i] = v
	}
	return engine.BaselineRow{
		Date:    date,
		Beds:    nums[0],
		Nurses:  nums[1],
		Doctors: nums[2],
		Unit:    field("unit"),
	}, true
}

// Source serves the current baseline snapshot and reloads it on demand.
// Snapshots are never mutated after publication.
type Source struct {
	path   string
	logger zerolog.Logger
	rows   atomic.Pointer[[]engine.BaselineRow]
	cron   *cron.Cron
}

// NewSource creates a Source for path and performs the initial load.
func NewSource(path string, logger zerolog.Logger) *Source {
	s := &Source{
		path:   path,
		logger: logger.With().Str("component", "baseline").Logger(),
	}
	s.Reload()
	return s
}

// Rows implements engine.BaselineProvider.
func (s *Source) Rows() []engine.BaselineRow {
	p := s.rows.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Reload re-reads the file and swaps the snapshot. A read failure keeps the
// previous snapshot.
func (s *Source) Reload() int {
	if s.path == "" {
		empty := []engine.BaselineRow{}
		s.rows.Store(&empty)
		return 0
	}
	rows, err := LoadCSV(s.path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("baseline reload failed, keeping previous snapshot")
		return len(s.Rows())
	}
	s.rows.Store(&rows)
	if len(rows) == 0 {
		s.logger.Warn().Str("path", s.path).Msg("baseline dataset empty, staffing will be synthetic")
	} else {
		s.logger.Info().Str("path", s.path).Int("rows", len(rows)).Msg("baseline dataset loaded")
	}
	return len(rows)
}

// StartReloader schedules Reload on a cron spec such as "@hourly" or "0 2 * * *".
// An empty spec disables reloading.
func (s *Source) StartReloader(spec string) error {
	if spec == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Reload() }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info().Str("spec", spec).Msg("baseline reloader started")
	return nil
}

// Stop halts the reloader, waiting for a running reload to finish.
func (s *Source) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
