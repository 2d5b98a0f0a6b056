package engine

import (
	"math"
	"sort"
	"strings"
	"time"
)

// DateWindow is how far a baseline row may sit from the simulation date.
const DateWindow = 3 * day

// BaselineRow is one historical staffing observation.
type BaselineRow struct {
	Date    time.Time
	Beds    float64
	Nurses  float64
	Doctors float64
	Unit    string
}

// BaselineProvider exposes a read-only snapshot of historical staffing rows.
type BaselineProvider interface {
	Rows() []BaselineRow
}

// StaffingEstimate is the projected unit capacity.
type StaffingEstimate struct {
	ExpectedReadmissions float64 `json:"expected_readmissions"`
	SuggestedBeds        int     `json:"suggested_beds"`
	SuggestedNurses      int     `json:"suggested_nurses"`
	SuggestedDoctors     int     `json:"suggested_doctors"`
}

// CohortEstimate is the staffing projection for a group of patients.
type CohortEstimate struct {
	TotalPatients        int              `json:"total_patients"`
	RiskCounts           map[RiskBand]int `json:"risk_counts"`
	ExpectedReadmissions float64          `json:"expected_readmissions"`
	RequiredDoctors      int              `json:"required_doctors"`
	RequiredNurses       int              `json:"required_nurses"`
	RequiredBeds         int              `json:"required_beds"`
}

// Simulator projects staffing needs from risk.
type Simulator struct{}

// NewSimulator creates a Simulator.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// ExpectedReadmissions is the per-patient expected readmission figure.
func ExpectedReadmissions(risk float64) float64 {
	return Round(risk*10, 2)
}

// Single projects staffing for one adjusted risk. When rows is empty the
// estimate is synthetic. simDate may be zero and unit may be empty.
func (s *Simulator) Single(risk float64, simDate time.Time, unit string, rows []BaselineRow) StaffingEstimate {
	expected := ExpectedReadmissions(risk)
	if len(rows) == 0 {
		base := max(1, int(expected))
		return StaffingEstimate{
			ExpectedReadmissions: expected,
			SuggestedBeds:        base,
			SuggestedNurses:      max(1, base/2+1),
			SuggestedDoctors:     max(1, base/3+1),
		}
	}

	selected := filterBaseline(rows, simDate, unit)
	if len(selected) == 0 {
		selected = rows
	}

	var beds, nurses, doctors float64
	for _, r := range selected {
		beds += r.Beds
		nurses += r.Nurses
		doctors += r.Doctors
	}
	n := float64(len(selected))
	factor := 0.8 + risk*0.8

	return StaffingEstimate{
		ExpectedReadmissions: expected,
		SuggestedBeds:        scaleBase(beds/n, factor),
		SuggestedNurses:      scaleBase(nurses/n, factor),
		SuggestedDoctors:     scaleBase(doctors/n, factor),
	}
}

func scaleBase(mean, factor float64) int {
	base := max(1, int(math.RoundToEven(mean)))
	return max(1, int(math.RoundToEven(float64(base)*factor)))
}

func filterBaseline(rows []BaselineRow, simDate time.Time, unit string) []BaselineRow {
	unit = strings.ToLower(strings.TrimSpace(unit))
	out := make([]BaselineRow, 0, len(rows))
	for _, r := range rows {
		if unit != "" && !strings.Contains(strings.ToLower(r.Unit), unit) {
			continue
		}
		out = append(out, r)
	}
	if simDate.IsZero() {
		return out
	}

	within := out[:0:0]
	for _, r := range out {
		if dayDistance(r.Date, simDate) <= int(DateWindow/day) {
			within = append(within, r)
		}
	}
	sort.SliceStable(within, func(i, j int) bool {
		return dayDistance(within[i].Date, simDate) < dayDistance(within[j].Date, simDate)
	})
	return within
}

func dayDistance(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d / day)
}

// Cohort projects staffing for a set of banded patients. Unknown bands
// count as Low.
func (s *Simulator) Cohort(bands []RiskBand) CohortEstimate {
	counts := map[RiskBand]int{BandHigh: 0, BandMedium: 0, BandLow: 0}
	for _, b := range bands {
		switch b {
		case BandHigh, BandMedium:
			counts[b]++
		default:
			counts[BandLow]++
		}
	}
	high := float64(counts[BandHigh])
	medium := float64(counts[BandMedium])
	low := float64(counts[BandLow])

	expected := 0.8*high + 0.4*medium + 0.1*low
	return CohortEstimate{
		TotalPatients:        len(bands),
		RiskCounts:           counts,
		ExpectedReadmissions: Round(expected, 2),
		RequiredDoctors:      max(1, int(math.Floor(1+expected/10+high/5))),
		RequiredNurses:       max(2, int(math.Floor(2+expected/4+high/3+medium/5))),
		RequiredBeds:         max(0, int(math.Floor(expected))+counts[BandHigh]),
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
}

// ParseDate accepts the date layouts seen in intake forms and staffing
// exports. It returns the zero time when none match.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
