package engine

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestSingle_SyntheticFallback(t *testing.T) {
	sim := NewSimulator()
	got := sim.Single(0.81, time.Time{}, "", nil)
	if got.ExpectedReadmissions != 8.1 {
		t.Errorf("expected 8.1, got %v", got.ExpectedReadmissions)
	}
	if got.SuggestedBeds != 8 || got.SuggestedNurses != 5 || got.SuggestedDoctors != 3 {
		t.Errorf("unexpected estimate %+v", got)
	}

	low := sim.Single(0, time.Time{}, "", nil)
	if low.SuggestedBeds != 1 || low.SuggestedNurses != 1 || low.SuggestedDoctors != 1 {
		t.Errorf("expected floors of 1, got %+v", low)
	}
}

func TestSingle_BaselineScaling(t *testing.T) {
	rows := []BaselineRow{
		{Date: date("2024-01-01"), Beds: 8, Nurses: 4, Doctors: 2, Unit: "ICU"},
		{Date: date("2024-01-02"), Beds: 12, Nurses: 6, Doctors: 2, Unit: "ICU"},
	}
	got := NewSimulator().Single(1.0, time.Time{}, "", rows)
	if got.SuggestedBeds != 16 || got.SuggestedNurses != 8 || got.SuggestedDoctors != 3 {
		t.Errorf("expected 16/8/3, got %+v", got)
	}
	if got.ExpectedReadmissions != 10 {
		t.Errorf("expected 10, got %v", got.ExpectedReadmissions)
	}
}

func TestSingle_UnitFilter(t *testing.T) {
	rows := []BaselineRow{
		{Date: date("2024-01-01"), Beds: 10, Nurses: 5, Doctors: 2, Unit: "Cardiac ICU"},
		{Date: date("2024-01-01"), Beds: 40, Nurses: 20, Doctors: 8, Unit: "General Ward"},
	}
	got := NewSimulator().Single(0, time.Time{}, "icu", rows)
	// factor 0.8
	if got.SuggestedBeds != 8 || got.SuggestedNurses != 4 || got.SuggestedDoctors != 2 {
		t.Errorf("expected ICU-only 8/4/2, got %+v", got)
	}
}

func TestSingle_DateWindow(t *testing.T) {
	rows := []BaselineRow{
		{Date: date("2024-01-09"), Beds: 10, Nurses: 5, Doctors: 2, Unit: "ICU"},
		{Date: date("2024-02-01"), Beds: 50, Nurses: 25, Doctors: 10, Unit: "ICU"},
	}
	got := NewSimulator().Single(0.25, date("2024-01-10"), "", rows)
	// factor 1.0 over the single row within 3 days
	if got.SuggestedBeds != 10 || got.SuggestedNurses != 5 || got.SuggestedDoctors != 2 {
		t.Errorf("expected 10/5/2, got %+v", got)
	}
}

func TestSingle_EmptyFilterFallsBackToAllRows(t *testing.T) {
	rows := []BaselineRow{
		{Date: date("2024-01-01"), Beds: 10, Nurses: 6, Doctors: 2, Unit: "ICU"},
		{Date: date("2024-01-02"), Beds: 20, Nurses: 4, Doctors: 4, Unit: "Ward"},
	}
	got := NewSimulator().Single(0.25, date("2030-01-01"), "oncology", rows)
	if got.SuggestedBeds != 15 || got.SuggestedNurses != 5 || got.SuggestedDoctors != 3 {
		t.Errorf("expected means 15/5/3, got %+v", got)
	}
}

func TestSingle_RoundsHalfToEven(t *testing.T) {
	rows := []BaselineRow{
		{Date: date("2024-01-01"), Beds: 2, Nurses: 3, Doctors: 1, Unit: "ICU"},
		{Date: date("2024-01-02"), Beds: 3, Nurses: 4, Doctors: 2, Unit: "ICU"},
	}
	// means 2.5 / 3.5 / 1.5 at factor 1.0
	got := NewSimulator().Single(0.25, time.Time{}, "", rows)
	if got.SuggestedBeds != 2 || got.SuggestedNurses != 4 || got.SuggestedDoctors != 2 {
		t.Errorf("expected 2/4/2, got %+v", got)
	}
}

func TestScaleBase_Ties(t *testing.T) {
	tests := []struct {
		mean, factor float64
		want         int
	}{
		{2.5, 1.0, 2},
		{3.5, 1.0, 4},
		{0.5, 1.0, 1},
		{5, 0.5, 2},
		{7, 0.5, 4},
		{0.2, 0.8, 1},
	}
	for _, tt := range tests {
		if got := scaleBase(tt.mean, tt.factor); got != tt.want {
			t.Errorf("scaleBase(%v, %v) = %d, want %d", tt.mean, tt.factor, got, tt.want)
		}
	}
}

func TestCohort_Empty(t *testing.T) {
	got := NewSimulator().Cohort(nil)
	if got.ExpectedReadmissions != 0 || got.RequiredDoctors != 1 || got.RequiredNurses != 2 || got.RequiredBeds != 0 {
		t.Errorf("expected 0/1/2/0, got %+v", got)
	}
	if got.TotalPatients != 0 {
		t.Errorf("expected 0 patients, got %d", got.TotalPatients)
	}
}

func TestCohort_Mix(t *testing.T) {
	bands := []RiskBand{BandHigh, BandHigh, BandMedium, BandLow, RiskBand("bogus")}
	got := NewSimulator().Cohort(bands)
	if got.TotalPatients != 5 {
		t.Errorf("expected 5 patients, got %d", got.TotalPatients)
	}
	if got.RiskCounts[BandHigh] != 2 || got.RiskCounts[BandMedium] != 1 || got.RiskCounts[BandLow] != 2 {
		t.Errorf("unexpected counts %v", got.RiskCounts)
	}
	if got.ExpectedReadmissions != 2.2 {
		t.Errorf("expected 2.2, got %v", got.ExpectedReadmissions)
	}
	if got.RequiredDoctors != 1 || got.RequiredNurses != 3 || got.RequiredBeds != 4 {
		t.Errorf("expected 1/3/4, got %+v", got)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-05", "2024-03-05T10:00:00Z", "2024/03/05", "03/05/2024"} {
		d, ok := ParseDate(s)
		if !ok || d.Year() != 2024 || d.Month() != time.March || d.Day() != 5 {
			t.Errorf("ParseDate(%q) = %v, %v", s, d, ok)
		}
	}
	if _, ok := ParseDate("soon"); ok {
		t.Error("expected failure for unparseable date")
	}
}
