package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// -- Fakes --

type fakeModel struct {
	probability float64
	err         error
	names       []string
	namesErr    error
	calls       int
	lastInput   FeatureVector
}

func (m *fakeModel) PredictProbability(_ context.Context, fv FeatureVector) (float64, error) {
	m.calls++
	m.lastInput = fv
	return m.probability, m.err
}

func (m *fakeModel) FeatureNames(_ context.Context, _ ConditionType) ([]string, error) {
	if m.namesErr != nil {
		return nil, m.namesErr
	}
	return m.names, nil
}

type panickingSeverity struct{}

func (panickingSeverity) ScoreSeverity(PatientRecord, ConditionType) float64 {
	panic("severity table corrupted")
}

type staticBaseline []BaselineRow

func (b staticBaseline) Rows() []BaselineRow { return b }

func highRiskRecord() PatientRecord {
	return PatientRecord{
		FieldPatientID:       "P-100",
		FieldPatientName:     "Jane Roe",
		FieldProblemType:     "Heart Failure",
		FeatureAge:           80,
		FeatureBloodPressure: "165/95",
		FeatureECG:           "Abnormal",
	}
}

func newTestEngine(m Model, b BaselineProvider) *Engine {
	e := New(m, b, zerolog.Nop())
	e.Aggregator = NewAggregator(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	})
	return e
}

// -- Engine Tests --

func TestAssess_ModelMode(t *testing.T) {
	m := &fakeModel{probability: 0.9}
	e := newTestEngine(m, nil)

	rep, err := e.Assess(context.Background(), highRiskRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.CalibrationMode != ModeModel {
		t.Errorf("expected model mode, got %s", rep.CalibrationMode)
	}
	// severity 6 -> 0.75; 0.4*0.9 + 0.6*0.75 = 0.81
	if rep.SeverityScore != 6 {
		t.Errorf("expected severity 6, got %v", rep.SeverityScore)
	}
	if rep.AdjustedRisk != 0.81 {
		t.Errorf("expected 0.81, got %v", rep.AdjustedRisk)
	}
	if rep.RiskBand != BandHigh || rep.PredictionLabel != "Yes" {
		t.Errorf("expected High/Yes, got %s/%s", rep.RiskBand, rep.PredictionLabel)
	}
	if rep.Plan.Channel != ChannelHigh {
		t.Errorf("expected %q, got %q", ChannelHigh, rep.Plan.Channel)
	}
	if rep.Staffing.SuggestedBeds != 8 || rep.Staffing.SuggestedNurses != 5 || rep.Staffing.SuggestedDoctors != 3 {
		t.Errorf("unexpected staffing %+v", rep.Staffing)
	}
	if rep.PatientID != "P-100" || rep.ConditionLabel != "Heart Failure" {
		t.Errorf("unexpected identity fields %q %q", rep.PatientID, rep.ConditionLabel)
	}
	if m.calls != 1 {
		t.Errorf("expected one model call, got %d", m.calls)
	}
	if m.lastInput.Len() != 17 {
		t.Errorf("expected default schema width, got %d", m.lastInput.Len())
	}
}

func TestAssess_ModelFailureFallsBack(t *testing.T) {
	m := &fakeModel{err: errors.New("connection refused")}
	e := newTestEngine(m, nil)

	rep, err := e.Assess(context.Background(), highRiskRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.CalibrationMode != ModeHeuristic {
		t.Errorf("expected heuristic mode, got %s", rep.CalibrationMode)
	}
	if rep.FallbackReason == "" {
		t.Error("expected fallback reason")
	}
	// heuristic 0.15+0.20+0.15+0.12 = 0.62; 0.4*0.62 + 0.45 = 0.698
	if rep.AdjustedRisk != 0.698 {
		t.Errorf("expected 0.698, got %v", rep.AdjustedRisk)
	}
	if rep.RiskBand != BandMedium {
		t.Errorf("expected Medium, got %s", rep.RiskBand)
	}
}

func TestAssess_OutOfRangeProbabilityFallsBack(t *testing.T) {
	e := newTestEngine(&fakeModel{probability: 1.7}, nil)
	rep, err := e.Assess(context.Background(), highRiskRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.CalibrationMode != ModeHeuristic {
		t.Errorf("expected heuristic mode, got %s", rep.CalibrationMode)
	}
}

func TestAssess_NoModel(t *testing.T) {
	e := newTestEngine(nil, nil)
	rep, err := e.Assess(context.Background(), PatientRecord{FieldProblemType: "diabetes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.CalibrationMode != ModeHeuristic || rep.FallbackReason != "" {
		t.Errorf("expected plain heuristic mode, got %s (%q)", rep.CalibrationMode, rep.FallbackReason)
	}
	if rep.Condition != Diabetes {
		t.Errorf("expected diabetes, got %s", rep.Condition)
	}
	if rep.RiskBand != BandLow || rep.Plan.Channel != ChannelLow {
		t.Errorf("expected low plan, got %s %q", rep.RiskBand, rep.Plan.Channel)
	}
}

func TestAssess_ModelFeatureOrder(t *testing.T) {
	m := &fakeModel{probability: 0.2, names: []string{FeatureAge, "Extra"}}
	e := newTestEngine(m, nil)

	rep, err := e.Assess(context.Background(), highRiskRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.FeatureOrder) != 2 || rep.FeatureOrder[1] != "Extra" {
		t.Errorf("expected model order, got %v", rep.FeatureOrder)
	}
	if rep.Features["Extra"] != 0 || rep.Features[FeatureAge] != 80 {
		t.Errorf("unexpected features %v", rep.Features)
	}
}

func TestAssess_FeatureNamesUnavailable(t *testing.T) {
	m := &fakeModel{probability: 0.2, namesErr: ErrFeatureNamesUnavailable}
	e := newTestEngine(m, nil)
	rep, err := e.Assess(context.Background(), highRiskRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.FeatureOrder) != len(DefaultSchema()) {
		t.Errorf("expected default schema, got %v", rep.FeatureOrder)
	}
	if rep.CalibrationMode != ModeModel {
		t.Errorf("expected model mode, got %s", rep.CalibrationMode)
	}
}

func TestAssess_Deterministic(t *testing.T) {
	e := newTestEngine(&fakeModel{probability: 0.33}, staticBaseline{
		{Date: date("2024-01-01"), Beds: 10, Nurses: 5, Doctors: 2, Unit: "ICU"},
	})
	a, _ := e.Assess(context.Background(), highRiskRecord())
	b, _ := e.Assess(context.Background(), highRiskRecord())
	if a.AdjustedRisk != b.AdjustedRisk || a.RiskBand != b.RiskBand || a.Staffing != b.Staffing {
		t.Errorf("expected identical results, got %+v and %+v", a, b)
	}
}

func TestAssess_UsesBaseline(t *testing.T) {
	e := newTestEngine(&fakeModel{probability: 1.0}, staticBaseline{
		{Date: date("2024-01-01"), Beds: 10, Nurses: 5, Doctors: 2, Unit: "ICU"},
	})
	rec := highRiskRecord()
	rec[FieldHospitalUnit] = "icu"
	rec[FieldSimulationDate] = "2024-01-02"
	rep, err := e.Assess(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 0.4 + 0.45 = 0.85 -> factor 1.48
	if rep.Staffing.SuggestedBeds != 15 || rep.Staffing.SuggestedNurses != 7 || rep.Staffing.SuggestedDoctors != 3 {
		t.Errorf("unexpected staffing %+v", rep.Staffing)
	}
	if rep.HospitalUnit != "icu" || rep.SimulationDate != "2024-01-02" {
		t.Errorf("unexpected simulation context %q %q", rep.HospitalUnit, rep.SimulationDate)
	}
}

func TestAssess_SeverityScorerPanics(t *testing.T) {
	e := newTestEngine(&fakeModel{probability: 0.5}, nil)
	e.Severity = panickingSeverity{}

	rep, err := e.Assess(context.Background(), highRiskRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.SeverityScore != 0 || rep.NormalizedSeverity != 0 {
		t.Errorf("expected severity 0, got %v / %v", rep.SeverityScore, rep.NormalizedSeverity)
	}
	if rep.AdjustedRisk != 0.2 {
		t.Errorf("expected adjusted risk 0.2 from the model alone, got %v", rep.AdjustedRisk)
	}
	if rep.CalibrationMode != ModeModel {
		t.Errorf("expected model mode, got %q", rep.CalibrationMode)
	}
}

func TestAssess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newTestEngine(&fakeModel{probability: 0.5}, nil)
	if _, err := e.Assess(ctx, highRiskRecord()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulateCohort_Labels(t *testing.T) {
	e := newTestEngine(nil, nil)
	got := e.SimulateCohort([]string{"High", "medium", "unknown"})
	if got.RiskCounts[BandHigh] != 1 || got.RiskCounts[BandMedium] != 1 || got.RiskCounts[BandLow] != 1 {
		t.Errorf("unexpected counts %v", got.RiskCounts)
	}
}
