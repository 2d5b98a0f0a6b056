package readmission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/readmit/readmit/internal/domain/followup"
	"github.com/readmit/readmit/internal/engine"
)

// -- Mock Recorder --

type mockRecorder struct {
	records []engine.ReportData
	err     error
}

func (m *mockRecorder) Record(_ context.Context, rep engine.ReportData) (*followup.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.records = append(m.records, rep)
	rec := followup.NewRecord(rep, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	return rec, nil
}

func newTestEngine() *engine.Engine {
	eng := engine.New(nil, nil, zerolog.Nop())
	eng.Aggregator = engine.NewAggregator(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	})
	return eng
}

func newTestService() (*Service, *mockRecorder) {
	rec := &mockRecorder{}
	return NewService(newTestEngine(), rec, zerolog.Nop()), rec
}

func sampleRecord() engine.PatientRecord {
	return engine.PatientRecord{
		engine.FieldPatientID:       "P-42",
		engine.FieldPatientName:     "John Doe",
		engine.FieldProblemType:     "Diabetes",
		engine.FieldHospitalUnit:    "Cardiology",
		engine.FeatureAge:           78,
		engine.FeatureBloodPressure: "150/92",
		engine.FeatureCholesterol:   250,
		engine.FeatureInsulin:       120,
	}
}

// -- Service Tests --

func TestPredict_PersistsFollowup(t *testing.T) {
	svc, rec := newTestService()
	p, err := svc.Predict(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(rec.records))
	}
	if p.FollowupID == nil || *p.FollowupID == uuid.Nil {
		t.Error("expected followup id")
	}
	if p.StorageError != "" {
		t.Errorf("unexpected storage error %q", p.StorageError)
	}
	if p.DiseaseType != "Diabetes" {
		t.Errorf("expected Diabetes, got %s", p.DiseaseType)
	}
	if p.CalibrationMode != engine.ModeHeuristic {
		t.Errorf("expected heuristic mode without a model, got %s", p.CalibrationMode)
	}
	if p.RiskLabel != engine.Classify(p.ReadmissionProbability) {
		t.Errorf("risk label %s inconsistent with probability %v", p.RiskLabel, p.ReadmissionProbability)
	}
	if len(p.FollowupPlan.Schedule) == 0 {
		t.Error("expected follow-up schedule")
	}
}

func TestPredict_StorageFailureDoesNotFail(t *testing.T) {
	svc, rec := newTestService()
	rec.err = errors.New("follow-up storage unavailable: disk full")

	p, err := svc.Predict(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.StorageError == "" {
		t.Error("expected storage error to be reported")
	}
	if p.FollowupID != nil {
		t.Error("expected no followup id")
	}
}

func TestPredict_WithoutRecorder(t *testing.T) {
	svc := NewService(newTestEngine(), nil, zerolog.Nop())
	p, err := svc.Predict(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FollowupID != nil || p.StorageError != "" {
		t.Error("expected no persistence fields")
	}
}

func TestEndpointsAgree(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p, _ := svc.Predict(ctx, sampleRecord())
	s, _ := svc.SimulateStaffing(ctx, sampleRecord())
	r, _ := svc.Assess(ctx, sampleRecord())

	if p.ReadmissionProbability != s.RiskScore || s.RiskScore != r.AdjustedRisk {
		t.Errorf("expected identical risk, got %v / %v / %v", p.ReadmissionProbability, s.RiskScore, r.AdjustedRisk)
	}
	if p.Staffing != s.Staffing || s.Staffing != r.Staffing {
		t.Errorf("expected identical staffing, got %+v / %+v / %+v", p.Staffing, s.Staffing, r.Staffing)
	}
}

func TestSimulateStaffing_Defaults(t *testing.T) {
	svc, _ := newTestService()
	rec := sampleRecord()
	delete(rec, engine.FieldHospitalUnit)

	s, err := svc.SimulateStaffing(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.SimulationDate != "N/A" || s.HospitalUnit != "N/A" {
		t.Errorf("expected N/A defaults, got %q %q", s.SimulationDate, s.HospitalUnit)
	}
	if s.Staffing.SuggestedBeds < 1 {
		t.Errorf("expected at least one bed, got %d", s.Staffing.SuggestedBeds)
	}
}

func TestSimulateCohort(t *testing.T) {
	svc, _ := newTestService()
	res := svc.SimulateCohort(CohortRequest{Patients: []CohortPatient{
		{RiskLevel: "High"}, {RiskLevel: "high"}, {RiskLevel: "Medium"}, {RiskLevel: "Low"}, {RiskLevel: "???"},
	}})

	if res.TotalPatients != 5 {
		t.Errorf("expected 5 patients, got %d", res.TotalPatients)
	}
	if res.RiskCounts[engine.BandHigh] != 2 || res.RiskCounts[engine.BandLow] != 2 {
		t.Errorf("unexpected counts %v", res.RiskCounts)
	}
	// 0.8*2 + 0.4*1 + 0.1*2
	if res.ExpectedReadmissions != 2.2 {
		t.Errorf("expected 2.2, got %v", res.ExpectedReadmissions)
	}
	if res.Message != cohortMessage {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestSimulateCohort_Empty(t *testing.T) {
	svc, _ := newTestService()
	res := svc.SimulateCohort(CohortRequest{})
	if res.RequiredDoctors != 1 || res.RequiredNurses != 2 || res.RequiredBeds != 0 {
		t.Errorf("unexpected empty cohort %+v", res.CohortEstimate)
	}
}

func TestAssess_Cancelled(t *testing.T) {
	svc, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Assess(ctx, sampleRecord()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
