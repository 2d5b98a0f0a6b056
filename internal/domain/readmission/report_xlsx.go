package readmission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/readmit/readmit/internal/engine"
	"github.com/readmit/readmit/internal/platform/xlsx"
)

// RenderXLSX renders a report snapshot as a workbook with a summary sheet,
// the feature vector, and the follow-up schedule.
func RenderXLSX(rep engine.ReportData) ([]byte, error) {
	wb, err := xlsx.New()
	if err != nil {
		return nil, err
	}

	summary := [][2]interface{}{
		{"Patient ID", orNA(rep.PatientID)},
		{"Patient Name", orNA(rep.PatientName)},
		{"Condition", rep.ConditionLabel},
		{"Admission Date", orNA(rep.AdmissionDate)},
		{"Discharge Date", orNA(rep.DischargeDate)},
		{"Model Probability", rep.ModelProbability},
		{"Calibration Mode", string(rep.CalibrationMode)},
		{"Severity Score", rep.SeverityScore},
		{"Normalized Severity", rep.NormalizedSeverity},
		{"Adjusted Risk", rep.AdjustedRisk},
		{"Risk Band", string(rep.RiskBand)},
		{"Readmission Predicted", rep.PredictionLabel},
		{"Follow-up Channel", rep.Plan.Channel},
		{"Follow-up Note", rep.Plan.Note},
		{"Rationale", rep.Plan.Rationale},
		{"Simulation Date", orNA(rep.SimulationDate)},
		{"Hospital Unit", orNA(rep.HospitalUnit)},
		{"Expected Readmissions", rep.Staffing.ExpectedReadmissions},
		{"Suggested Beds", rep.Staffing.SuggestedBeds},
		{"Suggested Nurses", rep.Staffing.SuggestedNurses},
		{"Suggested Doctors", rep.Staffing.SuggestedDoctors},
		{"Generated At", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if err := wb.AddFields("Summary", summary); err != nil {
		wb.Close()
		return nil, err
	}

	names := rep.FeatureOrder
	if len(names) == 0 {
		names = make([]string, 0, len(rep.Features))
		for k := range rep.Features {
			names = append(names, k)
		}
		sort.Strings(names)
	}
	features := make([][]interface{}, len(names))
	for i, n := range names {
		features[i] = []interface{}{n, rep.Features[n]}
	}
	if err := wb.AddTable("Features", []string{"Feature", "Value"}, []float64{32, 16}, features); err != nil {
		wb.Close()
		return nil, err
	}

	schedule := make([][]interface{}, len(rep.Schedule))
	for i, s := range rep.Schedule {
		schedule[i] = []interface{}{i + 1, s, rep.Plan.Channel}
	}
	if err := wb.AddTable("Follow-up", []string{"Contact", "After Discharge", "Channel"}, []float64{10, 18, 24}, schedule); err != nil {
		wb.Close()
		return nil, err
	}
	return wb.Bytes()
}

// reportFilename builds a download name from the patient id.
func reportFilename(rep engine.ReportData) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, rep.PatientID)
	if id == "" {
		id = "patient"
	}
	return fmt.Sprintf("readmission_report_%s.xlsx", id)
}
