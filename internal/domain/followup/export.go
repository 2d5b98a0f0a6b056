package followup

import (
	"github.com/readmit/readmit/internal/platform/xlsx"
)

var exportHeader = []string{
	"Patient ID", "Patient Name", "Problem Type", "Readmission Probability", "Risk Label",
	"Followup Channel", "Next Visit", "Simulation Date", "Hospital Unit", "Prediction Date", "Status",
}

var exportWidths = []float64{14, 24, 16, 14, 10, 20, 12, 16, 18, 16, 12}

// ExportXLSX renders records as a single-sheet workbook.
func ExportXLSX(records []*Record) ([]byte, error) {
	wb, err := xlsx.New()
	if err != nil {
		return nil, err
	}
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{
			r.PatientID, r.PatientName, r.Condition, r.AdjustedRisk, r.RiskBand,
			r.Channel, r.NextVisit, r.SimulationDate, r.HospitalUnit,
			r.PredictionDate.Format(DateLayout), string(r.Status),
		}
	}
	if err := wb.AddTable("Follow-ups", exportHeader, exportWidths, rows); err != nil {
		wb.Close()
		return nil, err
	}
	return wb.Bytes()
}
