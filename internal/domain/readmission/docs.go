package readmission

import (
	"net/http"

	"github.com/readmit/readmit/internal/platform/auth"
	"github.com/readmit/readmit/internal/platform/openapi"
	"github.com/readmit/readmit/internal/platform/xlsx"
)

// Operations documents the routes added by RegisterRoutes.
func (h *Handler) Operations() []openapi.Operation {
	clinical := []string{auth.RoleClinician}
	planning := []string{auth.RolePlanner, auth.RoleClinician}
	recordErrors := []int{http.StatusBadRequest, http.StatusServiceUnavailable}

	return []openapi.Operation{
		{
			Method: http.MethodPost, Path: "/predict", OperationID: "predictReadmission",
			Summary: "Assess readmission risk and record a follow-up",
			Tag:     "readmission", Roles: clinical,
			Request: "PatientRecord", Response: "Prediction", Errors: recordErrors,
		},
		{
			Method: http.MethodPost, Path: "/report", OperationID: "readmissionReport",
			Summary: "Assess readmission risk and return the full report",
			Tag:     "readmission", Roles: clinical,
			Query: []openapi.Param{{
				Name: "format", Type: "string", Enum: []string{"json", "xlsx"},
				Description: "xlsx returns a workbook attachment",
			}},
			Request: "PatientRecord", Response: "Report",
			Produces: []string{xlsx.ContentType}, Errors: recordErrors,
		},
		{
			Method: http.MethodPost, Path: "/simulate-staffing", OperationID: "simulateStaffing",
			Summary: "Project staffing needs for a single patient",
			Tag:     "staffing", Roles: planning,
			Request: "PatientRecord", Response: "StaffingResult", Errors: recordErrors,
		},
		{
			Method: http.MethodPost, Path: "/staffing-simulation", OperationID: "simulateCohortStaffing",
			Summary: "Project staffing needs for a cohort by risk level",
			Tag:     "staffing", Roles: planning,
			Request: "CohortRequest", Response: "CohortResult", Errors: []int{http.StatusBadRequest},
		},
	}
}
