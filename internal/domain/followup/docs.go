package followup

import (
	"net/http"

	"github.com/readmit/readmit/internal/platform/auth"
	"github.com/readmit/readmit/internal/platform/openapi"
	"github.com/readmit/readmit/internal/platform/xlsx"
)

// Operations documents the routes added by RegisterRoutes.
func (h *Handler) Operations() []openapi.Operation {
	roles := []string{auth.RoleCoordinator, auth.RoleClinician}
	return []openapi.Operation{
		{
			Method: http.MethodGet, Path: "/followups", OperationID: "listFollowups",
			Summary: "List active follow-ups from the last six months",
			Tag:     "followups", Roles: roles,
			Query: []openapi.Param{
				{Name: "limit", Type: "integer", Description: "page size"},
				{Name: "offset", Type: "integer", Description: "records to skip"},
			},
			Response: "FollowupPage", Errors: []int{http.StatusServiceUnavailable},
		},
		{
			Method: http.MethodPost, Path: "/followups/complete", OperationID: "completeFollowup",
			Summary: "Mark every pending follow-up of a patient as completed",
			Tag:     "followups", Roles: roles,
			Request: "CompleteRequest", Response: "CompleteResult",
			Errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
		},
		{
			Method: http.MethodGet, Path: "/followups/export", OperationID: "exportFollowups",
			Summary: "Download active follow-ups as a workbook",
			Tag:     "followups", Roles: roles,
			Produces: []string{xlsx.ContentType}, Errors: []int{http.StatusServiceUnavailable},
		},
	}
}
