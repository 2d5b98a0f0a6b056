package followup

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/readmit/readmit/internal/platform/auth"
	"github.com/readmit/readmit/internal/platform/hipaa"
	"github.com/readmit/readmit/internal/platform/xlsx"
	"github.com/readmit/readmit/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/followups", auth.RequireRole(auth.RoleCoordinator, auth.RoleClinician))
	g.GET("", h.ListFollowups)
	g.POST("/complete", h.CompleteFollowup)
	g.GET("/export", h.ExportFollowups)
}

type completeRequest struct {
	PatientID string `json:"Patient ID"`
}

func (h *Handler) ListFollowups(c echo.Context) error {
	hipaa.MarkAccess(c, "followup", hipaa.ActionRead, "")
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListActive(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if items == nil {
		items = []*Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}

func (h *Handler) CompleteFollowup(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hipaa.MarkAccess(c, "followup", hipaa.ActionUpdate, req.PatientID)
	n, err := h.svc.Complete(c.Request().Context(), req.PatientID)
	switch {
	case errors.Is(err, ErrPatientIDRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("No record found for Patient ID %s", req.PatientID))
	case err != nil:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Patient %s marked as completed", req.PatientID),
		"updated": n,
	})
}

func (h *Handler) ExportFollowups(c echo.Context) error {
	hipaa.MarkAccess(c, "followup_export", hipaa.ActionRead, "")
	items, _, err := h.svc.ListActive(c.Request().Context(), 0, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	data, err := ExportXLSX(items)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	name := fmt.Sprintf("followups_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, xlsx.ContentType, data)
}
