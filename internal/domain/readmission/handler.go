package readmission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/readmit/readmit/internal/engine"
	"github.com/readmit/readmit/internal/platform/auth"
	"github.com/readmit/readmit/internal/platform/hipaa"
	"github.com/readmit/readmit/internal/platform/xlsx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := api.Group("", auth.RequireRole(auth.RoleClinician))
	clinical.POST("/predict", h.Predict)
	clinical.POST("/report", h.Report)

	planning := api.Group("", auth.RequireRole(auth.RolePlanner, auth.RoleClinician))
	planning.POST("/simulate-staffing", h.SimulateStaffing)
	planning.POST("/staffing-simulation", h.SimulateCohort)
}

// bindRecord decodes a JSON object body, keeping numbers as json.Number so
// that coercion happens in one place.
func bindRecord(c echo.Context) (engine.PatientRecord, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	var rec engine.PatientRecord
	if err := dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
	}
	if rec == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	return rec, nil
}

func assessErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) Predict(c echo.Context) error {
	rec, err := bindRecord(c)
	if err != nil {
		return err
	}
	hipaa.MarkAccess(c, "prediction", hipaa.ActionExecute, rec.Text(engine.FieldPatientID, ""))
	p, err := h.svc.Predict(c.Request().Context(), rec)
	if err != nil {
		return assessErr(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SimulateStaffing(c echo.Context) error {
	rec, err := bindRecord(c)
	if err != nil {
		return err
	}
	hipaa.MarkAccess(c, "staffing_simulation", hipaa.ActionExecute, rec.Text(engine.FieldPatientID, ""))
	res, err := h.svc.SimulateStaffing(c.Request().Context(), rec)
	if err != nil {
		return assessErr(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) SimulateCohort(c echo.Context) error {
	var req CohortRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.SimulateCohort(req))
}

func (h *Handler) Report(c echo.Context) error {
	rec, err := bindRecord(c)
	if err != nil {
		return err
	}
	hipaa.MarkAccess(c, "report", hipaa.ActionExecute, rec.Text(engine.FieldPatientID, ""))
	rep, err := h.svc.Assess(c.Request().Context(), rec)
	if err != nil {
		return assessErr(err)
	}

	if !strings.EqualFold(c.QueryParam("format"), "xlsx") {
		return c.JSON(http.StatusOK, rep)
	}
	data, err := RenderXLSX(rep)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, reportFilename(rep)))
	return c.Blob(http.StatusOK, xlsx.ContentType, data)
}
