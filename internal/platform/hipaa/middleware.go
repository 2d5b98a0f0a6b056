package hipaa

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/readmit/readmit/internal/platform/auth"
)

const accessKey = "hipaa_access"

type access struct {
	resource  string
	action    string
	patientID string
}

// MarkAccess tags the current request as touching patient data. Handlers call
// it once they know which patient (if any) the request concerns; Middleware
// records the event after the handler returns.
func MarkAccess(c echo.Context, resource, action, patientID string) {
	marks, _ := c.Get(accessKey).([]access)
	c.Set(accessKey, append(marks, access{resource: resource, action: action, patientID: patientID}))
}

// Middleware records an AccessEvent for every MarkAccess made while handling
// the request. Requests that mark nothing are not audited.
func Middleware(a *AuditLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			marks, _ := c.Get(accessKey).([]access)
			if len(marks) == 0 {
				return err
			}

			req := c.Request()
			ctx := context.WithoutCancel(req.Context())
			outcome := outcomeOf(c, err)
			for _, m := range marks {
				_ = a.LogAccess(ctx, &AccessEvent{
					PatientID: m.patientID,
					Resource:  m.resource,
					Action:    m.action,
					Outcome:   outcome,
					Actor:     auth.UserIDFromContext(req.Context()),
					Roles:     auth.RolesFromContext(req.Context()),
					IPAddress: c.RealIP(),
					UserAgent: req.UserAgent(),
					RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
				})
			}
			return err
		}
	}
}

func outcomeOf(c echo.Context, err error) string {
	status := c.Response().Status
	if err != nil {
		status = http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
	}
	switch {
	case status >= 500:
		return OutcomeSeriousFailure
	case status >= 400:
		return OutcomeMinorFailure
	default:
		return OutcomeSuccess
	}
}
