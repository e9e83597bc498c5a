package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *Api) registerTelemetryEndpoints(rest *echo.Echo) {
	group := rest.Group("/telemetry")

	group.GET("/", a.getLatestTelemetry)
}

// returns the most recent telemetry record from the history database
func (a *Api) getLatestTelemetry(c echo.Context) error {
	if a.History == nil {
		return c.JSONPretty(http.StatusNotFound, &Result{
			Name:    "Not available",
			Message: "telemetry history is disabled",
		}, indentationChar)
	}

	record, ok := a.History.Latest()
	if !ok {
		return c.JSONPretty(http.StatusNotFound, &Result{
			Name:    "Not available",
			Message: "no telemetry recorded yet",
		}, indentationChar)
	}
	return c.JSONPretty(http.StatusOK, record, indentationChar)
}
