package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/linuxfancontrol/lfcd/internal/detection"
)

func (a *Api) registerDetectionEndpoints(rest *echo.Echo) {
	group := rest.Group("/detect")

	group.GET("/", a.getDetectionStatus)
	group.POST("/start/", a.startDetection)
	group.POST("/abort/", a.abortDetection)
	group.GET("/results/", a.getDetectionResults)
}

func (a *Api) getDetectionStatus(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, a.Detection.Status(), indentationChar)
}

func (a *Api) startDetection(c echo.Context) error {
	if err := a.Detection.Start(); err != nil {
		if errors.Is(err, detection.ErrAlreadyRunning) {
			return c.JSONPretty(http.StatusConflict, &Result{
				Name:    "Already running",
				Message: err.Error(),
			}, indentationChar)
		}
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusAccepted, a.Detection.Status(), indentationChar)
}

func (a *Api) abortDetection(c echo.Context) error {
	a.Detection.Abort()
	return c.JSONPretty(http.StatusOK, a.Detection.Status(), indentationChar)
}

// returns the results of the running sweep, or the persisted ones of
// the last finished sweep when idle
func (a *Api) getDetectionResults(c echo.Context) error {
	results := a.Detection.Results()
	if len(results) <= 0 && a.Persistence != nil {
		persisted, err := a.Persistence.LoadDetectionResults()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return returnError(c, err)
		}
		results = persisted
	}
	if results == nil {
		results = []detection.Result{}
	}
	return c.JSONPretty(http.StatusOK, results, indentationChar)
}
