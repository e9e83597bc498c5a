package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/linuxfancontrol/lfcd/internal/detection"
	"github.com/linuxfancontrol/lfcd/internal/engine"
	"github.com/linuxfancontrol/lfcd/internal/hwmon"
	"github.com/linuxfancontrol/lfcd/internal/persistence"
	"github.com/linuxfancontrol/lfcd/internal/telemetry"
)

const (
	urlParamId      = "id"
	indentationChar = "  "
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

// Api is the REST control surface of the daemon. Every handler only
// calls thread-safe accessors on the underlying subsystems.
type Api struct {
	Inventory   hwmon.Inventory
	Engine      *engine.Engine
	Detection   *detection.Detection
	Persistence persistence.Persistence
	History     *telemetry.History

	ProfileDir string
}

func (a *Api) CreateRestService() *echo.Echo {
	echoRest := echo.New()
	echoRest.HideBanner = true

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())

	echoRest.Use(middleware.Logger())
	echoRest.Use(middleware.Recover())

	echoRest.GET("/alive/", isAlive)

	a.registerHwmonEndpoints(echoRest)
	a.registerEngineEndpoints(echoRest)
	a.registerProfileEndpoints(echoRest)
	a.registerDetectionEndpoints(echoRest)
	a.registerTelemetryEndpoints(echoRest)

	return echoRest
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}

// return the error message of an error
func returnError(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusInternalServerError, &Result{
		Name:    "Unknown Error",
		Message: e.Error(),
	}, indentationChar)
}
