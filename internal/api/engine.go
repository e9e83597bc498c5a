package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *Api) registerEngineEndpoints(rest *echo.Echo) {
	group := rest.Group("/engine")

	group.GET("/", a.getEngineStatus)
	group.GET("/profile/", a.getActiveProfile)
	group.POST("/enable/", a.enableControl)
	group.POST("/disable/", a.disableControl)
}

// returns the profile the current binding set was compiled from
func (a *Api) getActiveProfile(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, a.Engine.ActiveProfile(), indentationChar)
}

// returns the compiled binding set and whether control is enabled
func (a *Api) getEngineStatus(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, a.Engine.Status(), indentationChar)
}

func (a *Api) enableControl(c echo.Context) error {
	a.Engine.SetControlEnabled(true)
	return c.JSONPretty(http.StatusOK, a.Engine.Status(), indentationChar)
}

func (a *Api) disableControl(c echo.Context) error {
	a.Engine.SetControlEnabled(false)
	return c.JSONPretty(http.StatusOK, a.Engine.Status(), indentationChar)
}
