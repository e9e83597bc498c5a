package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *Api) registerHwmonEndpoints(rest *echo.Echo) {
	group := rest.Group("/hwmon")

	group.GET("/", a.getInventory)
	group.GET("/chips/", a.getChips)
	group.GET("/temps/", a.getTemps)
	group.GET("/fans/", a.getFans)
	group.GET("/pwms/", a.getPwms)
}

// returns the full hardware inventory scanned at startup
func (a *Api) getInventory(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, a.Inventory, indentationChar)
}

func (a *Api) getChips(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, a.Inventory.Chips, indentationChar)
}

func (a *Api) getTemps(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, a.Inventory.Temps, indentationChar)
}

func (a *Api) getFans(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, a.Inventory.Fans, indentationChar)
}

func (a *Api) getPwms(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, a.Inventory.Pwms, indentationChar)
}
