package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/linuxfancontrol/lfcd/internal/profile"
)

func (a *Api) registerProfileEndpoints(rest *echo.Echo) {
	group := rest.Group("/profile")

	group.GET("/", a.getProfiles)
	group.GET("/:"+urlParamId+"/", a.getProfile)
	group.PUT("/:"+urlParamId+"/", a.putProfile)
	group.POST("/:"+urlParamId+"/apply/", a.applyProfile)
}

// returns the names of all stored profiles
func (a *Api) getProfiles(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, profile.List(a.ProfileDir), indentationChar)
}

func (a *Api) getProfile(c echo.Context) error {
	id := c.Param(urlParamId)
	p, err := profile.Load(profile.PathForName(a.ProfileDir, id))
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return returnNotFound(c, id)
		}
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, p, indentationChar)
}

// stores the posted profile under the given name after validation
func (a *Api) putProfile(c echo.Context) error {
	id := c.Param(urlParamId)

	var p profile.Profile
	if err := c.Bind(&p); err != nil {
		return returnError(c, err)
	}
	p.Name = id
	p.Normalize()

	if err := profile.Validate(&p); err != nil {
		return c.JSONPretty(http.StatusBadRequest, &Result{
			Name:    "Invalid profile",
			Message: err.Error(),
		}, indentationChar)
	}

	if err := profile.Save(p, profile.PathForName(a.ProfileDir, id)); err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, p, indentationChar)
}

// loads, validates and hands the profile to the engine
func (a *Api) applyProfile(c echo.Context) error {
	id := c.Param(urlParamId)

	p, err := profile.Load(profile.PathForName(a.ProfileDir, id))
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return returnNotFound(c, id)
		}
		return returnError(c, err)
	}

	if err := profile.Validate(&p); err != nil {
		return c.JSONPretty(http.StatusBadRequest, &Result{
			Name:    "Invalid profile",
			Message: err.Error(),
		}, indentationChar)
	}

	a.Engine.ApplyProfile(p)
	return c.JSONPretty(http.StatusOK, a.Engine.Status(), indentationChar)
}
