package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linuxfancontrol/lfcd/internal/engine"
	"github.com/linuxfancontrol/lfcd/internal/hwmon"
	"github.com/linuxfancontrol/lfcd/internal/lease"
	"github.com/linuxfancontrol/lfcd/internal/profile"
)

func testInventory() hwmon.Inventory {
	return hwmon.Inventory{
		Temps: []hwmon.TempSensor{
			{ChipId: "hwmon0", Index: 1, InputPath: "/sys/class/hwmon/hwmon0/temp1_input", Label: "cpu"},
		},
		Pwms: []hwmon.PwmOutput{
			{ChipId: "hwmon0", Index: 1, PwmPath: "/sys/class/hwmon/hwmon0/pwm1", MaxRaw: hwmon.DefaultMaxRaw},
		},
	}
}

func testApi(t *testing.T) *Api {
	t.Helper()
	inventory := testInventory()
	return &Api{
		Inventory:  inventory,
		Engine:     engine.New(nil, inventory, lease.NewRegistry(), nil, time.Second),
		ProfileDir: t.TempDir(),
	}
}

func request(rest http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echoContentType, echoJsonMime)
	}
	rec := httptest.NewRecorder()
	rest.ServeHTTP(rec, req)
	return rec
}

const (
	echoContentType = "Content-Type"
	echoJsonMime    = "application/json"
)

func TestAliveEndpoint(t *testing.T) {
	// GIVEN
	rest := testApi(t).CreateRestService()

	// WHEN
	rec := request(rest, http.MethodGet, "/alive/", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHwmonEndpointReturnsInventory(t *testing.T) {
	// GIVEN
	rest := testApi(t).CreateRestService()

	// WHEN
	rec := request(rest, http.MethodGet, "/hwmon/", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/sys/class/hwmon/hwmon0/pwm1")
}

func TestEngineEnableDisable(t *testing.T) {
	// GIVEN
	a := testApi(t)
	rest := a.CreateRestService()

	// WHEN / THEN
	rec := request(rest, http.MethodPost, "/engine/enable/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, a.Engine.ControlEnabled())

	rec = request(rest, http.MethodPost, "/engine/disable/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, a.Engine.ControlEnabled())
}

func TestProfileRoundTripAndApply(t *testing.T) {
	// GIVEN a stored profile
	a := testApi(t)
	rest := a.CreateRestService()

	p := profile.Profile{
		Name: "desktop",
		FanCurves: []profile.FanCurveSpec{
			{Name: "cpu", Type: profile.KindGraph, TempSensors: []string{"cpu"},
				Points: []profile.CurvePoint{{TempC: 40, Percent: 30}, {TempC: 80, Percent: 100}}},
		},
		Controls: []profile.ControlSpec{
			{Name: "cpuFan", PwmPath: "pwm1", CurveRef: "cpu", Enabled: true},
		},
	}
	assert.NoError(t, profile.Save(p, profile.PathForName(a.ProfileDir, "desktop")))

	// WHEN listing and applying it
	rec := request(rest, http.MethodGet, "/profile/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "desktop")

	rec = request(rest, http.MethodPost, "/profile/desktop/apply/", "")

	// THEN the engine carries the compiled binding
	assert.Equal(t, http.StatusOK, rec.Code)
	status := a.Engine.Status()
	assert.Equal(t, "desktop", status.ProfileName)
	assert.Len(t, status.Bindings, 1)
}

func TestApplyUnknownProfileReturnsNotFound(t *testing.T) {
	// GIVEN
	rest := testApi(t).CreateRestService()

	// WHEN
	rec := request(rest, http.MethodPost, "/profile/nope/apply/", "")

	// THEN
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutProfileRejectsInvalidCurves(t *testing.T) {
	// GIVEN a profile whose control references a missing curve ref
	rest := testApi(t).CreateRestService()
	body := `{"fanCurves":[{"name":"a","type":"mix","curveRefs":["a","missing"]}],"controls":[]}`

	// WHEN
	rec := request(rest, http.MethodPut, "/profile/broken/", body)

	// THEN
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
