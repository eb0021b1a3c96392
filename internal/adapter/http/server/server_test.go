package server_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/ladies-drive/internal/adapter/http/ws"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/memstore"
	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/admin"
	"github.com/Temutjin2k/ladies-drive/internal/service/auth"
	"github.com/Temutjin2k/ladies-drive/internal/service/dispatch"
	"github.com/Temutjin2k/ladies-drive/internal/service/driver"
	"github.com/Temutjin2k/ladies-drive/internal/service/rating"
	"github.com/Temutjin2k/ladies-drive/internal/service/ride"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
	"github.com/Temutjin2k/ladies-drive/pkg/wshub"
)

type env struct {
	ctx    context.Context
	store  *memstore.Store
	auth   *auth.AuthService
	ride   *httptest.Server
	driver *httptest.Server
	admin  *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := memstore.New()
	t.Cleanup(store.Close)

	l := logger.New(io.Discard, "test", logger.LevelError)
	policy := trm.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	authSvc := auth.NewAuthService(store.Users(), auth.NewTokenService("test-secret", time.Hour, l), l)
	rides := ride.New(store.Rides(), store.Users(), store.Events(), rating.New(store.Users(), store, policy, l), nil, store, l)
	disp := dispatch.New(store.Rides(), store.Users(), store, nil, l)
	drivers := driver.New(store.Users(), store.Rides(), nil, nil, nil, store, l)
	adminSvc := admin.NewAdminService(store.Rides(), store.Users(), authSvc, store, l)

	health := handler.NewHealth("test", nil, l)
	rideHandler := handler.NewRide(rides, disp, l)

	start := func(mode types.ServiceMode, h server.Handlers) *httptest.Server {
		h.Health = health
		api, err := server.New(config.Config{Mode: mode}, h, authSvc, l)
		require.NoError(t, err)
		srv := httptest.NewServer(api.Handler())
		t.Cleanup(srv.Close)
		return srv
	}

	return &env{
		ctx:   ctx,
		store: store,
		auth:  authSvc,
		ride: start(types.RideService, server.Handlers{
			Ride:        rideHandler,
			PassengerWS: wshandler.NewPassengerSessions(disp, rides, wshub.New(l), 1024, 1024, l),
		}),
		driver: start(types.DriverService, server.Handlers{
			Ride:     rideHandler,
			Driver:   handler.NewDriver(drivers, disp, l),
			DriverWS: wshandler.NewDriverSessions(disp, rides, wshub.New(l), 1024, 1024, l),
		}),
		admin: start(types.AdminService, server.Handlers{
			Admin: handler.NewAdmin(adminSvc, l),
		}),
	}
}

// user creates an account and returns it with an access token.
func (e *env) user(t *testing.T, role types.UserRole) (*models.User, string) {
	t.Helper()
	u := models.NewUser(uuid.New(), role, string(role))
	u.City = "Casablanca"
	if role == types.RoleDriver {
		u.Availability = types.AvailabilityAvailable
		u.Verification = types.VerificationVerified
		u.Vehicle = &models.Vehicle{Make: "Dacia", Model: "Logan", Plate: "12345-A-6"}
	}
	require.NoError(t, e.store.Users().Create(e.ctx, u))

	tok, err := e.auth.IssueFor(e.ctx, u.ID)
	require.NoError(t, err)
	return u, tok.AccessToken
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(js)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func rideBody() map[string]any {
	return map[string]any{
		"pickup":      map[string]any{"address": "Twin Center", "point": map[string]any{"lat": 33.5883, "lng": -7.6323}},
		"destination": map[string]any{"address": "Ain Diab", "point": map[string]any{"lat": 33.5950, "lng": -7.6890}},
		"class":       "REGULAR",
		"price":       25.0,
	}
}

func TestRideLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)
	passenger, pTok := e.user(t, types.RolePassenger)
	d1, d1Tok := e.user(t, types.RoleDriver)
	_, d2Tok := e.user(t, types.RoleDriver)

	code, created := call(t, e.ride, http.MethodPost, "/rides", pTok, rideBody())
	require.Equal(t, http.StatusCreated, code, created)
	rideID := created["id"].(string)
	assert.Equal(t, "SEARCHING", created["status"])
	assert.Equal(t, "Casablanca", created["city"])

	code, open := call(t, e.driver, http.MethodGet, "/drivers/"+d1.ID.String()+"/rides/open", d1Tok, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, open["rides"], 1)

	code, accepted := call(t, e.driver, http.MethodPost, "/rides/"+rideID+"/accept", d1Tok, nil)
	require.Equal(t, http.StatusOK, code, accepted)
	assert.Equal(t, "ACCEPTED", accepted["status"])

	code, _ = call(t, e.driver, http.MethodPost, "/rides/"+rideID+"/accept", d2Tok, nil)
	assert.Equal(t, http.StatusConflict, code)

	for _, status := range []string{"ARRIVED", "IN_PROGRESS"} {
		code, body := call(t, e.driver, http.MethodPost, "/rides/"+rideID+"/status", d1Tok, map[string]any{"status": status})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, status, body["status"])
	}

	code, done := call(t, e.driver, http.MethodPost, "/rides/"+rideID+"/complete", d1Tok,
		map[string]any{"passenger_id": passenger.ID.String()})
	require.Equal(t, http.StatusOK, code, done)
	assert.Equal(t, "COMPLETED", done["status"])

	code, _ = call(t, e.ride, http.MethodPost, "/rides/"+rideID+"/rate", pTok, map[string]any{"rating": 6})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = call(t, e.ride, http.MethodPost, "/rides/"+rideID+"/rate", pTok, map[string]any{"rating": 4.5})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, rated := call(t, e.ride, http.MethodPost, "/rides/"+rideID+"/rate", pTok, map[string]any{"rating": 4})
	require.Equal(t, http.StatusOK, code, rated)
	assert.EqualValues(t, 1, rated["rating_count"])

	code, _ = call(t, e.ride, http.MethodPost, "/rides/"+rideID+"/rate", pTok, map[string]any{"rating": 4})
	assert.Equal(t, http.StatusConflict, code)
}

func TestCancelAfterArrivalIsConflict(t *testing.T) {
	e := newEnv(t)
	_, pTok := e.user(t, types.RolePassenger)
	_, dTok := e.user(t, types.RoleDriver)

	_, created := call(t, e.ride, http.MethodPost, "/rides", pTok, rideBody())
	rideID := created["id"].(string)

	code, _ := call(t, e.driver, http.MethodPost, "/rides/"+rideID+"/accept", dTok, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = call(t, e.driver, http.MethodPost, "/rides/"+rideID+"/status", dTok, map[string]any{"status": "ARRIVED"})
	require.Equal(t, http.StatusOK, code)

	code, body := call(t, e.ride, http.MethodPost, "/rides/"+rideID+"/cancel", pTok, map[string]any{"reason": "changed my mind"})
	assert.Equal(t, http.StatusConflict, code, body)
}

func TestAuthentication(t *testing.T) {
	e := newEnv(t)
	_, pTok := e.user(t, types.RolePassenger)

	code, _ := call(t, e.ride, http.MethodPost, "/rides", "", rideBody())
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, e.ride, http.MethodPost, "/rides", "not-a-jwt", rideBody())
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, e.driver, http.MethodPost, "/rides/whatever/accept", pTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, e.admin, http.MethodGet, "/admin/overview", pTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestCreateRideValidation(t *testing.T) {
	e := newEnv(t)
	_, pTok := e.user(t, types.RolePassenger)

	body := rideBody()
	body["pickup"] = map[string]any{"address": "Nowhere", "point": map[string]any{"lat": 123.0, "lng": 0.0}}
	body["class"] = "LIMO"

	code, resp := call(t, e.ride, http.MethodPost, "/rides", pTok, body)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	errs, ok := resp["error"].(map[string]any)
	require.True(t, ok, resp)
	assert.Contains(t, errs, "pickup.point.lat")
	assert.Contains(t, errs, "class")

	code, _ = call(t, e.ride, http.MethodPost, "/rides", pTok, map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDriverCannotActForAnotherDriver(t *testing.T) {
	e := newEnv(t)
	_, d1Tok := e.user(t, types.RoleDriver)
	d2, _ := e.user(t, types.RoleDriver)

	code, _ := call(t, e.driver, http.MethodPost, "/drivers/"+d2.ID.String()+"/offline", d1Tok, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAdminProvisioningAndVerification(t *testing.T) {
	e := newEnv(t)
	_, adminTok := e.user(t, types.RoleAdmin)

	code, created := call(t, e.admin, http.MethodPost, "/admin/users", adminTok, map[string]any{
		"role": "DRIVER", "name": "Salma", "city": "Rabat",
	})
	require.Equal(t, http.StatusCreated, code, created)
	driverID := created["id"].(string)
	assert.Equal(t, "UNVERIFIED", created["verification"])

	code, verified := call(t, e.admin, http.MethodPost, "/admin/drivers/"+driverID+"/verification", adminTok,
		map[string]any{"status": "verified"})
	require.Equal(t, http.StatusOK, code, verified)
	assert.Equal(t, "VERIFIED", verified["verification"])

	code, _ = call(t, e.admin, http.MethodPost, "/admin/drivers/"+driverID+"/verification", adminTok,
		map[string]any{"status": "MAYBE"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, tok := call(t, e.admin, http.MethodPost, "/admin/tokens", adminTok, map[string]any{"user_id": driverID})
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, tok["access_token"])

	code, list := call(t, e.admin, http.MethodGet, "/admin/drivers?city=Rabat", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list["drivers"], 1)

	code, overview := call(t, e.admin, http.MethodGet, "/admin/overview", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, overview, "metrics")
}

func TestRequestIDIsEchoed(t *testing.T) {
	e := newEnv(t)

	req, err := http.NewRequest(http.MethodGet, e.ride.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")

	resp, err := e.ride.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?token=" + token
	if strings.Contains(path, "?") {
		url = "ws" + strings.TrimPrefix(srv.URL, "http") + path + "&token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads frames until one satisfies ok.
func next(t *testing.T, conn *websocket.Conn, ok func(frame) bool) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(payload, &f))
		if ok(f) {
			return f
		}
	}
}

func openRides(t *testing.T, f frame) []models.RideRequest {
	t.Helper()
	var rides []models.RideRequest
	require.NoError(t, json.Unmarshal(f.Data, &rides))
	return rides
}

func TestDriverSocketSkipAndAccept(t *testing.T) {
	e := newEnv(t)
	_, pTok := e.user(t, types.RolePassenger)
	d, dTok := e.user(t, types.RoleDriver)

	conn := dial(t, e.driver, "/ws/drivers/"+d.ID.String(), dTok)
	first := next(t, conn, func(f frame) bool { return f.Type == wshandler.TypeOpenRides })
	assert.Empty(t, openRides(t, first))

	_, created := call(t, e.ride, http.MethodPost, "/rides", pTok, rideBody())
	rideID := created["id"].(string)

	next(t, conn, func(f frame) bool {
		return f.Type == wshandler.TypeOpenRides && len(openRides(t, f)) == 1
	})

	require.NoError(t, conn.WriteJSON(wshandler.ClientMessage{Type: "skip", RideID: rideID}))
	next(t, conn, func(f frame) bool {
		return f.Type == wshandler.TypeOpenRides && len(openRides(t, f)) == 0
	})

	// Skipping hides the ride from this session only; accepting still works.
	require.NoError(t, conn.WriteJSON(wshandler.ClientMessage{Type: "accept", RideID: rideID}))
	// The reply and the view update race each other.
	var sawReply, sawActive bool
	next(t, conn, func(f frame) bool {
		var ride models.RideRequest
		switch f.Type {
		case wshandler.TypeAccepted:
			require.NoError(t, json.Unmarshal(f.Data, &ride))
			assert.Equal(t, types.StatusAccepted, ride.Status)
			sawReply = true
		case wshandler.TypeActiveRide:
			require.NoError(t, json.Unmarshal(f.Data, &ride))
			assert.Equal(t, rideID, ride.ID)
			sawActive = true
		}
		return sawReply && sawActive
	})

	require.NoError(t, conn.WriteJSON(wshandler.ClientMessage{Type: "status", RideID: rideID, Status: "COMPLETED"}))
	failed := next(t, conn, func(f frame) bool { return f.Type == wshandler.TypeError })
	assert.Contains(t, string(failed.Data), "invalid_input")
}

func TestPassengerSocketFollowsRide(t *testing.T) {
	e := newEnv(t)
	p, pTok := e.user(t, types.RolePassenger)
	_, dTok := e.user(t, types.RoleDriver)

	_, created := call(t, e.ride, http.MethodPost, "/rides", pTok, rideBody())
	rideID := created["id"].(string)

	conn := dial(t, e.ride, "/ws/passengers/"+p.ID.String()+"?ride_id="+rideID, pTok)
	status := func(want types.RideStatus) {
		next(t, conn, func(f frame) bool {
			var r models.RideRequest
			require.NoError(t, json.Unmarshal(f.Data, &r))
			return f.Type == wshandler.TypeRideUpdate && r.Status == want
		})
	}
	status(types.StatusSearching)

	code, _ := call(t, e.driver, http.MethodPost, "/rides/"+rideID+"/accept", dTok, nil)
	require.Equal(t, http.StatusOK, code)
	status(types.StatusAccepted)

	code, _ = call(t, e.ride, http.MethodPost, "/rides/"+rideID+"/cancel", pTok, nil)
	require.Equal(t, http.StatusOK, code)
	status(types.StatusCancelled)
}

func TestPassengerHoldsRideAndDriverSocketsTogether(t *testing.T) {
	e := newEnv(t)
	p, pTok := e.user(t, types.RolePassenger)
	_, dTok := e.user(t, types.RoleDriver)

	_, created := call(t, e.ride, http.MethodPost, "/rides", pTok, rideBody())
	rideID := created["id"].(string)

	driversOfCity := func(f frame) []models.AvailableDriver {
		var list []models.AvailableDriver
		require.NoError(t, json.Unmarshal(f.Data, &list))
		return list
	}

	drivers := dial(t, e.ride, "/ws/passengers/"+p.ID.String()+"?city=Casablanca", pTok)
	next(t, drivers, func(f frame) bool {
		return f.Type == wshandler.TypeAvailableDrivers && len(driversOfCity(f)) == 1
	})

	ride := dial(t, e.ride, "/ws/passengers/"+p.ID.String()+"?ride_id="+rideID, pTok)
	next(t, ride, func(f frame) bool { return f.Type == wshandler.TypeRideUpdate })

	code, _ := call(t, e.driver, http.MethodPost, "/rides/"+rideID+"/accept", dTok, nil)
	require.Equal(t, http.StatusOK, code)

	// The busy driver leaves the city list while the ride feed reports the accept.
	next(t, drivers, func(f frame) bool {
		return f.Type == wshandler.TypeAvailableDrivers && len(driversOfCity(f)) == 0
	})
	next(t, ride, func(f frame) bool {
		var r models.RideRequest
		require.NoError(t, json.Unmarshal(f.Data, &r))
		return f.Type == wshandler.TypeRideUpdate && r.Status == types.StatusAccepted
	})
}

func TestPassengerSocketRejectsForeignRide(t *testing.T) {
	e := newEnv(t)
	_, pTok := e.user(t, types.RolePassenger)
	other, otherTok := e.user(t, types.RolePassenger)

	_, created := call(t, e.ride, http.MethodPost, "/rides", pTok, rideBody())

	url := "ws" + strings.TrimPrefix(e.ride.URL, "http") + "/ws/passengers/" + other.ID.String() +
		"?ride_id=" + created["id"].(string) + "&token=" + otherTok
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
