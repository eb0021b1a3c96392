package handler

import (
	"net/http"

	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/dispatch"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

type Driver struct {
	service  DriverService
	dispatch DispatchService
	l        logger.Logger
}

func NewDriver(service DriverService, dispatch DispatchService, l logger.Logger) *Driver {
	return &Driver{
		service:  service,
		dispatch: dispatch,
		l:        l,
	}
}

// Register godoc
// @Summary      Register vehicle and city
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        request body dto.RegisterDriverRequest true "vehicle"
// @Success      201  {object}  models.User
// @Failure      409  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers [post]
func (h *Driver) Register(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRegisterDriver)
	me := models.UserFromContext(ctx)
	ctx = wrap.WithDriverID(ctx, me.ID.String())

	var req dto.RegisterDriverRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "err", err.Error())
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(req); errs != nil {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, errs)
		return
	}

	driver, err := h.service.Register(ctx, me.ID, req.ToInput())
	if err != nil {
		h.l.Error(ctx, "failed to register driver", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, driver, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "driver registered successfully", "city", driver.City)
}

// GoOnline godoc
// @Summary      Start accepting rides
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        driver_id path string true "driver id"
// @Param        request body dto.GoOnlineRequest false "current location"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/online [post]
func (h *Driver) GoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionDriverOnline)

	driverID, err := pathUUID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if !self(r, driverID) {
		forbiddenResponse(w)
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	var req dto.GoOnlineRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			badRequestResponse(w, err.Error())
			return
		}
	}
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	var at *models.GeoPoint
	if req.Location != nil {
		at = req.Location.ToModel()
	}

	driver, err := h.service.GoOnline(ctx, driverID, at)
	if err != nil {
		h.l.Error(ctx, "failed to set driver online", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"status":       driver.Availability,
		"verification": driver.Verification,
		"message":      "You are now online and ready to accept rides",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		return
	}

	h.l.Info(ctx, "driver is online", "availability", driver.Availability)
}

// GoOffline godoc
// @Summary      Stop accepting rides
// @Tags         Drivers
// @Produce      json
// @Param        driver_id path string true "driver id"
// @Success      200  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/offline [post]
func (h *Driver) GoOffline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionDriverOffline)

	driverID, err := pathUUID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if !self(r, driverID) {
		forbiddenResponse(w)
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	if _, err := h.service.GoOffline(ctx, driverID); err != nil {
		h.l.Error(ctx, "failed to set driver offline", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"status":  types.AvailabilityOffline,
		"message": "You are now offline",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		return
	}

	h.l.Info(ctx, "driver is offline")
}

// UpdateLocation godoc
// @Summary      Report the current position
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        driver_id path string true "driver id"
// @Param        request body dto.LocationUpdateRequest true "position"
// @Success      200  {object}  models.DriverLocation
// @Failure      403  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/location [post]
func (h *Driver) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionUpdateLocation)

	driverID, err := pathUUID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if !self(r, driverID) {
		forbiddenResponse(w)
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	var req dto.LocationUpdateRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	loc, err := h.service.UpdateLocation(ctx, driverID, req.ToInput())
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to update location", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, loc, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// OpenRides godoc
// @Summary      Rides the driver may accept now
// @Tags         Dispatch
// @Produce      json
// @Param        driver_id path string true "driver id"
// @Param        exclude query string false "comma separated ride ids skipped by the client"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/rides/open [get]
func (h *Driver) OpenRides(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionWatchDispatch)

	driverID, err := pathUUID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if !self(r, driverID) {
		forbiddenResponse(w)
		return
	}

	skip := dispatch.NewSkipSet(readCSV(r.URL.Query(), "exclude")...)
	rides, err := h.dispatch.OpenRides(ctx, driverID, skip)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to list open rides", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rides": rides}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// ActiveRide godoc
// @Summary      The driver's current trip
// @Tags         Dispatch
// @Produce      json
// @Param        driver_id path string true "driver id"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/rides/active [get]
func (h *Driver) ActiveRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionWatchDispatch)

	driverID, err := pathUUID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if !self(r, driverID) {
		forbiddenResponse(w)
		return
	}

	ride, err := h.dispatch.ActiveRide(ctx, driverID)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to get active ride", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	// A driver without a trip gets {"ride": null}.
	if err := writeJSON(w, http.StatusOK, envelope{"ride": ride}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// Profile godoc
// @Summary      Driver profile and current trip
// @Tags         Drivers
// @Produce      json
// @Param        driver_id path string true "driver id"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers/{driver_id} [get]
func (h *Driver) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_profile")

	driverID, err := pathUUID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if !self(r, driverID) {
		forbiddenResponse(w)
		return
	}

	driver, active, err := h.service.Profile(ctx, driverID)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to load driver profile", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"driver": driver, "active_ride": active}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}
