package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/rating"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

// Ride serves the ride lifecycle. Both the ride and driver services mount it.
type Ride struct {
	rides    RideService
	dispatch DispatchService
	l        logger.Logger
}

func NewRide(rides RideService, dispatch DispatchService, l logger.Logger) *Ride {
	return &Ride{
		rides:    rides,
		dispatch: dispatch,
		l:        l,
	}
}

// CreateRide godoc
// @Summary      Request a ride
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateRideRequest true "ride request"
// @Success      201  {object}  models.RideRequest
// @Failure      422  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides [post]
func (h *Ride) CreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRequestRide)
	passenger := models.UserFromContext(ctx)
	ctx = wrap.WithPassengerID(ctx, passenger.ID.String())

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "err", err.Error())
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	ride, err := h.rides.RequestRide(ctx, req.ToInput(passenger.ID))
	if err != nil {
		h.l.Error(ctx, "failed to request ride", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, ride, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(wrap.WithRideID(ctx, ride.ID), "ride requested", "city", ride.City, "class", ride.Class)
}

// QuoteRide godoc
// @Summary      Estimate a fare
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        request body dto.QuoteRequest true "route"
// @Success      200  {object}  models.Quote
// @Router       /rides/quote [post]
func (h *Ride) QuoteRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "quote_ride")

	var req dto.QuoteRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	quote, err := h.rides.Quote(*req.Pickup.ToModel(), *req.Destination.ToModel(), types.ServiceClass(req.Class))
	if err != nil {
		h.l.Warn(ctx, "failed to quote ride", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, quote, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// GetRide godoc
// @Summary      Get a ride
// @Tags         Rides
// @Produce      json
// @Param        ride_id path string true "ride id"
// @Success      200  {object}  models.RideRequest
// @Failure      404  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides/{ride_id} [get]
func (h *Ride) GetRide(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("ride_id")
	ctx := wrap.WithRideID(wrap.WithAction(r.Context(), "get_ride"), rideID)

	ride, err := h.rides.Get(ctx, rideID)
	if err != nil {
		h.l.Warn(ctx, "failed to get ride", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}
	if !canSee(models.UserFromContext(ctx), ride) {
		forbiddenResponse(w)
		return
	}

	if err := writeJSON(w, http.StatusOK, ride, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// canSee lets the passenger, the assigned driver, admins, and any driver while the ride is still open.
func canSee(u *models.User, ride *models.RideRequest) bool {
	switch {
	case u.Role == types.RoleAdmin:
		return true
	case ride.Passenger.ID == u.ID, ride.AssignedTo(u.ID):
		return true
	case u.Role == types.RoleDriver && ride.Status == types.StatusSearching:
		return ride.Targets(u.ID)
	}
	return false
}

// ListPassengerRides godoc
// @Summary      Ride history of a passenger
// @Tags         Rides
// @Produce      json
// @Param        id path string true "passenger id"
// @Param        page query int false "page"
// @Param        page_size query int false "page size"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /passengers/{id}/rides [get]
func (h *Ride) ListPassengerRides(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_passenger_rides")

	passengerID, err := pathUUID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if !self(r, passengerID) {
		forbiddenResponse(w)
		return
	}

	filters, errs := readFilters(r.URL.Query())
	if errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	rides, err := h.rides.ListForPassenger(ctx, passengerID, filters)
	if err != nil {
		h.l.Error(ctx, "failed to list rides", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rides": rides}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// CancelRide godoc
// @Summary      Cancel a ride
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        ride_id path string true "ride id"
// @Param        request body dto.CancelRideRequest false "reason"
// @Success      200  {object}  models.RideRequest
// @Failure      409  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) CancelRide(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("ride_id")
	ctx := wrap.WithRideID(wrap.WithAction(r.Context(), types.ActionCancelRide), rideID)
	actor := models.UserFromContext(ctx)

	var req dto.CancelRideRequest
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

	ride, err := h.rides.Cancel(ctx, rideID, actor.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to cancel ride", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, ride, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
	h.l.Info(ctx, "ride cancelled", "by", actor.ID)
}

// RateRide godoc
// @Summary      Rate the other party of a completed ride
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        ride_id path string true "ride id"
// @Param        request body dto.RateRideRequest true "rating 1-5"
// @Success      200  {object}  map[string]any
// @Failure      422  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides/{ride_id}/rate [post]
func (h *Ride) RateRide(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("ride_id")
	ctx := wrap.WithRideID(wrap.WithAction(r.Context(), types.ActionRateRide), rideID)
	rater := models.UserFromContext(ctx)

	var req dto.RateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	value, err := rating.ParseValue(req.Rating)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}

	rated, err := h.rides.RateRide(ctx, rideID, rater.ID, value)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to rate ride", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"user_id":      rated.ID,
		"rating":       rated.Rating,
		"rating_count": rated.RatingCount,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// AcceptRide godoc
// @Summary      Accept an open ride
// @Tags         Rides
// @Produce      json
// @Param        ride_id path string true "ride id"
// @Success      200  {object}  models.RideRequest
// @Failure      409  {object}  map[string]any
// @Failure      403  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides/{ride_id}/accept [post]
func (h *Ride) AcceptRide(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("ride_id")
	ctx := wrap.WithRideID(wrap.WithAction(r.Context(), types.ActionAcceptRide), rideID)
	driver := models.UserFromContext(ctx)
	ctx = wrap.WithDriverID(ctx, driver.ID.String())

	ride, err := h.rides.Accept(ctx, rideID, driver.ID)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to accept ride", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, ride, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
	h.l.Info(ctx, "ride accepted")
}

// UpdateRideStatus godoc
// @Summary      Mark arrival or trip start
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        ride_id path string true "ride id"
// @Param        request body dto.RideStatusRequest true "ARRIVED or IN_PROGRESS"
// @Success      200  {object}  models.RideRequest
// @Failure      409  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides/{ride_id}/status [post]
func (h *Ride) UpdateRideStatus(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("ride_id")
	ctx := wrap.WithRideID(wrap.WithAction(r.Context(), types.ActionAdvanceRide), rideID)
	driver := models.UserFromContext(ctx)

	var req dto.RideStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	ride, err := h.rides.Advance(ctx, rideID, driver.ID, types.RideStatus(req.Status))
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to advance ride", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, ride, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// CompleteRide godoc
// @Summary      Complete a trip
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        ride_id path string true "ride id"
// @Param        request body dto.CompleteRideRequest true "passenger of the ride"
// @Success      200  {object}  models.RideRequest
// @Failure      409  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides/{ride_id}/complete [post]
func (h *Ride) CompleteRide(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("ride_id")
	ctx := wrap.WithRideID(wrap.WithAction(r.Context(), types.ActionCompleteRide), rideID)
	driver := models.UserFromContext(ctx)

	var req dto.CompleteRideRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	ride, err := h.rides.Complete(ctx, rideID, uuid.MustParse(req.PassengerID), driver.ID)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to complete ride", "err", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, ride, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
	h.l.Info(ctx, "ride completed", "price", ride.Price)
}

// AvailableDrivers godoc
// @Summary      Available drivers in a city
// @Tags         Drivers
// @Produce      json
// @Param        city query string true "city"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers/available [get]
func (h *Ride) AvailableDrivers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "available_drivers")

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		failedValidationResponse(w, map[string]string{"city": "must be provided"})
		return
	}

	drivers, err := h.dispatch.AvailableDrivers(ctx, city)
	if err != nil {
		h.l.Error(ctx, "failed to list available drivers", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"drivers": drivers}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}
