package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

type Admin struct {
	s AdminService
	l logger.Logger
}

func NewAdmin(s AdminService, l logger.Logger) *Admin {
	return &Admin{
		s: s,
		l: l,
	}
}

// GetOverview godoc
// @Summary      System overview
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  models.Overview
// @Security     BearerAuth
// @Router       /admin/overview [get]
func (h *Admin) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_get_overview")

	overview, err := h.s.GetOverview(ctx)
	if err != nil {
		h.l.Error(ctx, "failed to get overview", err)
		serviceErrorResponse(w, err)
		return
	}

	h.l.Debug(ctx, "fetched overview", "metrics", overview.Metrics)

	if err := writeJSON(w, http.StatusOK, overview, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// GetActiveRides godoc
// @Summary      Rides currently in progress
// @Tags         Admin
// @Produce      json
// @Param        page query int false "page"
// @Param        page_size query int false "page size"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /admin/rides/active [get]
func (h *Admin) GetActiveRides(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_get_active_rides")

	filters, errs := readFilters(r.URL.Query())
	if errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	rides, err := h.s.GetActiveRides(ctx, filters)
	if err != nil {
		h.l.Error(ctx, "failed to get active rides", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rides": rides}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// ListDrivers godoc
// @Summary      List drivers
// @Tags         Admin
// @Produce      json
// @Param        city query string false "city"
// @Param        availability query string false "AVAILABLE, BUSY or OFFLINE"
// @Param        verification query string false "verification state"
// @Param        page query int false "page"
// @Param        page_size query int false "page size"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /admin/drivers [get]
func (h *Admin) ListDrivers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_list_drivers")
	qs := r.URL.Query()

	filters, errs := readFilters(qs)
	if errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	filter := models.UserFilter{
		City:         strings.TrimSpace(qs.Get("city")),
		Availability: types.Availability(strings.ToUpper(qs.Get("availability"))),
		Verification: types.Verification(strings.ToUpper(qs.Get("verification"))),
	}
	if filter.Verification != "" && !filter.Verification.IsValid() {
		failedValidationResponse(w, map[string]string{"verification": "unknown verification state"})
		return
	}

	drivers, meta, err := h.s.ListDrivers(ctx, filter, filters)
	if err != nil {
		h.l.Error(ctx, "failed to list drivers", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"drivers": drivers, "metadata": meta}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// ListPassengers godoc
// @Summary      List passengers
// @Tags         Admin
// @Produce      json
// @Param        city query string false "city"
// @Param        page query int false "page"
// @Param        page_size query int false "page size"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /admin/passengers [get]
func (h *Admin) ListPassengers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_list_passengers")
	qs := r.URL.Query()

	filters, errs := readFilters(qs)
	if errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	passengers, meta, err := h.s.ListPassengers(ctx, strings.TrimSpace(qs.Get("city")), filters)
	if err != nil {
		h.l.Error(ctx, "failed to list passengers", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"passengers": passengers, "metadata": meta}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// CreateUser godoc
// @Summary      Provision an account
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateUserRequest true "user"
// @Success      201  {object}  models.User
// @Security     BearerAuth
// @Router       /admin/users [post]
func (h *Admin) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_create_user")

	var req dto.CreateUserRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	user, err := h.s.CreateUser(ctx, req.ToInput())
	if err != nil {
		h.l.Error(ctx, "failed to create user", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, user, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
	h.l.Info(wrap.WithUserID(ctx, user.ID.String()), "user created", "role", user.Role)
}

// SetVerification godoc
// @Summary      Set a driver's verification state
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        driver_id path string true "driver id"
// @Param        request body dto.VerificationRequest true "state"
// @Success      200  {object}  models.User
// @Security     BearerAuth
// @Router       /admin/drivers/{driver_id}/verification [post]
func (h *Admin) SetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionSetVerification)

	driverID, err := pathUUID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	var req dto.VerificationRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	req.Status = strings.ToUpper(req.Status)
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	driver, err := h.s.SetVerification(ctx, driverID, types.Verification(req.Status))
	if err != nil {
		h.l.Error(ctx, "failed to set verification", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, driver, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
	h.l.Info(ctx, "driver verification changed", "verification", driver.Verification)
}

// IssueToken godoc
// @Summary      Issue an access token for a user
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body dto.IssueTokenRequest true "user"
// @Success      201  {object}  models.IssuedToken
// @Security     BearerAuth
// @Router       /admin/tokens [post]
func (h *Admin) IssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionIssueToken)

	var req dto.IssueTokenRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	token, err := h.s.IssueToken(ctx, uuid.MustParse(req.UserID))
	if err != nil {
		h.l.Error(ctx, "failed to issue token", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, token, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// RecentActivity godoc
// @Summary      Latest ride status changes
// @Tags         Admin
// @Produce      json
// @Param        limit query int false "max entries"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /admin/activity [get]
func (h *Admin) RecentActivity(w http.ResponseWriter, r *http.Request) {
	errs := map[string]string{}
	limit := readInt(r.URL.Query(), "limit", 20, errs)
	if len(errs) > 0 {
		failedValidationResponse(w, errs)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"activity": h.s.RecentActivity(limit)}, nil); err != nil {
		h.l.Error(r.Context(), "failed to write response", err)
	}
}
