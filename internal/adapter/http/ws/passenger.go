package wshandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ladies-drive/pkg/wshub"
)

// PassengerSessions streams one ride's status, or the available drivers of a city.
type PassengerSessions struct {
	dispatch Dispatcher
	rides    RideLifecycle
	hub      *ws.Hub
	up       websocket.Upgrader
	l        logger.Logger
}

func NewPassengerSessions(d Dispatcher, rides RideLifecycle, hub *ws.Hub, readBuf, writeBuf int, l logger.Logger) *PassengerSessions {
	return &PassengerSessions{
		dispatch: d,
		rides:    rides,
		hub:      hub,
		up:       newUpgrader(readBuf, writeBuf),
		l:        l,
	}
}

// Serve godoc
// @Summary      Live ride status or available drivers
// @Description  With ride_id streams ride_update frames until the ride ends. With city streams available_drivers frames.
// @Tags         Rides
// @Param        passenger_id path string true "passenger id"
// @Param        ride_id query string false "ride to follow"
// @Param        city query string false "city to watch"
// @Param        token query string false "access token"
// @Router       /ws/passengers/{passenger_id} [get]
func (h *PassengerSessions) Serve(w http.ResponseWriter, r *http.Request) {
	passengerID, ok := authorize(w, r, "passenger_id", types.RolePassenger)
	if !ok {
		return
	}
	ctx := wrap.WithPassengerID(r.Context(), passengerID.String())

	rideID := strings.TrimSpace(r.URL.Query().Get("ride_id"))
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if rideID == "" && city == "" {
		http.Error(w, "ride_id or city is required", http.StatusUnprocessableEntity)
		return
	}

	// Ownership is checked before the upgrade so failures get a plain status code.
	if rideID != "" {
		ride, err := h.rides.Get(ctx, rideID)
		if err != nil {
			http.Error(w, err.Error(), handler.GetCode(err))
			return
		}
		if ride.Passenger.ID != passengerID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	conn, ok := open(w, r, &h.up, h.hub, passengerSessionKey(passengerID, rideID, city), h.l)
	if !ok {
		return
	}
	defer h.hub.Remove(conn)

	ctx = wrap.WithPassengerID(conn.Context(), passengerID.String())
	if rideID != "" {
		go h.followRide(wrap.WithRideID(ctx, rideID), conn, rideID)
	} else {
		go h.followDrivers(ctx, conn, city)
	}

	// Passengers only listen; inbound frames are ignored.
	if err := conn.Listen(func([]byte) error { return nil }); err != nil {
		h.l.Warn(ctx, "passenger session ended", "err", err.Error())
	}
}

// followRide closes the connection once a terminal status was delivered.
func (h *PassengerSessions) followRide(ctx context.Context, conn *ws.Conn, rideID string) {
	defer conn.Close()

	updates, err := h.dispatch.WatchRide(ctx, rideID)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to watch ride", "err", err.Error())
		_ = sendError(conn, err)
		return
	}
	for ride := range updates {
		if err := send(conn, TypeRideUpdate, ride); err != nil {
			return
		}
	}
}

func (h *PassengerSessions) followDrivers(ctx context.Context, conn *ws.Conn, city string) {
	defer conn.Close()

	watch, err := h.dispatch.WatchAvailableDrivers(ctx, city)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to watch drivers", "err", err.Error())
		_ = sendError(conn, err)
		return
	}
	for drivers := range watch.Updates() {
		if err := send(conn, TypeAvailableDrivers, drivers); err != nil {
			return
		}
	}
}

// passengerSessionKey keeps a ride feed and a driver list of the same
// passenger open side by side.
func passengerSessionKey(passengerID uuid.UUID, rideID, city string) string {
	if rideID != "" {
		return "ride:" + passengerID.String() + ":" + rideID
	}
	return "drivers:" + passengerID.String() + ":" + city
}
