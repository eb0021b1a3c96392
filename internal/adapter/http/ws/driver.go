package wshandler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/dispatch"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ladies-drive/pkg/wshub"
)

// DriverSessions serves the live dispatch view of drivers.
type DriverSessions struct {
	dispatch Dispatcher
	rides    RideLifecycle
	hub      *ws.Hub
	up       websocket.Upgrader
	l        logger.Logger
}

func NewDriverSessions(d Dispatcher, rides RideLifecycle, hub *ws.Hub, readBuf, writeBuf int, l logger.Logger) *DriverSessions {
	return &DriverSessions{
		dispatch: d,
		rides:    rides,
		hub:      hub,
		up:       newUpgrader(readBuf, writeBuf),
		l:        l,
	}
}

// driverSession is one connection. The skip set lives and dies with it.
type driverSession struct {
	h        *DriverSessions
	conn     *ws.Conn
	driverID uuid.UUID
	skip     *dispatch.SkipSet
	view     *dispatch.View
}

// Serve godoc
// @Summary      Live dispatch view of a driver
// @Description  Streams open_rides and active_ride frames. Client frames: skip, accept, status, refresh.
// @Tags         Dispatch
// @Param        driver_id path string true "driver id"
// @Param        token query string false "access token"
// @Router       /ws/drivers/{driver_id} [get]
func (h *DriverSessions) Serve(w http.ResponseWriter, r *http.Request) {
	driverID, ok := authorize(w, r, "driver_id", types.RoleDriver)
	if !ok {
		return
	}

	conn, ok := open(w, r, &h.up, h.hub, driverID.String(), h.l)
	if !ok {
		return
	}
	defer h.hub.Remove(conn)

	ctx := wrap.WithAction(wrap.WithDriverID(conn.Context(), driverID.String()), types.ActionWatchDispatch)
	s := &driverSession{h: h, conn: conn, driverID: driverID, skip: dispatch.NewSkipSet()}

	view, err := h.dispatch.WatchDriver(ctx, driverID, s.skip)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to open dispatch view", "err", err.Error())
		_ = sendError(conn, err)
		return
	}
	s.view = view

	go s.forward(ctx)

	if err := conn.Listen(func(payload []byte) error { return s.handle(ctx, payload) }); err != nil {
		h.l.Warn(ctx, "driver session ended", "err", err.Error())
		return
	}
	h.l.Info(ctx, "driver session closed", "skipped", s.skip.Len())
}

// forward pushes every snapshot to the client. The connection is closed when
// the view stops so the client reconnects and recovers.
func (s *driverSession) forward(ctx context.Context) {
	defer s.conn.Close()

	for v := range s.view.Updates() {
		var err error
		if v.Active != nil {
			err = send(s.conn, TypeActiveRide, v.Active)
		} else {
			err = send(s.conn, TypeOpenRides, v.Open)
		}
		if err != nil {
			s.h.l.Debug(ctx, "failed to push dispatch view", "err", err.Error())
			return
		}
	}
}

// handle reports domain failures to the client and keeps the session. Only a
// broken connection ends it.
func (s *driverSession) handle(ctx context.Context, payload []byte) error {
	msg, err := decode(payload)
	if err != nil {
		return sendError(s.conn, err)
	}
	ctx = wrap.WithRideID(ctx, msg.RideID)

	switch msg.Type {
	case "skip":
		if msg.RideID == "" {
			return sendError(s.conn, fmt.Errorf("%w: ride_id is required", types.ErrInvalidInput))
		}
		if s.skip.Add(msg.RideID) {
			s.view.Refresh()
		}
		return nil

	case "refresh":
		s.view.Refresh()
		return nil

	case "accept":
		ride, err := s.h.rides.Accept(wrap.WithAction(ctx, types.ActionAcceptRide), msg.RideID, s.driverID)
		if err != nil {
			s.h.l.Warn(wrap.ErrorCtx(ctx, err), "accept failed", "err", err.Error())
			return sendError(s.conn, err)
		}
		return send(s.conn, TypeAccepted, ride)

	case "status":
		ride, err := s.progress(ctx, msg)
		if err != nil {
			s.h.l.Warn(wrap.ErrorCtx(ctx, err), "status change failed", "err", err.Error())
			return sendError(s.conn, err)
		}
		return send(s.conn, TypeRideUpdate, ride)
	}

	return sendError(s.conn, fmt.Errorf("%w: unknown message type %q", types.ErrInvalidInput, msg.Type))
}

func (s *driverSession) progress(ctx context.Context, msg ClientMessage) (*models.RideRequest, error) {
	switch next := types.RideStatus(msg.Status); next {
	case types.StatusArrived, types.StatusInProgress:
		return s.h.rides.Advance(wrap.WithAction(ctx, types.ActionAdvanceRide), msg.RideID, s.driverID, next)
	case types.StatusCompleted:
		passengerID, err := uuid.Parse(msg.PassengerID)
		if err != nil {
			return nil, fmt.Errorf("%w: passenger_id is required to complete", types.ErrInvalidInput)
		}
		return s.h.rides.Complete(wrap.WithAction(ctx, types.ActionCompleteRide), msg.RideID, passengerID, s.driverID)
	default:
		return nil, fmt.Errorf("%w: status must be ARRIVED, IN_PROGRESS or COMPLETED", types.ErrInvalidInput)
	}
}
