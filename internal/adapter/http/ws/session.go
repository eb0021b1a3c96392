package wshandler

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ladies-drive/pkg/wshub"
)

const (
	TypeOpenRides        = "open_rides"
	TypeActiveRide       = "active_ride"
	TypeRideUpdate       = "ride_update"
	TypeAvailableDrivers = "available_drivers"
	TypeAccepted         = "accepted"
	TypeError            = "error"
)

// ClientMessage is a frame sent by a client.
type ClientMessage struct {
	Type        string `json:"type"`
	RideID      string `json:"ride_id"`
	Status      string `json:"status,omitempty"`
	PassengerID string `json:"passenger_id,omitempty"`
}

func newUpgrader(readBuf, writeBuf int) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  readBuf,
		WriteBufferSize: writeBuf,
		// Clients authenticate with a token, so cross-origin upgrades are allowed.
		CheckOrigin: func(r *http.Request) bool { return true },
	}
}

// open upgrades the request and registers the session in hub under ownerID.
// open upgrades the request and registers the session under key. A newer
// session with the same key replaces the older one.
func open(w http.ResponseWriter, r *http.Request, up *websocket.Upgrader, hub *ws.Hub, key string, l logger.Logger) (*ws.Conn, bool) {
	ctx := wrap.WithAction(r.Context(), types.ActionWSConnected)

	raw, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		l.Warn(ctx, "websocket upgrade failed", "err", err.Error())
		return nil, false
	}

	// The request context ends when the handler returns; the session outlives it.
	conn := ws.NewConn(context.WithoutCancel(r.Context()), key, raw)
	if err := hub.Add(conn); err != nil {
		l.Error(ctx, "failed to register websocket", err)
		_ = conn.Close()
		return nil, false
	}
	go conn.KeepAlive()

	l.Info(ctx, "websocket connected", "session", key)
	return conn, true
}

func send(conn *ws.Conn, typ string, data any) error {
	return conn.Send(models.WSMessage{Type: typ, Data: data})
}

func sendError(conn *ws.Conn, err error) error {
	return send(conn, TypeError, errorPayload(err))
}

func errorPayload(err error) map[string]string {
	msg := err.Error()
	if !types.IsDomain(err) {
		msg = "internal error"
	}
	return map[string]string{"error": msg, "kind": types.ErrorKind(err)}
}

func decode(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, types.ErrInvalidInput
	}
	return msg, nil
}

// authorize closes the request with 401/403 unless the caller is ownerID.
func authorize(w http.ResponseWriter, r *http.Request, param string, role types.UserRole) (uuid.UUID, bool) {
	user := models.UserFromContext(r.Context())
	if user.IsAnonymous() {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue(param))
	if err != nil {
		http.Error(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	if user.ID != id || user.Role != role {
		http.Error(w, "forbidden", http.StatusForbidden)
		return uuid.Nil, false
	}
	return id, true
}
