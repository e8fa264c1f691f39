package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsHandler streams trip events over websockets.
type EventsHandler struct {
	tripService *service.TripService
	logger      *zap.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(tripService *service.TripService, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{tripService: tripService, logger: logger}
}

// snapshotMessage is the first frame of a trip stream.
type snapshotMessage struct {
	Type string       `json:"type"`
	Trip TripResponse `json:"trip"`
}

// WatchTrip handles GET /v1/trips/:id/events
// It sends the current trip, then every change to it.
func (h *EventsHandler) WatchTrip(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	// Subscribe before upgrading so errors still get a JSON status.
	stream, trip, err := h.tripService.WatchTrip(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = stream.Unsubscribe()
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	snapshot := snapshotMessage{Type: "snapshot", Trip: toTripResponse(trip)}
	h.pump(conn, stream, session, &snapshot)
}

// WatchMyTrips handles GET /v1/trips/events
// It streams changes to every trip the caller takes part in.
func (h *EventsHandler) WatchMyTrips(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	stream, err := h.tripService.WatchMyTrips(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = stream.Unsubscribe()
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.pump(conn, stream, session, nil)
}

// pump writes events to the connection until the client goes away or the
// stream ends. It owns both conn and stream.
func (h *EventsHandler) pump(conn *websocket.Conn, stream redis.EventStream, session service.Session, first any) {
	defer func() {
		_ = stream.Unsubscribe()
		_ = conn.Close()
	}()

	log := h.logger.With(zap.String("user_id", session.UserID))
	log.Debug("event stream opened")

	closed := make(chan struct{})
	go readPump(conn, closed)

	if first != nil {
		if err := writeJSON(conn, first); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			log.Debug("event stream closed by client")
			return
		case event, ok := <-stream.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			if err := writeJSON(conn, eventMessage(event)); err != nil {
				log.Debug("event write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and keeps the read deadline fresh on pong.
// closed is closed when the connection fails.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

type eventFrame struct {
	Type  string           `json:"type"`
	Event domain.TripEvent `json:"event"`
}

func eventMessage(event domain.TripEvent) eventFrame {
	return eventFrame{Type: "event", Event: event}
}
