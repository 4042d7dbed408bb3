package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is public and read-only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents streams the activity feed over a WebSocket. With
// ?cursor=N, events after sequence N are replayed before live ones.
// GET /events
func (s *Server) handleEvents(c echo.Context) error {
	if s.events == nil {
		return apperr.NotFound("Activity feed is disabled.")
	}

	var since *int64
	if v := c.QueryParam("cursor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return &apperr.Error{Kind: apperr.KindValidation, Message: "cursor must be a non-negative integer.", Field: "cursor"}
		}
		since = &n
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	frames, cancel, err := s.events.Subscribe(ctx, since)
	if err != nil {
		return nil
	}
	defer cancel()

	// Drain client messages so close frames are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				// Dropped as a slow consumer or shutting down.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "reconnect with a cursor"),
					time.Now().Add(feedWriteWait))
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
