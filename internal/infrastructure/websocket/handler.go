package websocket

import (
	"net/http"

	"auctiond/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades observer connections on GET /ws/:auction_id and keeps
// them registered until the peer goes away. The stream is one-way; anything
// the observer writes is discarded.
type Handler struct {
	manager *ConnectionManager
	log     logger.Logger
}

func NewHandler(manager *ConnectionManager, log logger.Logger) *Handler {
	return &Handler{manager: manager, log: log}
}

func (h *Handler) Observe(c echo.Context) error {
	auctionID := c.Param("auction_id")
	if auctionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "auction_id required")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "auction_id", auctionID, "error", err)
		return err
	}

	connID := uuid.NewString()
	h.manager.Register(auctionID, connID, conn)

	go h.drain(auctionID, connID, conn)
	return nil
}

// drain consumes (and discards) incoming frames so pings are answered and a
// closed peer is noticed promptly.
func (h *Handler) drain(auctionID, connID string, conn *websocket.Conn) {
	defer func() {
		h.manager.Unregister(auctionID, connID)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
