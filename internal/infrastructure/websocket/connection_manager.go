// Package websocket is the notify-service observer bridge: it relays each
// per-auction topic publish to whatever WebSocket observers are attached
// locally, so watching an auction does not require an AMQP client.
package websocket

import (
	"encoding/json"
	"sync"

	"auctiond/pkg/logger"

	"github.com/gorilla/websocket"
)

// Conn is the slice of a websocket connection the manager needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// observerConn serializes writes to one connection. The router's bid and
// winner consume loops broadcast concurrently, and gorilla forbids
// concurrent writes to a single *websocket.Conn.
type observerConn struct {
	mu   sync.Mutex
	conn Conn
}

func (c *observerConn) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ConnectionManager tracks observer connections per auction id. Observers are
// anonymous; the router never learns who is watching.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]map[string]*observerConn // auctionID -> connID -> conn
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[string]*observerConn),
		log:         log,
	}
}

func (cm *ConnectionManager) Register(auctionID, connID string, conn Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.connections[auctionID] == nil {
		cm.connections[auctionID] = make(map[string]*observerConn)
	}
	cm.connections[auctionID][connID] = &observerConn{conn: conn}
	cm.log.Info("Observer attached", "auction_id", auctionID, "conn_id", connID)
}

func (cm *ConnectionManager) Unregister(auctionID, connID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conns, ok := cm.connections[auctionID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(cm.connections, auctionID)
		}
	}
	cm.log.Info("Observer detached", "auction_id", auctionID, "conn_id", connID)
}

// BroadcastToAuction sends one routed event to every observer of the
// auction. Send failures are logged and skipped; a dead observer is cleaned
// up by its own read loop.
func (cm *ConnectionManager) BroadcastToAuction(auctionID string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	cm.mu.RLock()
	conns := make([]*observerConn, 0, len(cm.connections[auctionID]))
	for _, c := range cm.connections[auctionID] {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.send(body); err != nil {
			cm.log.Warn("Observer send failed", "auction_id", auctionID, "error", err)
		}
	}
	return nil
}

// ObserverCount reports attached observers for the ops endpoint.
func (cm *ConnectionManager) ObserverCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	for _, conns := range cm.connections {
		total += len(conns)
	}
	return total
}
