// Package transport is the WebSocket edge: JSON-framed client/server
// events over gorilla/websocket, one readPump/writePump goroutine pair
// per connection.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pokerhall/room"
	"pokerhall/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionResolver resolves the session token carried on the initial
// handshake to a user id before any event is accepted.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (userID uuid.UUID, name string, err error)
}

// clientEvent is the tagged union of join/action/leave client->server
// frames.
type clientEvent struct {
	Type   string          `json:"type"`
	RoomID uuid.UUID       `json:"room_id,omitempty"`
	BuyIn  int64           `json:"buy_in,omitempty"`
	Action json.RawMessage `json:"action,omitempty"`
}

// wireAction is the tagged Action union: "Fold" | "Check" | "Call" |
// {"Raise": u32} | "AllIn".
type wireAction struct {
	Raise *int64 `json:"Raise"`
}

func decodeAction(raw json.RawMessage) (room.Action, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case "Fold":
			return room.Action{Kind: room.ActionFold}, nil
		case "Check":
			return room.Action{Kind: room.ActionCheck}, nil
		case "Call":
			return room.Action{Kind: room.ActionCall}, nil
		case "AllIn":
			return room.Action{Kind: room.ActionAllIn}, nil
		default:
			return room.Action{}, fmt.Errorf("unknown action %q", asString)
		}
	}
	var tagged wireAction
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return room.Action{}, fmt.Errorf("invalid action payload: %w", err)
	}
	if tagged.Raise == nil {
		return room.Action{}, fmt.Errorf("invalid action payload")
	}
	return room.Action{Kind: room.ActionRaise, Amount: *tagged.Raise}, nil
}

type serverEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Connection is one authenticated socket.
type Connection struct {
	ID     string
	UserID uuid.UUID
	Name   string
	conn   *websocket.Conn
	send   chan []byte
	gw     *Gateway
}

// Gateway implements service.Fabric over a pool of JSON WebSocket
// connections, plus the HTTP upgrade handler and per-connection client
// event dispatch.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	userConns   map[uuid.UUID]*Connection
	topics      map[uuid.UUID]map[string]struct{} // roomID -> set of connection ids
	nextConnID  uint64

	resolver SessionResolver
	game     *service.GameService
}

func New(resolver SessionResolver) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		userConns:   make(map[uuid.UUID]*Connection),
		topics:      make(map[uuid.UUID]map[string]struct{}),
		resolver:    resolver,
	}
}

// SetGameService wires the service after both are constructed, since the
// Gateway is itself the service's Fabric and must exist first.
func (g *Gateway) SetGameService(svc *service.GameService) { g.game = svc }

func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, name, err := g.resolver.ResolveSession(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[transport] upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	connID := fmt.Sprintf("conn_%d", g.nextConnID)
	c := &Connection{ID: connID, UserID: userID, Name: name, conn: conn, send: make(chan []byte, 256), gw: g}
	g.connections[connID] = c
	g.userConns[userID] = c
	g.mu.Unlock()

	log.Printf("[transport] %s connected as user %s", connID, userID)

	go c.writePump()
	c.readPump()
}

func (c *Connection) readPump() {
	defer func() {
		if err := c.gw.game.LeavePlayer(context.Background(), c.UserID, c.ID); err != nil {
			log.Printf("[transport] leave-on-disconnect failed for %s: %v", c.UserID, err)
		}
		c.gw.removeConnection(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[transport] read error: %v", err)
			}
			break
		}
		c.handleMessage(data)
	}
}

func (c *Connection) handleMessage(data []byte) {
	var ev clientEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.sendError("invalid message format")
		return
	}

	ctx := context.Background()
	switch ev.Type {
	case "join":
		if err := c.gw.game.JoinPlayer(ctx, ev.RoomID, c.UserID, c.Name, ev.BuyIn, c.ID); err != nil {
			c.sendError(err.Error())
		}
	case "action":
		action, err := decodeAction(ev.Action)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		if err := c.gw.game.TakeAction(ctx, ev.RoomID, c.UserID, action); err != nil {
			c.sendError(err.Error())
		}
	case "leave":
		if err := c.gw.game.LeavePlayer(ctx, c.UserID, c.ID); err != nil {
			c.sendError(err.Error())
		}
	default:
		c.sendError(fmt.Sprintf("unknown event type %q", ev.Type))
	}
}

func (c *Connection) sendError(msg string) {
	c.enqueue(serverEvent{Type: "service_error", Payload: msg})
}

func (c *Connection) enqueue(ev serverEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[transport] marshal error: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		// Drop if the client is too far behind; it will reconcile on the
		// next snapshot via the Timestamped latest-wins rule.
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	delete(g.userConns, c.UserID)
	for _, members := range g.topics {
		delete(members, c.ID)
	}
}

// --- service.Fabric ---

func (g *Gateway) PublishRoom(roomID uuid.UUID, payload any) {
	g.publishTopic(roomID, "room", payload)
}

func (g *Gateway) PublishOutcome(roomID uuid.UUID, payload any) {
	g.publishTopic(roomID, "outcome", payload)
}

func (g *Gateway) publishTopic(roomID uuid.UUID, evType string, payload any) {
	g.mu.RLock()
	members := g.topics[roomID]
	conns := make([]*Connection, 0, len(members))
	for connID := range members {
		if c, ok := g.connections[connID]; ok {
			conns = append(conns, c)
		}
	}
	g.mu.RUnlock()
	for _, c := range conns {
		c.enqueue(serverEvent{Type: evType, Payload: payload})
	}
}

func (g *Gateway) PublishHand(socketID string, payload any) {
	g.mu.RLock()
	c, ok := g.connections[socketID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	c.enqueue(serverEvent{Type: "hand", Payload: payload})
}

func (g *Gateway) Subscribe(socketID string, roomID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members, ok := g.topics[roomID]
	if !ok {
		members = make(map[string]struct{})
		g.topics[roomID] = members
	}
	members[socketID] = struct{}{}
}

func (g *Gateway) Unsubscribe(socketID string, roomID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if members, ok := g.topics[roomID]; ok {
		delete(members, socketID)
	}
}

func (g *Gateway) Disconnect(socketID string) {
	g.mu.RLock()
	c, ok := g.connections[socketID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	close(c.send)
}
