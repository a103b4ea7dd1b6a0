package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blackjack-service/internal/middleware"
	"blackjack-service/internal/service/game"
	"blackjack-service/internal/service/room"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/logger"
	"blackjack-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	MessageState  = "state"
	MessageClosed = "closed"
	MessageError  = "error"

	actionTimeout = 5 * time.Second
	readTimeout   = 60 * time.Second
	pingEvery     = 25 * time.Second
)

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

type Handler struct {
	hub   *Hub
	rooms *room.Service
}

func NewHandler(hub *Hub, rooms *room.Service) *Handler {
	return &Handler{hub: hub, rooms: rooms}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// HandleRoomWS streams the viewer's projection of a room and accepts the
// same actions as the HTTP surface.
func (h *Handler) HandleRoomWS(c *gin.Context) {
	roomID := c.Param("roomId")
	tokenHash := middleware.TokenHash(c)
	if tokenHash == "" {
		response.FromError(c, appErr.ErrTokenRequired)
		return
	}
	if _, err := h.rooms.Get(c.Request.Context(), roomID); err != nil {
		response.FromError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection", zap.String("roomID", roomID))

	cl := newClient(conn, h, roomID, tokenHash)
	h.hub.subscribe(cl)
	cl.markDirty()
	cl.run()
}

type client struct {
	conn      *websocket.Conn
	handler   *Handler
	roomID    string
	tokenHash string
	dirty     chan struct{}
	outbound  chan OutgoingMessage
	done      chan struct{}
	seq       int64
}

func newClient(conn *websocket.Conn, h *Handler, roomID, tokenHash string) *client {
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	return &client{
		conn:      conn,
		handler:   h,
		roomID:    roomID,
		tokenHash: tokenHash,
		dirty:     make(chan struct{}, 1),
		outbound:  make(chan OutgoingMessage, 8),
		done:      make(chan struct{}),
	}
}

func (c *client) markDirty() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.handler.hub.unsubscribe(c)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.String("roomID", c.roomID))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.sendError("invalid payload")
			continue
		}
		if incoming.Type == "" {
			continue
		}

		if err := c.dispatch(incoming.Type, incoming.Data); err != nil {
			c.sendError(fmt.Sprintf("action failed: %v", err))
		}
	}
}

func (c *client) dispatch(action string, data json.RawMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	var payload struct {
		Amount int64 `json:"amount"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
	}

	rooms := c.handler.rooms
	var err error
	switch action {
	case "start":
		_, err = rooms.Start(ctx, c.roomID, c.tokenHash)
	case "hit":
		_, err = rooms.Hit(ctx, c.roomID, c.tokenHash)
	case "stand":
		_, err = rooms.Stand(ctx, c.roomID, c.tokenHash)
	case "double":
		_, err = rooms.DoubleDown(ctx, c.roomID, c.tokenHash)
	case "split":
		_, err = rooms.Split(ctx, c.roomID, c.tokenHash)
	case "leave":
		_, err = rooms.Leave(ctx, c.roomID, c.tokenHash)
	case "heartbeat":
		_, err = rooms.Heartbeat(ctx, c.roomID, c.tokenHash)
	case "bet":
		_, err = rooms.SetBet(ctx, c.roomID, c.tokenHash, payload.Amount)
	case "insurance":
		_, err = rooms.Insurance(ctx, c.roomID, c.tokenHash, payload.Amount)
	default:
		err = appErr.ErrUnsupportedAction
	}
	return err
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.dirty:
			msg, closed := c.snapshot()
			if err := c.write(msg); err != nil {
				return
			}
			if closed {
				return
			}
		case msg := <-c.outbound:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// snapshot loads the room and projects it for this viewer.
func (c *client) snapshot() (OutgoingMessage, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	c.seq++
	g, err := c.handler.rooms.Get(ctx, c.roomID)
	if err != nil {
		if errors.Is(err, appErr.ErrRoomNotFound) {
			return OutgoingMessage{Type: MessageClosed, Seq: c.seq, Data: gin.H{"roomId": c.roomID}}, true
		}
		return OutgoingMessage{Type: MessageError, Seq: c.seq, Data: gin.H{"message": "failed to load room"}}, false
	}
	return OutgoingMessage{Type: MessageState, Seq: c.seq, Data: game.ToClient(g, c.tokenHash)}, false
}

func (c *client) write(msg OutgoingMessage) error {
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Log.Info("WS write error", zap.Error(err), zap.String("roomID", c.roomID))
		return err
	}
	return nil
}

func (c *client) sendError(message string) {
	select {
	case c.outbound <- OutgoingMessage{Type: MessageError, Data: gin.H{"message": message}}:
	default:
	}
}
