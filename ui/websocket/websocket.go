package websocket

import (
	"context"
	"encoding/json"
	"sync"

	domainTyping "github.com/AzielCF/az-typing/domains/typing"
	"github.com/AzielCF/az-typing/infrastructure/valkey"
	"github.com/AzielCF/az-typing/pkg/msgworker"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	CodeTypingUpdate = "TYPING_UPDATE"
	CodeFetchTypists = "FETCH_TYPISTS"
	CodeListTypists  = "LIST_TYPISTS"
	CodeError        = "ERROR"

	broadcastChannel = "ws_broadcast"
	broadcastBuffer  = 256
)

type BroadcastMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Key      string `json:"key,omitempty"`
	Result   any    `json:"result"`
	SenderID string `json:"sender_id,omitempty"`
}

// outbound is a message for every local client, or only for target.
type outbound struct {
	message BroadcastMessage
	target  *websocket.Conn
	relay   bool
}

// Hub owns the local websocket connections and relays broadcasts to the
// other server instances through Valkey pub/sub when a client is set.
// Only the Run goroutine writes to connections.
type Hub struct {
	clients    map[*websocket.Conn]string
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan outbound
	done       chan struct{}
	stopOnce   sync.Once

	service domainTyping.ITypingUsecase
	vk      *valkey.Client
	localID string
	pool    *msgworker.Pool
}

var _ typing.Renderer = (*Hub)(nil)

func NewHub(service domainTyping.ITypingUsecase, vk *valkey.Client, serverID string) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]string),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan outbound, broadcastBuffer),
		done:       make(chan struct{}),
		service:    service,
		vk:         vk,
		localID:    serverID,
	}
}

// SetPublishPool moves Valkey publishing off the hub goroutine. Publishes for
// one conversation keep their order.
func (h *Hub) SetPublishPool(pool *msgworker.Pool) {
	h.pool = pool
}

// TypistsChanged queues a TYPING_UPDATE for every client. It never blocks:
// it runs inside the tracker's critical section.
func (h *Hub) TypistsChanged(update typing.Update) {
	msg := BroadcastMessage{
		Code:    CodeTypingUpdate,
		Message: "Typists changed",
		Key:     update.Conversation.String(),
		Result:  update,
	}
	select {
	case h.broadcast <- outbound{message: msg, relay: true}:
	default:
		logrus.Warnf("[WS] Broadcast queue full, dropping update for %s", msg.Key)
	}
}

// enqueue hands conn to the Run loop. It gives up once the hub has stopped.
func (h *Hub) enqueue(ch chan *websocket.Conn, conn *websocket.Conn) bool {
	select {
	case ch <- conn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handleRegister(conn *websocket.Conn) {
	id := uuid.NewString()
	h.clients[conn] = id
	logrus.Debugf("[WS] Connection %s registered", id)
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	if id, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		logrus.Debugf("[WS] Connection %s unregistered", id)
	}
}

func (h *Hub) deliver(out outbound) {
	data, err := json.Marshal(out.message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	if out.target != nil {
		if _, ok := h.clients[out.target]; ok {
			h.write(out.target, data)
		}
		return
	}
	for conn := range h.clients {
		h.write(conn, data)
	}
}

func (h *Hub) write(conn *websocket.Conn, data []byte) {
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logrus.Errorf("[WS] Write error on %s: %v", h.clients[conn], err)
		h.closeConnection(conn)
	}
}

func (h *Hub) closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(h.clients, conn)
}

func (h *Hub) publishToValkey(ctx context.Context, message BroadcastMessage) {
	if h.vk == nil {
		return
	}
	message.SenderID = h.localID

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	publish := func(ctx context.Context) error {
		return h.vk.Publish(ctx, broadcastChannel, string(data))
	}
	if h.pool != nil {
		h.pool.Dispatch(msgworker.Job{Key: "ws:" + message.Key, Handler: publish})
		return
	}
	if err := publish(ctx); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

// handleRelay decodes a message published by another instance and queues
// it for local delivery. Messages this instance published are ignored.
func (h *Hub) handleRelay(payload string) bool {
	var msg BroadcastMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		logrus.Debugf("[WS] Ignoring malformed relay payload: %v", err)
		return false
	}
	if msg.SenderID == h.localID {
		return false
	}
	select {
	case h.broadcast <- outbound{message: msg}:
		return true
	default:
		logrus.Warnf("[WS] Broadcast queue full, dropping relayed %s", msg.Code)
		return false
	}
}

func (h *Hub) startValkeySubscriber(ctx context.Context) {
	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	go func() {
		err := h.vk.Subscribe(ctx, broadcastChannel, func(payload string) {
			h.handleRelay(payload)
		})
		if err != nil && ctx.Err() == nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

// Run serves the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.vk != nil {
		h.startValkeySubscriber(ctx)
	}

	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				h.closeConnection(conn)
			}
			return

		case conn := <-h.register:
			h.handleRegister(conn)

		case conn := <-h.unregister:
			h.handleUnregister(conn)

		case out := <-h.broadcast:
			h.deliver(out)
			if out.relay {
				h.publishToValkey(ctx, out.message)
			}
		}
	}
}

// reply answers one client request.
func (h *Hub) reply(ctx context.Context, conn *websocket.Conn, request BroadcastMessage) {
	switch request.Code {
	case CodeFetchTypists:
		msg := BroadcastMessage{Code: CodeListTypists, Message: "Typists found", Key: request.Key}
		var err error
		if request.Key != "" {
			msg.Result, err = h.service.GetConversation(ctx, request.Key)
		} else {
			msg.Result, err = h.service.Overview(ctx)
		}
		if err != nil {
			msg = BroadcastMessage{Code: CodeError, Message: err.Error(), Key: request.Key}
		}
		select {
		case h.broadcast <- outbound{message: msg, target: conn}:
		case <-h.done:
		}
	default:
		logrus.Debugf("[WS] Unsupported request code %q", request.Code)
	}
}

func (h *Hub) RegisterRoutes(app fiber.Router) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		defer func() {
			h.enqueue(h.unregister, conn)
			_ = conn.Close()
		}()

		if !h.enqueue(h.register, conn) {
			return
		}

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] Read error: %v", err)
				}
				return
			}

			if messageType != websocket.TextMessage {
				logrus.Debugf("[WS] Unsupported message type %d", messageType)
				continue
			}

			var request BroadcastMessage
			if err := json.Unmarshal(message, &request); err != nil {
				logrus.Debugf("[WS] Unmarshal error: %v", err)
				return
			}
			h.reply(context.Background(), conn, request)
		}
	}))
}
