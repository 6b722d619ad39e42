package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from the peer.
	maxMessageSize = 4096

	// Budget for a single authorization lookup.
	authorizeTimeout = 5 * time.Second
)

// Principal is the authenticated identity behind a session, produced by the
// token verifier before the session exists.
type Principal struct {
	ID          uuid.UUID
	DisplayName string
}

// StatusTracker records a principal going online or offline. Failures are
// logged and otherwise ignored; online status is advisory.
type StatusTracker interface {
	SetOnline(ctx context.Context, userID uuid.UUID) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
}

// Client is the server-side state of one live connection: the read/write
// loop pair, the bounded outbound queue, and the set of channels currently
// subscribed. It is created only after credential verification succeeds.
type Client struct {
	id        string
	principal Principal
	conn      *websocket.Conn
	registry  *Registry
	auth      Authorizer
	status    StatusTracker
	queue     *Queue

	mu       sync.Mutex
	channels map[Channel]struct{}

	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(registry *Registry, auth Authorizer, status StatusTracker, conn *websocket.Conn, principal Principal, queueSize int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:        uuid.NewString(),
		principal: principal,
		conn:      conn,
		registry:  registry,
		auth:      auth,
		status:    status,
		queue:     NewQueue(queueSize),
		channels:  make(map[Channel]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Principal() Principal {
	return c.principal
}

// Run queues the welcome frame and starts the read/write loops. It returns
// immediately; the loops own the connection from here on.
func (c *Client) Run() {
	c.registry.metrics.TotalSessions.Add(1)
	c.registry.metrics.ActiveSessions.Add(1)

	c.queue.TrySend(NewSystemFrame("Connected as " + c.principal.DisplayName).Encode())

	if c.status != nil {
		if err := c.status.SetOnline(c.ctx, c.principal.ID); err != nil {
			slog.Error("failed to set user online", "userID", c.principal.ID, "error", err)
		}
	}

	go c.writePump()
	go c.readPump()

	slog.Info("session opened", "sessionID", c.id, "userID", c.principal.ID)
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "sessionID", c.id, "error", err)
			}
			return
		}

		frame, err := DecodeClientFrame(data)
		if err != nil {
			c.sendError(CodeInvalidMessage, "invalid message: "+err.Error())
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame, ok := <-c.queue.C():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("websocket write error", "sessionID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one inbound frame. A panic while handling a frame tears
// down this session only; it must never take the process with it.
func (c *Client) dispatch(frame *ClientFrame) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic handling client frame", "sessionID", c.id, "type", frame.Type, "panic", r)
			c.close()
		}
	}()

	switch frame.Type {
	case FrameSubscribe:
		c.handleSubscribe(frame.Channel)
	case FrameUnsubscribe:
		c.handleUnsubscribe(frame.Channel)
	case FramePing:
		c.send(NewPongFrame())
	case FramePresence:
		c.handlePresence(frame.Channel, frame.Status)
	case FrameSend:
		c.handleSend(frame.Channel, frame.Payload)
	}
}

func (c *Client) handleSubscribe(channel string) {
	ch, err := ParseChannel(channel)
	if err != nil {
		c.sendError(CodeInvalidChannel, "invalid channel: "+channel)
		return
	}

	if err := c.authorize(ch); err != nil {
		c.sendError(CodeForbidden, "not authorized for channel: "+channel)
		return
	}

	count := c.registry.Subscribe(ch, c.queue)

	c.mu.Lock()
	c.channels[ch] = struct{}{}
	c.mu.Unlock()

	c.send(NewSubscribedFrame(channel, count))
	c.registry.Broadcast(ch, NewPresenceFrame(channel, "join", c.principal.ID, c.principal.DisplayName))
}

func (c *Client) handleUnsubscribe(channel string) {
	ch, err := ParseChannel(channel)
	if err != nil {
		c.sendError(CodeInvalidChannel, "invalid channel: "+channel)
		return
	}

	c.mu.Lock()
	delete(c.channels, ch)
	c.mu.Unlock()

	c.registry.Unsubscribe(ch, c.queue)
	c.send(NewUnsubscribedFrame(channel))
	c.registry.Broadcast(ch, NewPresenceFrame(channel, "leave", c.principal.ID, c.principal.DisplayName))
}

func (c *Client) handlePresence(channel, status string) {
	ch, err := ParseChannel(channel)
	if err != nil {
		c.sendError(CodeInvalidChannel, "invalid channel: "+channel)
		return
	}
	if !c.isSubscribed(ch) {
		c.sendError(CodeNotSubscribed, "not subscribed to channel: "+channel)
		return
	}
	if status == "" {
		status = "status"
	}
	c.registry.Broadcast(ch, NewPresenceFrame(channel, status, c.principal.ID, c.principal.DisplayName))
}

func (c *Client) handleSend(channel string, payload []byte) {
	ch, err := ParseChannel(channel)
	if err != nil {
		c.sendError(CodeInvalidChannel, "invalid channel: "+channel)
		return
	}
	if !c.isSubscribed(ch) {
		c.sendError(CodeNotSubscribed, "not subscribed to channel: "+channel)
		return
	}
	c.registry.Broadcast(ch, NewEventFrame(channel, "message", payload))
}

// authorize applies the check the channel kind requires. The self-ownership
// rule for notification channels needs no collaborator; everything else is
// delegated.
func (c *Client) authorize(ch Channel) error {
	if uid, ok := ch.UserID(); ok {
		if uid == c.principal.ID {
			return nil
		}
		return ErrForbidden
	}

	ctx, cancel := context.WithTimeout(c.ctx, authorizeTimeout)
	defer cancel()
	return c.auth.Authorize(ctx, c.principal.ID, ch)
}

func (c *Client) isSubscribed(ch Channel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.channels[ch]
	return ok
}

// send queues a frame for this session only. A refused enqueue means the
// queue is dead, so the session goes down with it.
func (c *Client) send(frame *ServerFrame) {
	if !c.queue.TrySend(frame.Encode()) {
		slog.Warn("outbound queue overflow, disconnecting session", "sessionID", c.id, "userID", c.principal.ID)
		c.close()
	}
}

func (c *Client) sendError(code, message string) {
	c.send(NewErrorFrame(code, message))
}

// close is the single teardown path: every subscription is removed with a
// presence leave broadcast, a full prune runs as a safety net, then the
// queue and socket are shut. Idempotent; whichever pump exits first wins.
func (c *Client) close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()

	c.mu.Lock()
	subs := make([]Channel, 0, len(c.channels))
	for ch := range c.channels {
		subs = append(subs, ch)
	}
	c.channels = make(map[Channel]struct{})
	c.mu.Unlock()

	c.queue.Close()

	for _, ch := range subs {
		c.registry.Unsubscribe(ch, c.queue)
		c.registry.Broadcast(ch, NewPresenceFrame(ch.String(), "leave", c.principal.ID, c.principal.DisplayName))
	}
	c.registry.PruneAll()

	if c.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.status.SetOffline(ctx, c.principal.ID); err != nil {
			slog.Error("failed to set user offline", "userID", c.principal.ID, "error", err)
		}
	}

	c.registry.metrics.ActiveSessions.Add(-1)
	if c.conn != nil {
		c.conn.Close()
	}

	slog.Info("session closed", "sessionID", c.id, "userID", c.principal.ID)
}
