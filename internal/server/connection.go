package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/pokermatic/internal/game"
	"github.com/lox/pokermatic/internal/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
	sendBuffer     = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrNotRegistered    = errors.New("register first")
)

// Connection is one websocket client. It is the session.Notifier for the
// player registered over it.
type Connection struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	logger     *log.Logger
	dispatcher *Dispatcher
	admin      bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu     sync.RWMutex
	player *game.Player
}

var _ session.Notifier = (*Connection)(nil)

// NewConnection wraps an upgraded websocket. Admin connections may create
// tables and tournaments but cannot play.
func NewConnection(conn *websocket.Conn, logger *log.Logger, dispatcher *Dispatcher, admin bool) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Connection{
		id:         id,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		logger:     logger.WithPrefix("conn").With("conn", id),
		dispatcher: dispatcher,
		admin:      admin,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has shut down
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// Publish queues msg for the client. A full buffer is reported so the
// session can retry.
func (c *Connection) Publish(ctx context.Context, msg session.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSendBufferFull
	}
}

// Player returns the player registered over this connection, if any
func (c *Connection) Player() *game.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.player
}

func (c *Connection) setPlayer(p *game.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player = p
}

// readPump handles incoming commands from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.sendError(err)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleCommand(cmd)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Connection) handleCommand(cmd Command) {
	c.logger.Debug("Received command", "command", cmd.Command, "admin", c.admin)

	if c.admin {
		reply, err := c.dispatcher.HandleAdmin(cmd)
		if err != nil {
			c.sendError(err)
			return
		}
		c.reply(reply)
		return
	}

	if cmd.Command == CommandRegister {
		c.handleRegister(cmd)
		return
	}

	p := c.Player()
	if p == nil {
		c.sendError(ErrNotRegistered)
		return
	}
	if err := c.dispatcher.HandlePlayer(p, c, cmd); err != nil {
		c.logger.Info("Command failed", "player", p.Name, "command", cmd.Command, "error", err)
		c.sendError(err)
	}
}

func (c *Connection) handleRegister(cmd Command) {
	if p := c.Player(); p != nil {
		c.reply(session.Message{Type: TypeRegistration, Payload: Registration{
			CommandID: cmd.CommandID,
			PlayerID:  p.ID,
			Bankroll:  c.dispatcher.Bankroll(p),
		}})
		return
	}

	p, err := c.dispatcher.Register(cmd.Name, cmd.PublicKey, c)
	if err != nil {
		c.sendError(err)
		return
	}
	c.setPlayer(p)
	c.reply(session.Message{Type: TypeRegistration, Payload: Registration{
		CommandID: cmd.CommandID,
		PlayerID:  p.ID,
		Bankroll:  c.dispatcher.Bankroll(p),
	}})
}

func (c *Connection) reply(msg session.Message) {
	if err := c.Publish(c.ctx, msg); err != nil {
		c.logger.Warn("Failed to send reply", "type", msg.Type, "error", err)
	}
}

func (c *Connection) sendError(err error) {
	c.reply(session.Message{Type: session.TypeError, Payload: session.ErrorNotice{Message: err.Error()}})
}
