// Package statefeed publishes the angle state and presence events of a
// servolink bridge to WebSocket clients, for a display or dashboard.
//
// Messages are JSON text frames with an envelope {type, ts, data}. The
// first message on every connection is "state_init" with the current
// angles and lifecycle state.
package statefeed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/servolink/pkg/log"
	"github.com/bft-labs/servolink/pkg/servolink"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// Source is the part of the bridge the feed reads from.
type Source interface {
	Angles() servolink.AngleState
	Status() servolink.State
	Subscribe() (string, <-chan servolink.Event)
	Unsubscribe(id string)
}

// Config holds configuration options for the state feed plugin.
type Config struct {
	// Addr is the listen address, e.g. ":8090". Empty disables the listener;
	// Handler can still be mounted elsewhere.
	Addr string

	// Path is the WebSocket endpoint. Default: /ws
	Path string

	// SendBuffer is the per-client outbound queue size. Clients that fall
	// further behind are disconnected. Default: 32
	SendBuffer int
}

// Plugin serves the state feed.
type Plugin struct {
	cfg      Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	source  Source
	logger  log.Logger
	subID   string
	clients map[*client]struct{}
	server  *http.Server
	wg      sync.WaitGroup
}

// New creates a new state feed plugin.
func New(cfg Config) *Plugin {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	return &Plugin{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log.NoopLogger{},
		clients: make(map[*client]struct{}),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "statefeed"
}

// Initialize subscribes to the bridge and starts the listener if Addr is set.
func (p *Plugin) Initialize(ctx context.Context, cfg servolink.PluginConfig) error {
	if cfg.Bridge == nil {
		return errors.New("statefeed: no bridge")
	}
	return p.start(cfg.Bridge, cfg.Logger)
}

func (p *Plugin) start(src Source, logger log.Logger) error {
	if logger != nil {
		p.logger = logger
	}

	var ln net.Listener
	if p.cfg.Addr != "" {
		var err error
		ln, err = net.Listen("tcp", p.cfg.Addr)
		if err != nil {
			return err
		}
	}

	id, events := src.Subscribe()

	p.mu.Lock()
	p.source = src
	p.subID = id
	p.mu.Unlock()

	p.wg.Add(1)
	go p.broadcastLoop(events)

	if ln != nil {
		mux := http.NewServeMux()
		mux.Handle(p.cfg.Path, p.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		p.mu.Lock()
		p.server = srv
		p.mu.Unlock()

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				p.logger.Error("state feed server failed", log.Err(err))
			}
		}()
		p.logger.Info("state feed listening",
			log.String("addr", ln.Addr().String()),
			log.String("path", p.cfg.Path))
	}
	return nil
}

// Shutdown stops the listener and disconnects all clients.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	src, id, srv := p.source, p.subID, p.server
	p.source, p.server = nil, nil
	p.mu.Unlock()

	var err error
	if srv != nil {
		sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = srv.Shutdown(sctx)
		cancel()
	}
	if src != nil {
		// Closes the event channel, which ends broadcastLoop.
		src.Unsubscribe(id)
	}
	p.closeAll()
	p.wg.Wait()
	return err
}

// Handler returns the WebSocket handler.
func (p *Plugin) Handler() http.Handler {
	return http.HandlerFunc(p.serveWS)
}

// Clients returns the number of connected clients.
func (p *Plugin) Clients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

func (p *Plugin) serveWS(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	src := p.source
	p.mu.Unlock()
	if src == nil {
		http.Error(w, "state feed not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn("ws upgrade failed", log.Err(err))
		return
	}

	c := &client{
		conn:       conn,
		send:       make(chan []byte, p.cfg.SendBuffer),
		remoteAddr: r.RemoteAddr,
	}

	init, err := marshal("state_init", time.Now(), snapshot{
		Angles: src.Angles(),
		State:  src.Status().String(),
	})
	if err == nil {
		c.send <- init
	}

	p.mu.Lock()
	p.clients[c] = struct{}{}
	n := len(p.clients)
	p.mu.Unlock()
	p.logger.Info("ws client connected",
		log.String("remote_addr", c.remoteAddr),
		log.Int("clients", n))

	// The pumps outlive the request; the connection is closed by the
	// plugin or by a read/write error.
	go p.writePump(c)
	go p.readPump(c)
}

func (p *Plugin) broadcastLoop(events <-chan servolink.Event) {
	defer p.wg.Done()
	for ev := range events {
		msg, err := encodeEvent(ev)
		if err != nil {
			p.logger.Warn("state feed encode failed", log.String("type", string(ev.Type)), log.Err(err))
			continue
		}
		p.broadcast(msg)
	}
}

func (p *Plugin) broadcast(msg []byte) {
	var slow []*client

	p.mu.Lock()
	for c := range p.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	p.mu.Unlock()

	for _, c := range slow {
		p.remove(c, "slow_client")
	}
}

func (p *Plugin) remove(c *client, reason string) {
	p.mu.Lock()
	_, ok := p.clients[c]
	delete(p.clients, c)
	n := len(p.clients)
	p.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)
	p.logger.Info("ws client disconnected",
		log.String("remote_addr", c.remoteAddr),
		log.String("reason", reason),
		log.Int("clients", n))
}

func (p *Plugin) closeAll() {
	p.mu.Lock()
	clients := make([]*client, 0, len(p.clients))
	for c := range p.clients {
		clients = append(clients, c)
	}
	p.mu.Unlock()

	for _, c := range clients {
		p.remove(c, "shutdown")
	}
}

type client struct {
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

// writePump writes queued messages and pings. It exits when send is
// closed or a write fails.
func (p *Plugin) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				p.remove(c, "write_error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.remove(c, "ping_error")
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects.
func (p *Plugin) readPump(c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			reason := "read_error"
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				reason = "closed"
			}
			p.remove(c, reason)
			return
		}
	}
}

// Ensure Plugin implements servolink.Plugin.
var _ servolink.Plugin = (*Plugin)(nil)
