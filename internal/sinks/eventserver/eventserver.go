// Package eventserver exposes scheduler status over HTTP and streams fired
// and skipped transit events to websocket subscribers.
package eventserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/starchime/starchime/internal/log"
	"github.com/starchime/starchime/internal/scheduler"
	"github.com/starchime/starchime/pkg/config"
)

// Sink serves /status and /events and pushes every fired/skipped event to
// connected websocket clients.
type Sink struct {
	cfg    config.EventServerData
	site   config.SiteData
	sched  *scheduler.Scheduler
	logger *zap.SugaredLogger

	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.Mutex
	clients map[*websocket.Conn]*client
	last    *scheduler.Firing
	fired   uint64
	skipped uint64
}

// client serializes writes to one websocket connection. The dispatcher runs
// each event on its own goroutine, so overlapping events would otherwise
// write concurrently, which gorilla/websocket forbids.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// streamEvent is the websocket payload envelope.
type streamEvent struct {
	Type    string            `json:"type"` // "fired" or "skipped"
	Firing  *scheduler.Firing `json:"firing,omitempty"`
	Skip    *scheduler.Skip   `json:"skip,omitempty"`
	Reason  string            `json:"reason,omitempty"`
	Emitted time.Time         `json:"emitted"`
}

// New creates the event server sink.
func New(cfg *config.EventServerData, site config.SiteData, sched *scheduler.Scheduler, logger *zap.SugaredLogger) *Sink {
	return &Sink{
		cfg:     *cfg,
		site:    site,
		sched:   sched,
		logger:  logger,
		clients: make(map[*websocket.Conn]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Start begins serving. It returns after the listener is bound; serving
// continues until ctx is cancelled.
func (s *Sink) Start(ctx context.Context, wg *sync.WaitGroup) error {
	router := mux.NewRouter()
	router.Use(log.RequestLogger)
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/events", s.handleEvents).Methods("GET")

	addr := net.JoinHostPort(s.cfg.ListenAddr, strconv.Itoa(s.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("event server cannot listen on %s: %w", addr, err)
	}

	s.server = &http.Server{Handler: router}
	s.logger.Infof("event server listening on %s", addr)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("event server error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	return nil
}

// Name implements sinks.Sink.
func (s *Sink) Name() string { return "eventserver" }

// HandleTransit records the firing and broadcasts it.
func (s *Sink) HandleTransit(_ context.Context, f *scheduler.Firing) error {
	s.mu.Lock()
	s.last = f
	s.fired++
	s.mu.Unlock()
	s.broadcast(&streamEvent{Type: "fired", Firing: f, Emitted: time.Now()})
	return nil
}

// HandleSkip implements sinks.SkipNotifier.
func (s *Sink) HandleSkip(_ context.Context, k *scheduler.Skip) {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
	s.broadcast(&streamEvent{Type: "skipped", Skip: k, Reason: k.Reason.String(), Emitted: time.Now()})
}

func (s *Sink) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	last := s.last
	fired, skipped := s.fired, s.skipped
	s.mu.Unlock()

	status := struct {
		Site     config.SiteData      `json:"site"`
		Stars    int                  `json:"stars"`
		Fired    uint64               `json:"fired"`
		Skipped  uint64               `json:"skipped"`
		Last     *scheduler.Firing    `json:"last,omitempty"`
		Upcoming []scheduler.Upcoming `json:"upcoming"`
	}{
		Site:     s.site,
		Stars:    s.sched.Len(),
		Fired:    fired,
		Skipped:  skipped,
		Last:     last,
		Upcoming: s.sched.Peek(5),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Errorf("error encoding status response: %v", err)
	}
}

func (s *Sink) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = &client{conn: conn}
	n := len(s.clients)
	s.mu.Unlock()
	s.logger.Debugf("websocket client connected (%d total)", n)

	// Reader goroutine exists only to notice the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.dropClient(conn)
				return
			}
		}
	}()
}

func (s *Sink) broadcast(ev *streamEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Errorf("error marshaling stream event: %v", err)
		return
	}

	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.write(payload); err != nil {
			s.dropClient(c.conn)
		}
	}
}

func (s *Sink) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
	s.mu.Unlock()
}

func (s *Sink) closeClients() {
	s.mu.Lock()
	for c := range s.clients {
		c.Close()
	}
	s.clients = make(map[*websocket.Conn]*client)
	s.mu.Unlock()
}
