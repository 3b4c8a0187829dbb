package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/orbizer/internal/engine"
	"github.com/guidoenr/orbizer/internal/params"
	"github.com/guidoenr/orbizer/internal/rotation"
)

//go:embed index.html
var indexHTML []byte

const (
	statusInterval = 500 * time.Millisecond
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	maxFrameBins   = 16384
)

// Controller is the part of the engine the web surface drives. *engine.Engine
// implements it.
type Controller interface {
	Status() engine.Status
	UpdateSettings(fn func(*params.Settings))
	ResetSettings()
	SetPolicy(p rotation.Policy)
	SetColorMode(m engine.ColorMode)
	SetExternalFrame(freq []uint8)
	ClearExternalFrame()
}

// Config configures a Server.
type Config struct {
	Addr       string
	ConfigPath string
	Log        *log.Logger
}

// Server exposes status, settings and an external frequency feed over HTTP
// and a websocket.
type Server struct {
	cfg      Config
	ctrl     Controller
	log      *log.Logger
	mux      *http.ServeMux
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocketClient]bool
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// SettingsPatch is a partial settings update. Nil fields keep their value.
type SettingsPatch struct {
	RotationSpeed *float64 `json:"rotationSpeed,omitempty"`
	Resolution    *int     `json:"resolution,omitempty"`
	Distortion    *float64 `json:"distortion,omitempty"`
	Reactivity    *float64 `json:"reactivity,omitempty"`
	Sensitivity   *float64 `json:"sensitivity,omitempty"`
	Policy        *string  `json:"policy,omitempty"`
	ColorMode     *string  `json:"colorMode,omitempty"`
}

// Apply returns base with the patch applied.
func (p SettingsPatch) Apply(base params.Settings) params.Settings {
	if p.RotationSpeed != nil {
		base.RotationSpeed = *p.RotationSpeed
	}
	if p.Resolution != nil {
		base.Resolution = *p.Resolution
	}
	if p.Distortion != nil {
		base.Distortion = *p.Distortion
	}
	if p.Reactivity != nil {
		base.Reactivity = *p.Reactivity
	}
	if p.Sensitivity != nil {
		base.Sensitivity = *p.Sensitivity
	}
	return base
}

// FrameMessage carries an external frequency frame, one byte magnitude per bin.
type FrameMessage struct {
	Frequency []int `json:"frequency"`
	Clear     bool  `json:"clear,omitempty"`
}

// Bytes clamps the bins to 0..255.
func (m FrameMessage) Bytes() []uint8 {
	out := make([]uint8, len(m.Frequency))
	for i, v := range m.Frequency {
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		out[i] = uint8(v)
	}
	return out
}

// OptionsResponse lists the accepted enum values.
type OptionsResponse struct {
	Policies   []string `json:"policies"`
	ColorModes []string `json:"colorModes"`
}

// NewServer wires the routes.
func NewServer(ctrl Controller, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = params.ConfigPath()
	}
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}
	s := &Server{
		cfg:     cfg,
		ctrl:    ctrl,
		log:     cfg.Log,
		mux:     http.NewServeMux(),
		clients: make(map[*websocketClient]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/settings/reset", s.handleReset)
	s.mux.HandleFunc("/api/save", s.handleSave)
	s.mux.HandleFunc("/api/frame", s.handleFrame)
	s.mux.HandleFunc("/api/options", s.handleOptions)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.mux}
	go s.statusLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	s.log.Printf("[web] server listening on http://0.0.0.0%s", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.ctrl.Status().Settings)
	case http.MethodPost:
		var patch SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		next, err := s.applyPatch(patch)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, next)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// applyPatch validates the whole patch before touching the engine.
func (s *Server) applyPatch(patch SettingsPatch) (params.Settings, error) {
	next := patch.Apply(s.ctrl.Status().Settings)
	if err := next.Validate(); err != nil {
		return next, err
	}
	var (
		policy    rotation.Policy
		colorMode engine.ColorMode
	)
	if patch.Policy != nil {
		p, err := rotation.ParsePolicy(strings.ToLower(*patch.Policy))
		if err != nil {
			return next, err
		}
		policy = p
	}
	if patch.ColorMode != nil {
		if !validColorMode(*patch.ColorMode) {
			return next, fmt.Errorf("unknown color mode %q", *patch.ColorMode)
		}
		colorMode = engine.ParseColorMode(*patch.ColorMode)
	}

	s.ctrl.UpdateSettings(func(cur *params.Settings) { *cur = patch.Apply(*cur) })
	if patch.Policy != nil {
		s.ctrl.SetPolicy(policy)
	}
	if patch.ColorMode != nil {
		s.ctrl.SetColorMode(colorMode)
	}
	return next, nil
}

func validColorMode(name string) bool {
	for _, m := range engine.ColorModeNames() {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.ctrl.ResetSettings()
	writeJSON(w, http.StatusOK, params.Defaults())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	settings := s.ctrl.Status().Settings
	if err := params.Save(s.cfg.ConfigPath, settings); err != nil {
		http.Error(w, fmt.Sprintf("failed to save config: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "path": s.cfg.ConfigPath})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var msg FrameMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.applyFrame(msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"bins": len(msg.Frequency)})
	case http.MethodDelete:
		s.ctrl.ClearExternalFrame()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) applyFrame(msg FrameMessage) error {
	if msg.Clear {
		s.ctrl.ClearExternalFrame()
		return nil
	}
	if len(msg.Frequency) == 0 || len(msg.Frequency) > maxFrameBins {
		return fmt.Errorf("frequency frame must have 1..%d bins (got %d)", maxFrameBins, len(msg.Frequency))
	}
	s.ctrl.SetExternalFrame(msg.Bytes())
	return nil
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OptionsResponse{
		Policies:   []string{rotation.RotationInertia.String(), rotation.SpringBounce.String()},
		ColorModes: engine.ColorModeNames(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("[web] websocket upgrade error: %v", err)
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 16),
		server: s,
	}
	if data, err := json.Marshal(s.ctrl.Status()); err == nil {
		client.send <- data
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := json.Marshal(s.ctrl.Status())
			if err != nil {
				s.log.Printf("[web] encode status: %v", err)
				continue
			}
			s.broadcast(data)
		}
	}
}

func (s *Server) broadcast(message []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		select {
		case client.send <- message:
		default:
			// slow client; drop it
			close(client.send)
			delete(s.clients, client)
		}
	}
}

func (s *Server) removeClient(c *websocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		close(c.send)
		delete(s.clients, c)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
}

// readPump accepts frame messages until the connection drops.
func (c *websocketClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg FrameMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntax *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntax) || errors.As(err, &typeErr) {
				c.server.log.Printf("[web] bad frame message: %v", err)
				continue
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := c.server.applyFrame(msg); err != nil {
			c.server.log.Printf("[web] frame rejected: %v", err)
		}
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
