// Package socket serves the realtime chat websocket.
package socket

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/realtime"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/utils"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 8 << 10
	inboxSize    = 64
)

// Server upgrades authenticated requests and pumps hub events to each socket.
type Server struct {
	conn     *gorm.DB
	hub      *realtime.Hub
	secret   string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	sockets map[uint]int
}

func NewServer(conn *gorm.DB, hub *realtime.Hub, secret string) *Server {
	return &Server{
		conn:   conn,
		hub:    hub,
		secret: secret,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sockets: make(map[uint]int),
	}
}

// Router mounts the chat socket and a health probe.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws/chat", s.HandleChat).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	return router
}

func bearer(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// HandleChat authenticates ?token= and serves the socket until it closes.
func (s *Server) HandleChat(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.ParseAccessToken(s.secret, bearer(r))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}
	if _, err := services.ActiveUser(s.conn, claims.UserID); err != nil {
		http.Error(w, "inactive user", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		userID: claims.UserID,
		ws:     ws,
		sub:    s.hub.Subscribe(inboxSize),
		server: s,
	}
	c.log = zap.L().With(zap.String("conn_id", c.id), zap.Uint("user_id", c.userID))

	s.hub.Join(c.sub, realtime.UserGroup(c.userID))
	s.connected(c.userID)
	c.log.Info("chat socket connected")

	go c.writePump()
	c.readPump()

	s.disconnected(c.userID)
	c.log.Info("chat socket disconnected")
}

// connected and disconnected keep presence online while any socket of the user is open.
func (s *Server) connected(userID uint) {
	s.mu.Lock()
	s.sockets[userID]++
	first := s.sockets[userID] == 1
	s.mu.Unlock()
	if first {
		s.setOnline(userID, true)
	}
}

func (s *Server) disconnected(userID uint) {
	s.mu.Lock()
	s.sockets[userID]--
	last := s.sockets[userID] <= 0
	if last {
		delete(s.sockets, userID)
	}
	s.mu.Unlock()
	if last {
		s.setOnline(userID, false)
	}
}

func (s *Server) setOnline(userID uint, online bool) {
	if err := services.SetOnline(s.conn, userID, online, time.Now().UTC()); err != nil {
		zap.L().Warn("failed to record presence", zap.Uint("user_id", userID), zap.Error(err))
	}
}
