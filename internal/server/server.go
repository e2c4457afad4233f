package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"inputrepeater/internal/clients"
	t "inputrepeater/internal/types"
)

const (
	readLimit       = 64 << 10
	readTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Controller is the engine surface the UI shell drives.
type Controller interface {
	ToggleRecording() (bool, error)
	StartPlayback(ctx context.Context) error
	StopPlayback() bool
	Status() t.Status
}

type Config struct {
	Addr       string
	Controller Controller
	Manager    *clients.Manager
	Logger     *zap.Logger
}

// Server exposes the controller over HTTP and websocket.
type Server struct {
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
	// ctx outlives individual connections so a playback is not cancelled
	// when the client that started it disconnects.
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Manager == nil {
		cfg.Manager = clients.NewManager(logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handler returns the routes: /healthz, /status and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.serveStatus)
	mux.HandleFunc("/ws", s.HandleWS)
	return mux
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.cfg.Controller.Status()); err != nil {
		s.logger.Warn("status encode failed", zap.Error(err))
	}
}

// HandleWS upgrades a control connection and serves its commands.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = "default"
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade error", zap.Error(err))
		return
	}

	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	s.logger.Info("new control connection", zap.String("client", clientID))
	conn := clients.NewConn(ws)
	if old := s.cfg.Manager.SetControl(clientID, conn); old != nil {
		_ = old.Close()
	}
	go s.handleCommands(clientID, conn, ws)
}

func (s *Server) handleCommands(clientID string, conn *clients.Conn, ws *websocket.Conn) {
	defer func() {
		s.cfg.Manager.RemoveControl(clientID, conn)
		_ = conn.Close()
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			s.logger.Debug("control read closed", zap.String("client", clientID), zap.Error(err))
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		reply := s.dispatch(msg)
		if err := conn.Send(reply, clients.DefaultWriteTimeout); err != nil {
			s.logger.Warn("control write failed", zap.String("client", clientID), zap.Error(err))
			return
		}
	}
}

// dispatch runs one command and builds its reply.
func (s *Server) dispatch(raw []byte) t.Message {
	var cmd t.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return errorMessage(errors.Wrap(err, "decode command"))
	}

	var err error
	switch cmd.Action {
	case t.ActionToggleRecording:
		_, err = s.cfg.Controller.ToggleRecording()
	case t.ActionStartPlayback:
		err = s.cfg.Controller.StartPlayback(s.ctx)
	case t.ActionStopPlayback:
		s.cfg.Controller.StopPlayback()
	case t.ActionStatus:
	default:
		err = errors.Errorf("unknown action %q", cmd.Action)
	}
	if err != nil {
		s.logger.Info("command refused", zap.String("action", cmd.Action), zap.Error(err))
		return errorMessage(err)
	}
	status := s.cfg.Controller.Status()
	return t.Message{Type: t.MessageStatus, Status: &status}
}

func errorMessage(err error) t.Message {
	return t.Message{Type: t.MessageError, Error: err.Error()}
}

// Run serves until ctx is done or the listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	defer s.cancel()
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "listen")
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Shutdown does not track hijacked connections.
	s.cfg.Manager.ForEachClient(func(_ string, c *clients.Conn) { _ = c.Close() })
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	return nil
}
