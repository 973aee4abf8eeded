// Package web serves a read only monitor of the goals navgoal publishes: a status snapshot, the
// recorded history and a live websocket stream.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"go.viam.com/navgoal/goal"
	"go.viam.com/navgoal/logging"
	"go.viam.com/navgoal/recorder"
	"go.viam.com/navgoal/ros"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// SideStatus describes one side's goal at the time of the request.
type SideStatus struct {
	Side      string           `json:"side"`
	Freshness string           `json:"freshness"`
	AgeSec    *float64         `json:"age_sec,omitempty"`
	Goal      *ros.PoseStamped `json:"goal,omitempty"`
}

// Status is the body of GET /status.
type Status struct {
	Docking    bool         `json:"docking"`
	Sides      []SideStatus `json:"sides"`
	Published  uint64       `json:"published"`
	LastReason string       `json:"last_reason"`
}

// NewSideStatus describes a snapshot.
func NewSideStatus(snap goal.Snapshot) SideStatus {
	st := SideStatus{Side: snap.Side.String(), Freshness: snap.Freshness.String()}
	if snap.Freshness != goal.NeverSeen {
		age := snap.Age.Seconds()
		ps := ros.NewPoseStamped(snap.Goal, 0)
		st.AgeSec = &age
		st.Goal = &ps
	}
	return st
}

// GoalEvent is streamed to websocket clients for every published goal.
type GoalEvent struct {
	Side   string          `json:"side"`
	Reason string          `json:"reason"`
	Goal   ros.PoseStamped `json:"goal"`
}

// HistoryEntry is one element of the GET /history body.
type HistoryEntry struct {
	ID         int64           `json:"id"`
	Side       string          `json:"side"`
	RecordedAt time.Time       `json:"recorded_at"`
	Goal       ros.PoseStamped `json:"goal"`
}

// StatusSource reports the current state of goal selection.
type StatusSource interface {
	Status() Status
}

// StatusFunc adapts a function to a StatusSource.
type StatusFunc func() Status

// Status calls f.
func (f StatusFunc) Status() Status {
	return f()
}

// HistorySource returns recently published goals, newest first.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]recorder.Entry, error)
}

// Server is the monitor HTTP server.
type Server struct {
	logger  logging.Logger
	status  StatusSource
	history HistorySource
	hub     *Hub
	mux     *goji.Mux

	httpServer *http.Server
	listener   net.Listener
	workers    *utils.StoppableWorkers
}

// NewServer builds the monitor. history may be nil when no history is kept. clk drives websocket
// pings and deadlines.
func NewServer(status StatusSource, history HistorySource, clk clock.Clock, logger logging.Logger) *Server {
	s := &Server{
		logger:  logger,
		status:  status,
		history: history,
		hub:     NewHub(clk, logger),
	}
	s.mux = s.initMux()
	return s
}

func (s *Server) initMux() *goji.Mux {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/status"), s.handleStatus)
	mux.HandleFunc(pat.Get("/history"), s.handleHistory)
	mux.Handle(pat.Get("/ws"), s.hub)
	return mux
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// PublishGoal streams a published goal to websocket clients.
func (s *Server) PublishGoal(sel goal.Selection, msg ros.PoseStamped) error {
	return s.hub.Broadcast(GoalEvent{Side: sel.Side.String(), Reason: string(sel.Reason), Goal: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Debugw("request failed", "status", status, "error", err)
	utils.UncheckedError(writeJSON(w, status, map[string]string{"error": err.Error()}))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.UncheckedError(writeJSON(w, http.StatusOK, s.status.Status()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, errors.New("goal history is not enabled"))
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.Errorf("invalid limit %q", raw))
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
			ID:         e.ID,
			Side:       e.Side.String(),
			RecordedAt: e.RecordedAt,
			Goal:       ros.NewPoseStamped(e.Goal, 0),
		})
	}
	utils.UncheckedError(writeJSON(w, http.StatusOK, out))
}

// Start listens on addr and serves in the background. Use Addr to learn the bound address when
// addr has port 0.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "cannot listen on %s", addr)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.workers = utils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("monitor server stopped", "error", err)
		}
	})
	s.logger.Infow("monitor listening", "address", listener.Addr().String())
	return nil
}

// Addr returns the address the server is listening on, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close disconnects websocket clients and stops the server.
func (s *Server) Close(ctx context.Context) error {
	s.hub.Close()
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.workers.Stop()
	return multierr.Combine(err, ignoreClosed(s.listener.Close()))
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
