// Package api exposes a read-only status surface for a TWAP run: the
// plan, the execution log, the summary, and a WebSocket event stream.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ohsung/twapkit/pkg/twap"
)

// Server serves run status over REST and WebSocket.
type Server struct {
	plan     PlanInfo
	reporter *twap.Reporter
	router   *mux.Router
	hub      *Hub
	log      *zap.SugaredLogger
}

// NewServer creates a status server for one run. The reporter is the live
// execution log; plan is the static run description.
func NewServer(plan PlanInfo, reporter *twap.Reporter, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		plan:     plan,
		reporter: reporter,
		router:   mux.NewRouter(),
		hub:      NewHub(logger),
		log:      logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/plan", s.handleGetPlan).Methods("GET")
	api.HandleFunc("/records", s.handleGetRecords).Methods("GET")
	api.HandleFunc("/summary", s.handleGetSummary).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.log.Infow("status_api_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Sink returns a reporter sink that broadcasts each execution record to
// WebSocket clients. Broadcast failures never fail the append.
func (s *Server) Sink() twap.Sink {
	return twap.SinkFunc(func(rec twap.ExecutionRecord) error {
		event := SliceEvent{
			Type:         "slice",
			RunID:        s.plan.RunID,
			SliceIndex:   rec.SliceIndex,
			Status:       string(rec.Status),
			Timestamp:    rec.Timestamp.UnixMilli(),
			Reference:    rec.Reference,
			Error:        rec.Error,
			MakingAmount: rec.MakingAmount,
		}
		message, err := json.Marshal(event)
		if err != nil {
			s.log.Warnw("ws_event_marshal_failed", "err", err)
			return nil
		}
		s.hub.Broadcast(message)
		return nil
	})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.plan)
}

func (s *Server) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	records := s.reporter.Records()
	if records == nil {
		records = []twap.ExecutionRecord{}
	}
	respondJSON(w, records)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary := s.reporter.Summary()
	respondJSON(w, SummaryInfo{
		Succeeded:     summary.Succeeded,
		Failed:        summary.Failed,
		Cancelled:     summary.Cancelled,
		Pending:       summary.Pending,
		TotalExecuted: summary.TotalExecuted.String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
