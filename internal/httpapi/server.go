package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"evcpms/internal/config"
	"evcpms/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Ingester interface {
	Ingest(ctx context.Context, raw []byte) (services.Result, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Cfg       config.Config
	Processor Ingester
	DB        Pinger
	Metrics   http.Handler
	Log       *zap.Logger
}

func NewServer(cfg config.Config, processor Ingester, db Pinger, metrics http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Cfg: cfg, Processor: processor, DB: db, Metrics: metrics, Log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.Log))

	r.Route("/v1/gateway", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return RequireBearer(s.Cfg.GatewayAPIKey, next) })
		r.Post("/events", s.IngestEvent)
	})

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	r.Get("/healthz", s.Health)
	return r
}

func (s *Server) IngestEvent(w http.ResponseWriter, r *http.Request) {
	raw, status, err := readEventBody(w, r, maxEventBytes)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	res, err := s.Processor.Ingest(r.Context(), raw)
	if err != nil {
		if errors.Is(err, services.ErrInvalidEvent) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.Log.Error("ingest event", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.DB.Ping(ctx); err != nil {
		s.Log.Warn("health check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
