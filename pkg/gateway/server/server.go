// Package server assembles the gateway: providers, tool executors,
// session tracking, and the HTTP surface.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Bharath8080/voiced/pkg/core/providers/cerebras"
	memstore "github.com/Bharath8080/voiced/pkg/core/session"
	"github.com/Bharath8080/voiced/pkg/core/voice/stt"
	"github.com/Bharath8080/voiced/pkg/core/voice/tts"
	"github.com/Bharath8080/voiced/pkg/gateway/archive"
	"github.com/Bharath8080/voiced/pkg/gateway/builtins"
	"github.com/Bharath8080/voiced/pkg/gateway/config"
	"github.com/Bharath8080/voiced/pkg/gateway/handlers"
	"github.com/Bharath8080/voiced/pkg/gateway/metrics"
	"github.com/Bharath8080/voiced/pkg/gateway/mw"
	"github.com/Bharath8080/voiced/pkg/gateway/sessions"
	"github.com/Bharath8080/voiced/pkg/gateway/tools"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/chroma"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/firecrawl"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/openweather"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/serper"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/tavily"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/yahoofinance"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/safety"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	store    *memstore.Store
	tracker  *sessions.Tracker
	metrics  *metrics.Metrics
	archive  *archive.Archive
	draining atomic.Bool
}

// New builds a fully wired server. arch may be nil when turn archiving
// is disabled.
func New(cfg config.Config, logger *slog.Logger, arch *archive.Archive) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		mux:     http.NewServeMux(),
		store:   memstore.NewStore(cfg.SessionIdleTimeout, logger),
		tracker: sessions.NewTracker(),
		metrics: metrics.New(cfg.MetricsNamespace),
		archive: arch,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	toolClient := safety.NewRestrictedHTTPClient(&http.Client{Timeout: 30 * time.Second})
	router := tools.NewRouter(s.cfg.ToolTimeout, s.cfg.MaxParallelTools, s.logger,
		builtins.Available(builtins.Deps{
			Tavily:           tavily.NewClient(s.cfg.TavilyAPIKey, s.cfg.TavilyBaseURL, toolClient),
			Weather:          openweather.NewClient(s.cfg.OpenWeatherAPIKey, s.cfg.OpenWeatherURL, toolClient),
			Finance:          yahoofinance.NewClient("", toolClient),
			Firecrawl:        firecrawl.NewClient(s.cfg.FirecrawlAPIKey, s.cfg.FirecrawlBaseURL, toolClient),
			Serper:           serper.NewClient(s.cfg.SerperAPIKey, s.cfg.SerperBaseURL, toolClient),
			Chroma:           chroma.NewClient(s.cfg.ChromaURL, s.cfg.ChromaCollection, toolClient),
			MaxSearchResults: s.cfg.MaxSearchResults,
		})...)
	s.logger.Info("tools registered", "tools", router.Names())

	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{
		Tracker:  s.tracker,
		Draining: s.draining.Load,
	})
	s.mux.Handle("/metrics", s.metrics.Handler())

	s.mux.Handle("/v1/live", handlers.LiveHandler{
		Config:   s.cfg,
		Logger:   s.logger,
		Store:    s.store,
		Model:    cerebras.NewWithClient(s.cfg.CerebrasAPIKey, s.cfg.CerebrasBaseURL, nil),
		STT:      stt.NewCartesiaWithClient(s.cfg.CartesiaAPIKey, s.cfg.CartesiaBaseURL, nil),
		TTS:      tts.NewCartesia(s.cfg.CartesiaAPIKey),
		Tools:    router,
		Tracker:  s.tracker,
		Metrics:  s.metrics,
		Archive:  s.archive,
		Draining: s.draining.Load,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// Store exposes the session store so the caller can run its evictor.
func (s *Server) Store() *memstore.Store { return s.store }

// Draining reports whether Drain has begun.
func (s *Server) Draining() bool { return s.draining.Load() }

// Drain refuses new sessions, warns the live ones, and waits for them
// to finish. Sessions still running when ctx expires are cancelled.
func (s *Server) Drain(ctx context.Context, reason string) {
	if s.draining.Swap(true) {
		return
	}
	n := s.tracker.Count()
	s.logger.Info("draining", "active_sessions", n, "reason", reason)
	if n == 0 {
		return
	}
	s.tracker.NotifyDrainAll(reason)
	if !s.tracker.Wait(ctx) {
		s.logger.Warn("drain deadline reached, cancelling sessions",
			"remaining", s.tracker.Count())
		s.tracker.CancelAll()
	}
}
