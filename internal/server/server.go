// Package server exposes the contract studio over HTTP: a JSON API for
// browser front ends and the same-origin fetch proxy that holds the explorer
// credential.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/source"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
)

// Config holds the listener and proxy settings.
type Config struct {
	Addr string
	// AllowedHosts are the upstream hosts the proxy may reach.
	AllowedHosts  []string
	ProxyCacheMB  int
	ProxyCacheTTL time.Duration
	// ProxyMaxEntry is the largest upstream body, in bytes, the cache must
	// admit. The cache grows to ProxyMaxEntry*1024 when ProxyCacheMB is
	// smaller.
	ProxyMaxEntry int
	// RateLimit is proxy requests per second per client; 0 disables it.
	RateLimit  float64
	RateBurst  int
	ProxyCount int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8787"
	}
	if c.ProxyCacheTTL <= 0 {
		c.ProxyCacheTTL = 5 * time.Minute
	}
	if c.ProxyMaxEntry <= 0 {
		c.ProxyMaxEntry = 128 << 10
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	// Loads run several upstream calls in sequence.
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// Studio is the orchestrator surface the API needs.
type Studio interface {
	Inspect(ctx context.Context, req studio.LoadRequest) (*studio.Session, error)
	Simulate(ctx context.Context, sess *studio.Session, c studio.Call) (*studio.SimulationResult, error)
	Chains() *chain.Registry
}

// Server serves the API and the proxy.
type Server struct {
	cfg      Config
	studio   Studio
	upstream source.Fetcher
	allowed  map[string]bool
	cache    *freecache.Cache
	limiter  *rateLimiter
	log      logrus.FieldLogger
}

// New returns a Server. upstream performs proxied requests and is expected
// to inject the server credential (see source.DirectFetcher).
func New(cfg Config, st Studio, upstream source.Fetcher, log logrus.FieldLogger) *Server {
	cfg.applyDefaults()
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		cfg:      cfg,
		studio:   st,
		upstream: upstream,
		allowed:  make(map[string]bool, len(cfg.AllowedHosts)),
		limiter:  newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.ProxyCount),
		log:      log.WithField("module", "server"),
	}
	for _, h := range cfg.AllowedHosts {
		s.allowed[strings.ToLower(h)] = true
	}
	if cfg.ProxyCacheMB > 0 {
		s.cache = freecache.NewCache(source.CacheSize(cfg.ProxyCacheMB, cfg.ProxyMaxEntry))
	}
	return s
}

// Handler returns the routed handler wrapped in panic recovery.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/api/proxy", s.handleProxy).Methods(http.MethodGet)
	router.HandleFunc("/api/chains", s.handleChains).Methods(http.MethodGet)
	router.HandleFunc("/api/contract/{chainId}/{address}", s.handleContract).Methods(http.MethodGet)
	router.HandleFunc("/api/contract/{chainId}/{address}/audit", s.handleAudit).Methods(http.MethodGet)
	router.HandleFunc("/api/contract/{chainId}/{address}/simulate", s.handleSimulate).Methods(http.MethodPost)
	router.HandleFunc("/api/hint", s.handleHint).Methods(http.MethodPost)
	router.HandleFunc("/api/validate", s.handleValidate).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(router)
	return n
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ticker.C:
			s.limiter.cleanup()
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.log.Info("shutting down http server")
			return srv.Shutdown(shutdownCtx)
		}
	}
}
