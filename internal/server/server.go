/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/sitewisehq/sitewise/internal/api"
	"github.com/sitewisehq/sitewise/internal/audit"
	"github.com/sitewisehq/sitewise/internal/cache"
	"github.com/sitewisehq/sitewise/internal/config"
	"github.com/sitewisehq/sitewise/internal/db"
	"github.com/sitewisehq/sitewise/internal/deliveries"
	"github.com/sitewisehq/sitewise/internal/directory"
	"github.com/sitewisehq/sitewise/internal/eventbus"
	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/incidents"
	"github.com/sitewisehq/sitewise/internal/notifications"
	"github.com/sitewisehq/sitewise/internal/schedule"
	"github.com/sitewisehq/sitewise/internal/storage"
	"github.com/sitewisehq/sitewise/internal/telemetry"
	"github.com/sitewisehq/sitewise/internal/timeclock"
	"github.com/sitewisehq/sitewise/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db              *gorm.DB
	bus             events.PubSub
	cache           *cache.Cache
	api             *api.API
	schedules       *schedule.Store
	directorySvc    *directory.Service
	timeclockSvc    *timeclock.Service
	deliverySvc     *deliveries.Service
	incidentSvc     *incidents.Service
	notificationSvc *notifications.Service
	auditSvc        *audit.Service
	storageSvc      *storage.Service

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "sitewise-api")
	})
	router.Use(telemetry.MetricsMiddleware)
	// Skip the request timeout for websocket and photo upload requests.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			if len(r.URL.Path) > 6 && r.URL.Path[len(r.URL.Path)-6:] == "/photo" && r.Method == http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:    addr,
		Handler: srv.router,
		// Keep header deadline to protect against slowloris without
		// cutting off long photo uploads mid-body.
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           metricsMux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	nodeID := uuid.NewString()[:8]
	switch s.cfg.EventBridge {
	case config.BridgeNATS:
		natsBus, err := eventbus.NewNATSBus(s.cfg.NATSURL, nodeID, s.logger)
		if err != nil {
			return fmt.Errorf("connect NATS event bridge: %w", err)
		}
		s.bus = natsBus
		s.DeferClose(natsBus.Close)
	case config.BridgeRedis:
		redisBus, err := eventbus.NewRedisBus(eventbus.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		}, nodeID, s.logger)
		if err != nil {
			return fmt.Errorf("connect Redis event bridge: %w", err)
		}
		s.bus = redisBus
		s.DeferClose(redisBus.Close)
	default:
		s.bus = events.NewBus()
	}

	// Directory cache reduces database load on calendar projections.
	// It shares the Redis instance with the event bridge when one is
	// configured and degrades to no caching when Redis is unreachable.
	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	entityCache, err := cache.New(cacheCfg, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
	} else {
		s.cache = entityCache
		s.DeferClose(func() error { return s.cache.Close() })
	}

	storageSvc, err := storage.NewService(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("initialize attachment storage: %w", err)
	}
	s.storageSvc = storageSvc
	if err := storageSvc.CheckAccess(); err != nil {
		s.logger.Warn().Err(err).Msg("attachment storage access check failed")
	}

	s.directorySvc = directory.NewService(s.db, s.bus, s.logger)
	if s.cache != nil {
		s.directorySvc.SetCache(s.cache)
	}
	s.timeclockSvc = timeclock.NewService(s.db, s.bus, s.cfg.OvertimeWeeklyHours, s.logger)
	s.deliverySvc = deliveries.NewService(s.db, s.bus, s.logger)
	s.incidentSvc = incidents.NewService(s.db, s.bus, s.logger)
	s.notificationSvc = notifications.NewService(s.db, s.bus, notifications.ConfigFromEnv(), s.logger)
	s.auditSvc = audit.NewService(s.db, s.bus, s.logger)

	persister := schedule.NewDocumentPersister(s.db, s.logger)
	s.schedules = schedule.NewStore(context.Background(), persister, s.notificationSvc, s.logger)

	s.api = api.New(
		s.db,
		[]byte(s.cfg.JWTSigningKey),
		s.schedules,
		s.directorySvc,
		s.timeclockSvc,
		s.deliverySvc,
		s.incidentSvc,
		s.notificationSvc,
		s.auditSvc,
		s.storageSvc,
		s.bus,
		s.logger,
	)

	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + version.Version + `"}`))
	})

	s.api.Routes(s.router)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.notificationSvc.Start(ctx)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()
}

// runCacheInvalidationListener drops cached directory records when the
// underlying rows change.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	jobUpdated := s.bus.Subscribe(events.EventJobUpdated)
	jobDeleted := s.bus.Subscribe(events.EventJobDeleted)
	employeeUpdated := s.bus.Subscribe(events.EventEmployeeUpdated)
	employeeDeleted := s.bus.Subscribe(events.EventEmployeeDeleted)

	defer func() {
		s.bus.Unsubscribe(events.EventJobUpdated, jobUpdated)
		s.bus.Unsubscribe(events.EventJobDeleted, jobDeleted)
		s.bus.Unsubscribe(events.EventEmployeeUpdated, employeeUpdated)
		s.bus.Unsubscribe(events.EventEmployeeDeleted, employeeDeleted)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	invalidateJob := func(payload events.Payload) {
		if jobID, ok := payload["job_id"].(string); ok {
			_ = s.cache.InvalidateJob(ctx, jobID)
		}
	}
	invalidateEmployee := func(payload events.Payload) {
		if employeeID, ok := payload["employee_id"].(string); ok {
			_ = s.cache.InvalidateEmployee(ctx, employeeID)
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return
		case payload := <-jobUpdated:
			invalidateJob(payload)
		case payload := <-jobDeleted:
			invalidateJob(payload)
		case payload := <-employeeUpdated:
			invalidateEmployee(payload)
		case payload := <-employeeDeleted:
			invalidateEmployee(payload)
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the Prometheus scrape endpoint server.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
