// Package app assembles the engine, scheduler, stores and servers from the
// loaded configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	apiaudit "github.com/fleetworks/dispatchd/api/audit"
	"github.com/fleetworks/dispatchd/config"
	"github.com/fleetworks/dispatchd/core/audit"
	"github.com/fleetworks/dispatchd/core/collab"
	"github.com/fleetworks/dispatchd/core/engine"
	"github.com/fleetworks/dispatchd/core/geo"
	coremetrics "github.com/fleetworks/dispatchd/core/metrics"
	"github.com/fleetworks/dispatchd/core/scheduler"
	"github.com/fleetworks/dispatchd/infra/logger"
	"github.com/fleetworks/dispatchd/infra/maps"
	"github.com/fleetworks/dispatchd/infra/metrics"
	"github.com/fleetworks/dispatchd/infra/postgres"
	"github.com/fleetworks/dispatchd/infra/telemetry"
	"github.com/fleetworks/dispatchd/internal/eventbus"
)

// Service owns the engine, its scheduler and the HTTP surfaces.
type Service struct {
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
	Bus       eventbus.EventBus

	auditStore audit.Store
	pool       *pgxpool.Pool
	rdb        *redis.Client
	log        logger.Logger

	apiAddr  string
	apiToken string

	promEnabled bool
	promPort    string
}

// New builds a Service from the configuration. The PostgreSQL order store is
// mandatory; telemetry falls back from Redis to PostgreSQL, the distance
// calculator from Google Maps to straight-line haversine.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	pool, err := postgres.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	orders := postgres.NewOrderStore(pool)
	customers := postgres.NewCustomerStore(pool)

	var rdb *redis.Client
	var telemetryReader engine.TelemetryReader
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		telemetryReader = telemetry.NewRedisReader(rdb)
	} else {
		telemetryReader = postgres.NewTelemetryStore(pool)
	}

	auditStore, err := buildAuditStore(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	sites := cfg.SiteDirectory()
	geoSvc, err := geo.NewService(sites)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("geo service: %w", err)
	}
	var distance collab.DistanceCalculator = geoSvc
	if cfg.Maps.APIKey != "" {
		road, err := maps.NewRoadDistance(cfg.Maps.APIKey, sites)
		if err != nil {
			logg.Warnf("maps client unavailable, using haversine distances: %v", err)
		} else {
			distance = road
		}
	}

	sink := buildSink(cfg)
	bus := eventbus.New()

	eng, err := engine.New(engine.Deps{
		Orders:    orders,
		Telemetry: telemetryReader,
		Customers: customers,
		Audit:     auditStore,
		Validator: collab.PendingValidator{},
		Scorer:    collab.PendingScorer{},
		Geofence:  geoSvc,
		Distance:  distance,
		Logger:    logger.New("engine"),
		Sink:      sink,
		Bus:       bus,
	}, cfg.Engine)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	sched, err := scheduler.New(eng, cfg.Scheduler, logger.New("scheduler"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &Service{
		Engine:      eng,
		Scheduler:   sched,
		Bus:         bus,
		auditStore:  auditStore,
		pool:        pool,
		rdb:         rdb,
		log:         logg,
		apiAddr:     cfg.API.Addr,
		apiToken:    cfg.API.Token,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

func buildAuditStore(cfg *config.Config, pool *pgxpool.Pool) (audit.Store, error) {
	switch cfg.Audit.Backend {
	case "postgres":
		return postgres.NewAuditStore(pool), nil
	case "jsonl":
		return audit.NewJSONLStore(cfg.Audit.Path)
	default:
		return audit.NewMemoryStore(), nil
	}
}

func buildSink(cfg *config.Config) coremetrics.Sink {
	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		if sink, err := metrics.NewPromSink(); err == nil {
			sinks = append(sinks, sink)
		}
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket,
		))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}
	case 1:
		return sinks[0]
	default:
		return metrics.NewMultiSink(sinks...)
	}
}

// Run starts the sweep loop and the HTTP servers, blocking until the context
// is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.apiAddr != "" {
		go s.serveAuditAPI(ctx)
	}
	return s.Scheduler.Run(ctx)
}

func (s *Service) serveAuditAPI(ctx context.Context) {
	srv := &http.Server{
		Addr:    s.apiAddr,
		Handler: apiaudit.NewHandler(s.auditStore, s.apiToken),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("audit api shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Errorf("audit api: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.Bus != nil {
		s.Bus.Close()
	}
	if err := s.auditStore.Close(); err != nil {
		return err
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			return err
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
