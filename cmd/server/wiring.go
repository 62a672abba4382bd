package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	"idregistry/internal/access/forwarder"
	"idregistry/internal/access/handler"
	accessmetrics "idregistry/internal/access/metrics"
	"idregistry/internal/access/models"
	"idregistry/internal/access/notify"
	"idregistry/internal/access/registration"
	"idregistry/internal/access/service"
	"idregistry/internal/access/store"
	"idregistry/internal/platform/config"
	"idregistry/internal/platform/kafka"
	"idregistry/internal/platform/metrics"
	"idregistry/internal/platform/postgres"
	redisclient "idregistry/internal/platform/redis"
	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	audit "idregistry/pkg/platform/audit"
	"idregistry/pkg/platform/audit/publishers/compliance"
	auditmemory "idregistry/pkg/platform/audit/store/memory"
	auditpostgres "idregistry/pkg/platform/audit/store/postgres"
	auditredis "idregistry/pkg/platform/audit/store/redis"
	"idregistry/pkg/platform/circuit"
	"idregistry/pkg/platform/httputil"
	"idregistry/pkg/platform/middleware/metadata"
	"idregistry/pkg/platform/middleware/request"
)

type healthCheck func(ctx context.Context) error

type app struct {
	router  http.Handler
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// build assembles every dependency the server needs. Resources opened here
// are released by app.close.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	checks := map[string]healthCheck{}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registryID, err := models.ParseRegistryID(cfg.Registry.ID)
	if err != nil {
		return nil, err
	}

	registryStore, auditStore, err := a.buildStores(ctx, cfg, checks)
	if err != nil {
		a.close()
		return nil, err
	}

	sinks := []notify.Notifier{
		notify.NewAuditNotifier(compliance.New(auditStore,
			compliance.WithLogger(log),
			compliance.WithMetrics(compliance.NewMetrics(reg)),
		)),
	}
	if cfg.Kafka.Enabled() {
		producer, err := a.buildProducer(ctx, cfg.Kafka, checks)
		if err != nil {
			a.close()
			return nil, err
		}
		sinks = append(sinks, notify.NewBreakerNotifier(
			notify.NewKafkaNotifier(producer, cfg.Kafka.Topic),
			circuit.New("kafka", circuit.WithFailureThreshold(3), circuit.WithCooldown(15*time.Second)),
			log,
		))
	}

	svc, err := service.New(registryID, registryStore,
		service.WithLogger(log),
		service.WithNotifier(notifierChain(log, sinks...)),
		service.WithMetrics(accessmetrics.New(reg)),
		service.WithTracer(otel.Tracer("idregistry")),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := bootstrap(ctx, svc, cfg.Registry, log); err != nil {
		a.close()
		return nil, err
	}

	resolver := buildResolver(cfg.Forwarder)
	httpMetrics := metrics.New(reg)

	r := chi.NewRouter()
	r.Get("/healthz", healthHandler(checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handler.New(registryID, svc, auditStore, resolver, log, httpMetrics,
		handler.WithRequestTimeout(cfg.Server.RequestTimeout),
	).Register(r)

	if cfg.Registration.UpstreamURL != "" {
		proxy, err := registration.NewUpstreamProxy(cfg.Registration.UpstreamURL, log)
		if err != nil {
			a.close()
			return nil, err
		}
		r.Route("/v1/registrations", func(rr chi.Router) {
			rr.Use(request.Recovery(log))
			rr.Use(request.RequestID)
			rr.Use(metadata.ClientMetadata)
			rr.Use(request.Logger(log))
			rr.Use(metrics.LatencyMiddleware(httpMetrics))
			rr.Use(forwarder.Middleware(resolver, log))
			rr.Use(registration.RequireRegistration(svc, log))
			rr.Handle("/*", proxy)
		})
	}

	a.router = r
	return a, nil
}

func (a *app) buildStores(ctx context.Context, cfg config.Config, checks map[string]healthCheck) (service.Store, audit.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["postgres"] = db.PingContext
		if err := applySchemas(ctx, db); err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(db, store.WithTxTimeout(cfg.Postgres.TxTimeout)), auditpostgres.New(db), nil

	case config.BackendRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, client.Close)
		checks["redis"] = client.Health
		return store.NewRedis(client.Client), auditredis.New(client.Client), nil

	default:
		return store.NewInMemory(), auditmemory.NewInMemoryStore(), nil
	}
}

func applySchemas(ctx context.Context, db *sql.DB) error {
	if err := store.EnsureSchema(ctx, db); err != nil {
		return err
	}
	return auditpostgres.EnsureSchema(ctx, db)
}

func (a *app) buildProducer(ctx context.Context, cfg config.KafkaConfig, checks map[string]healthCheck) (*kgo.Client, error) {
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		producer.Close()
		return nil
	})
	if err := kafka.EnsureTopic(ctx, producer, cfg); err != nil {
		return nil, err
	}
	checks["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, producer) }
	return producer, nil
}

// notifierChain delivers to sinks in order and logs last, so a notification
// refused by any sink never reaches the log.
func notifierChain(log *slog.Logger, sinks ...notify.Notifier) notify.Fanout {
	chain := make(notify.Fanout, 0, len(sinks)+1)
	chain = append(chain, sinks...)
	return append(chain, notify.NewLogNotifier(log))
}

// bootstrap creates the registry on first start. An existing registry keeps
// its state; the configured identities are then ignored.
func bootstrap(ctx context.Context, svc *service.Service, cfg config.Registry, log *slog.Logger) error {
	owner, err := id.ParseIdentity(cfg.Owner)
	if err != nil {
		return fmt.Errorf("REGISTRY_OWNER: %w", err)
	}
	trusted, err := id.ParseIdentity(cfg.TrustedCaller)
	if err != nil {
		return fmt.Errorf("REGISTRY_TRUSTED_CALLER: %w", err)
	}

	_, err = svc.Bootstrap(ctx, owner, trusted)
	switch {
	case err == nil:
		return nil
	case dErrors.Is(err, dErrors.CodeConflict):
		snap, err := svc.Snapshot(ctx)
		if err != nil {
			return err
		}
		log.Info("reusing existing registry",
			"registry_id", snap.RegistryID,
			"owner", snap.Owner.String(),
			"version", snap.Version,
		)
		return nil
	default:
		return fmt.Errorf("bootstrap registry: %w", err)
	}
}

func buildResolver(cfg config.ForwarderConfig) forwarder.Resolver {
	if cfg.Mode == config.ForwarderJWT {
		return forwarder.NewJWTResolver(cfg.SigningKey, cfg.Issuer, cfg.Audience)
	}
	return forwarder.NewHeaderResolver(cfg.Header)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		var failed error
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				failed = errors.Join(failed, err)
				continue
			}
			resp.Checks[name] = "ok"
		}
		status := http.StatusOK
		if failed != nil {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
