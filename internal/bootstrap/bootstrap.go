package bootstrap

import (
	"context"
	"fmt"

	"github.com/mzaitsev/policy-assistant/internal/config"
	"github.com/mzaitsev/policy-assistant/internal/core/ports"
	"github.com/mzaitsev/policy-assistant/internal/core/usecase"
	"github.com/mzaitsev/policy-assistant/internal/infrastructure/llm/modelchain"
	"github.com/mzaitsev/policy-assistant/internal/infrastructure/queue/nats"
	"github.com/mzaitsev/policy-assistant/internal/infrastructure/repository/postgres"
	"github.com/mzaitsev/policy-assistant/internal/infrastructure/resilience"
	redissession "github.com/mzaitsev/policy-assistant/internal/infrastructure/session/redis"
	"github.com/mzaitsev/policy-assistant/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.ServerMetrics

	SearchUC ports.PolicySearcher
	KeysUC   *usecase.APIKeyUseCase
	AuthUC   ports.Authenticator

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	sessions, err := redissession.NewStore(redissession.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}
	if err := sessions.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping session store: %w", err)
	}

	endpoints, err := loadEndpoints(cfg)
	if err != nil {
		return nil, err
	}

	serverMetrics := metrics.NewServerMetrics("policy-assistant-api")

	model, err := modelchain.New(endpoints, modelchain.Options{
		Breakers:      resilience.NewBreakerSet(resilience.DefaultConfig()),
		MaxConcurrent: cfg.ModelMaxConcurrent,
		ContextBudget: cfg.ModelContextChars,
		Metrics:       serverMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("init model client: %w", err)
	}

	var publisher ports.ActivityPublisher
	var publisherClose func()
	if cfg.NATSURL != "" {
		natsPublisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, fmt.Errorf("init activity publisher: %w", err)
		}
		publisher = natsPublisher
		publisherClose = natsPublisher.Close
	}

	searchUC := usecase.NewSearchUseCase(
		postgres.NewPolicyRepository(db),
		model,
		postgres.NewSearchRepository(db),
		postgres.NewActivityRepository(db),
		publisher,
		serverMetrics,
		cfg.CandidateLimit,
		cfg.CandidateExcerptChars,
	)
	keysUC := usecase.NewAPIKeyUseCase(postgres.NewAPIKeyRepository(db), cfg.APIKeyMaxAge)
	authUC := usecase.NewAuthUseCase(postgres.NewUserRepository(db), sessions, cfg.SessionTTL)

	return &App{
		Config:  cfg,
		Metrics: serverMetrics,

		SearchUC: searchUC,
		KeysUC:   keysUC,
		AuthUC:   authUC,

		closeFn: func() {
			model.Close()
			if publisherClose != nil {
				publisherClose()
			}
			sessions.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// loadEndpoints prefers the YAML chain file; without one a single primary
// endpoint comes from env.
func loadEndpoints(cfg config.Config) ([]modelchain.Endpoint, error) {
	if cfg.ModelEndpointsFile != "" {
		endpoints, err := modelchain.LoadEndpoints(cfg.ModelEndpointsFile)
		if err != nil {
			return nil, fmt.Errorf("load model endpoints: %w", err)
		}
		return endpoints, nil
	}
	return []modelchain.Endpoint{{
		Name:    "primary",
		BaseURL: cfg.ModelBaseURL,
		APIKey:  cfg.ModelAPIKey,
		Model:   cfg.ModelName,
		Timeout: cfg.ModelTimeout,
	}}, nil
}
