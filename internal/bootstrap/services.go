package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/quillchat/quill/config"
	"github.com/quillchat/quill/internal/adapters/devidentity"
	"github.com/quillchat/quill/internal/adapters/gotrue"
	"github.com/quillchat/quill/internal/adapters/rediscache"
	"github.com/quillchat/quill/internal/cache"
	"github.com/quillchat/quill/internal/data"
	"github.com/quillchat/quill/internal/ports"
	"github.com/quillchat/quill/internal/service"
)

// ServiceContainer holds the constructed application services.
type ServiceContainer struct {
	Clients     ports.ClientSource
	Verifier    ports.TokenVerifier
	Store       *cache.Store
	Queries     *service.CachedQueries
	Invalidator *service.CacheInvalidator
	Auth        *service.AuthService
}

// ServicesConfig contains dependencies for BuildServices.
type ServicesConfig struct {
	Config *config.AppConfig
	DB     *sql.DB
	// Redis may be nil when the cache backend is "memory".
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// BuildServices wires the cache, query surface, identity backend, and auth
// service together per the configured auth mode.
func BuildServices(ctx context.Context, cfg ServicesConfig) (ServiceContainer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	var repo cache.Repository
	switch appCfg.Cache.Backend {
	case "memory":
		repo = cache.NewMemory(nil)
	default:
		if cfg.Redis == nil {
			return ServiceContainer{}, fmt.Errorf("cache backend %q requires a redis connection", appCfg.Cache.Backend)
		}
		repo = rediscache.NewRepo(cfg.Redis)
	}

	store := cache.NewStore(cache.StoreOptions{Repository: repo, Logger: logger})

	queries := service.NewCachedQueries(service.CachedQueriesOptions{
		Store:     store,
		Users:     data.NewUserRepo(cfg.DB),
		Chats:     data.NewChatRepo(cfg.DB),
		Documents: data.NewDocumentRepo(cfg.DB),
		TTLs: service.QueryTTLs{
			Session:     appCfg.Cache.SessionTTL,
			Entity:      appCfg.Cache.EntityTTL,
			UserByEmail: appCfg.Cache.UserByEmailTTL,
		},
	})

	invalidator := service.NewCacheInvalidator(service.CacheInvalidatorOptions{
		Store:  store,
		Logger: logger,
	})

	clients, verifier, err := buildIdentity(ctx, appCfg, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	auth := service.NewAuthService(service.AuthServiceOptions{
		Queries:     queries,
		Invalidator: invalidator,
		Verifier:    verifier,
		CallbackURL: appCfg.Auth.GoTrue.SiteURL + "/auth/callback",
		Logger:      logger,
	})

	return ServiceContainer{
		Clients:     clients,
		Verifier:    verifier,
		Store:       store,
		Queries:     queries,
		Invalidator: invalidator,
		Auth:        auth,
	}, nil
}

func buildIdentity(ctx context.Context, appCfg *config.AppConfig, logger *slog.Logger) (ports.ClientSource, ports.TokenVerifier, error) {
	switch appCfg.Auth.Mode {
	case config.AuthModeMock:
		provider, err := devidentity.NewProvider(devidentity.Config{
			UserID:   appCfg.Auth.DevAuth.UserID,
			Email:    appCfg.Auth.DevAuth.Email,
			Password: appCfg.Auth.DevAuth.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build dev identity backend: %w", err)
		}
		logger.Warn("using mock identity backend", "email", appCfg.Auth.DevAuth.Email)
		// No verifier: dev tokens are opaque strings, not JWTs.
		return provider, nil, nil

	case config.AuthModeGoTrue:
		factory, err := gotrue.NewFactory(gotrue.Config{
			BaseURL:      appCfg.Auth.GoTrue.BaseURL,
			AnonKey:      appCfg.Auth.GoTrue.AnonKey,
			SiteURL:      appCfg.Auth.GoTrue.SiteURL,
			CookieDomain: appCfg.HTTP.CookieDomain,
			Metadata: gotrue.MetadataConfig{
				DisplayNameExpr: appCfg.Auth.GoTrue.DisplayNameExpr,
				AvatarURLExpr:   appCfg.Auth.GoTrue.AvatarURLExpr,
			},
			Logger: logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build identity backend client: %w", err)
		}

		issuer := appCfg.Auth.GoTrue.JWKSIssuer
		if issuer == "" {
			issuer = appCfg.Auth.GoTrue.BaseURL
		}
		verifier, err := gotrue.NewVerifier(ctx, gotrue.VerifierConfig{BaseURL: issuer})
		if err != nil {
			// The verifier is an optimization; invalidation falls back to
			// GetUser without it.
			logger.Warn("local token verification unavailable", "error", err)
			return factory, nil, nil
		}
		return factory, verifier, nil

	default:
		return nil, nil, fmt.Errorf("unknown auth mode %q", appCfg.Auth.Mode)
	}
}
