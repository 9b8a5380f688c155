// Package app wires configuration, storage, services and the HTTP server
// into a runnable unit with ordered startup and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gkhttp "github.com/openpath/gatekeeper/internal/gatekeeper/http"
	"github.com/openpath/gatekeeper/internal/gatekeeper/rulestore"
	"github.com/openpath/gatekeeper/internal/gatekeeper/service"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store/drivers/sqlite"
	"github.com/openpath/gatekeeper/internal/gatekeeper/tokenstore"
	"github.com/openpath/gatekeeper/pkg/jwtx"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App holds the assembled service and its lifecycle hooks.
type App struct {
	cfg    Config
	logger *slog.Logger

	store     store.Store
	blacklist tokenstore.Store
	keeper    *housekeeper
	server    *http.Server
}

// New assembles the application: storage and migrations first, then the
// token blacklist, rule store backend, services and router.
func New(cfg Config) (*App, error) {
	logger := slogx.New(slogx.Config{
		Service: "gatekeeper",
		Version: Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	st, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	blacklist, err := newBlacklist(cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	codec, err := jwtx.NewHS256(cfg.SigningSecret, cfg.TokenIssuer)
	if err != nil {
		_ = st.Close()
		_ = blacklist.Close()
		return nil, fmt.Errorf("token codec: %w", err)
	}

	rules := &rulestore.Service{Backend: newRuleBackend(cfg, st)}

	tokens := &service.TokenService{
		Codec:      codec,
		Blacklist:  blacklist,
		Store:      st,
		Issuer:     cfg.TokenIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	users := &service.UserService{Store: st}
	roles := &service.RolesService{Store: st}
	workflow := &service.RequestWorkflow{
		Store:    st,
		Rules:    rules,
		Notifier: newNotifier(cfg, logger),
	}

	router := gkhttp.NewRouter(gkhttp.RouterConfig{
		Logger:       logger,
		Store:        st,
		Tokens:       tokens,
		Users:        users,
		Roles:        roles,
		Workflow:     workflow,
		Rules:        rules,
		AdminToken:   cfg.AdminToken,
		SharedSecret: cfg.SharedSecret,
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		blacklist: blacklist,
		keeper:    newHousekeeper(st, logger, cfg.SweepInterval, cfg.ReportRetention),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully: stop
// accepting, drain in-flight requests within the grace period, stop the
// background workers, close the stores.
func (a *App) Run(ctx context.Context) error {
	a.keeper.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.server.Addr, "rulestore_mode", a.cfg.RuleStoreMode)
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.shutdownWorkers()
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "grace_period", a.cfg.ShutdownGracePeriod)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.shutdownWorkers()
	return err
}

func (a *App) shutdownWorkers() {
	a.keeper.Stop()
	if err := a.blacklist.Close(); err != nil {
		a.logger.Error("closing token blacklist", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing store", "error", err)
	}
}

func newBlacklist(cfg Config, logger *slog.Logger) (tokenstore.Store, error) {
	if cfg.RedisAddr == "" {
		return tokenstore.NewMemory(logger, cfg.SweepInterval), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := tokenstore.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("token blacklist backed by redis", "addr", cfg.RedisAddr)
	return r, nil
}

func newRuleBackend(cfg Config, st *sqlite.Store) rulestore.Backend {
	if cfg.RuleStoreMode == "remote" {
		return rulestore.NewHTTPBackend(cfg.RuleStoreURL, cfg.RuleStoreToken)
	}
	return rulestore.NewSQLBackend(st.DB())
}

func newNotifier(cfg Config, logger *slog.Logger) service.Notifier {
	if cfg.NotifyWebhookURL != "" {
		return service.NewWebhookNotifier(cfg.NotifyWebhookURL)
	}
	return &service.LogNotifier{Logger: logger}
}
