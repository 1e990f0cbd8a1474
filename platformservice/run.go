package platformservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/planfold/planfold/server/internal/api"
	"github.com/planfold/planfold/server/internal/api/recovery"
	"github.com/planfold/planfold/server/internal/auth"
	"github.com/planfold/planfold/server/internal/config"
	"github.com/planfold/planfold/server/internal/factory"
	"github.com/planfold/planfold/server/internal/health"
	"github.com/planfold/planfold/server/internal/logger"
	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/services"
	"github.com/planfold/planfold/server/internal/store"
	"github.com/planfold/planfold/server/internal/webhook"
)

// Run starts the platform service HTTP server and blocks until shutdown or
// error.
func Run() error {
	log := logger.New("platform-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("api_base_path", cfg.APIBasePath).
		Msg("Platform service starting")

	// Cancellable root context bound to SIGINT/SIGTERM.
	ctx, stop := newServerContext()
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return err
	}

	router := BuildRouter(st, cfg, log)

	svcHealth := startHealthCheckers(ctx, cfg, log, st)

	// Block startup until dependencies report healthy; fail fast otherwise.
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// BuildRouter wires every HTTP route behind the authorization stack. All
// routes live under cfg.APIBasePath; the permission table is consulted on
// paths with that prefix stripped.
func BuildRouter(st store.Store, cfg *config.Config, log zerolog.Logger) *mux.Router {
	authSvc := services.NewAuthService(st)
	resolver := auth.NewResolver(authSvc, authSvc)
	engine := auth.NewEngine(auth.DefaultTable())
	secure := auth.NewMiddleware(resolver, engine, cfg.APIBasePath, log)
	guard := auth.NewOrgRoleGuard(authSvc, log)

	notifier := webhook.NewNotifier(time.Duration(cfg.WebhookTimeoutSeconds) * time.Second)

	userSvc := services.NewUserService(st)
	orgSvc := services.NewOrganizationService(st)
	catalogSvc := services.NewCatalogService(st)
	contractSvc := services.NewContractService(st, notifier, log)
	evalSvc := services.NewEvaluationService(st)

	root := mux.NewRouter()
	sub := root.PathPrefix(cfg.APIBasePath).Subrouter()
	sub.Use(recovery.Middleware)
	sub.Use(secure.Secure)

	// Health
	healthHandler := api.NewHealthHandler()
	sub.HandleFunc("/health", healthHandler.CheckHealth).Methods("GET")

	// Identity echo
	me := api.NewMeHandler()
	sub.HandleFunc("/me", me.Whoami).Methods("GET")

	// Users
	users := api.NewUserHandler(userSvc)
	sub.HandleFunc("/users", users.CreateUser).Methods("POST")
	sub.HandleFunc("/users", users.ListUsers).Methods("GET")
	sub.HandleFunc("/users/{username}", users.GetUser).Methods("GET")
	sub.HandleFunc("/users/{username}", users.DeleteUser).Methods("DELETE")

	// Organizations. Routes below /organizations/{orgId} carry a second
	// authorization layer keyed on the caller's role inside that org.
	orgs := api.NewOrganizationHandler(orgSvc)
	sub.HandleFunc("/organizations", orgs.CreateOrganization).Methods("POST")
	sub.HandleFunc("/organizations", orgs.ListOrganizations).Methods("GET")

	anyMember := guard.Require(model.OrgRoleOwner, model.OrgRoleAdmin, model.OrgRoleManager, model.OrgRoleEvaluator)
	managers := guard.Require(model.OrgRoleOwner, model.OrgRoleAdmin)
	ownerOnly := guard.Require(model.OrgRoleOwner)

	sub.Handle("/organizations/{orgId}", anyMember(http.HandlerFunc(orgs.GetOrganization))).Methods("GET")
	sub.Handle("/organizations/{orgId}", ownerOnly(http.HandlerFunc(orgs.DeleteOrganization))).Methods("DELETE")
	sub.Handle("/organizations/{orgId}/members", managers(http.HandlerFunc(orgs.AddMember))).Methods("POST")
	sub.Handle("/organizations/{orgId}/members/{username}", managers(http.HandlerFunc(orgs.RemoveMember))).Methods("DELETE")
	sub.Handle("/organizations/{orgId}/owner", ownerOnly(http.HandlerFunc(orgs.TransferOwnership))).Methods("POST")
	sub.Handle("/organizations/{orgId}/webhook", managers(http.HandlerFunc(orgs.SetWebhook))).Methods("PUT")
	sub.Handle("/organizations/{orgId}/keys", managers(http.HandlerFunc(orgs.IssueAPIKey))).Methods("POST")
	sub.Handle("/organizations/{orgId}/keys/{key}", managers(http.HandlerFunc(orgs.RevokeAPIKey))).Methods("DELETE")

	// Service catalog
	svcs := api.NewServiceHandler(catalogSvc)
	sub.HandleFunc("/services", svcs.CreateService).Methods("POST")
	sub.HandleFunc("/services", svcs.ListServices).Methods("GET")
	sub.HandleFunc("/services/{serviceId}", svcs.GetService).Methods("GET")
	sub.HandleFunc("/services/{serviceId}", svcs.UpdateService).Methods("PUT")
	sub.HandleFunc("/services/{serviceId}", svcs.DeleteService).Methods("DELETE")

	// Contracts
	contracts := api.NewContractHandler(contractSvc)
	sub.HandleFunc("/contracts", contracts.Subscribe).Methods("POST")
	sub.HandleFunc("/contracts", contracts.ListContracts).Methods("GET")
	sub.HandleFunc("/contracts/{contractId}", contracts.GetContract).Methods("GET")
	sub.HandleFunc("/contracts/{contractId}", contracts.Terminate).Methods("DELETE")

	// Feature evaluation
	eval := api.NewEvaluationHandler(evalSvc)
	sub.HandleFunc("/evaluation/services/{serviceId}/features/{feature}", eval.EvaluateFeature).Methods("GET")

	return root
}

// startHealthCheckers starts component checkers and the service aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in
// seconds: interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup
// window expires. Checkers start unhealthy and need one probe cycle.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context bound to SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
