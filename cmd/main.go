package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adwhq/adw-trigger/internal/config"
	"github.com/adwhq/adw-trigger/internal/dispatcher"
	"github.com/adwhq/adw-trigger/internal/github"
	"github.com/adwhq/adw-trigger/internal/health"
	"github.com/adwhq/adw-trigger/internal/state"
	"github.com/adwhq/adw-trigger/internal/web"
	"github.com/adwhq/adw-trigger/internal/webhook"
	"github.com/adwhq/adw-trigger/internal/workflow"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// drainTimeout bounds how long in-flight requests may run after a shutdown
// signal before the server exits anyway.
const drainTimeout = 10 * time.Second

var (
	loadDotEnv    = godotenv.Load
	newFileStore  = state.NewFileStore
	newDispatcher = dispatcher.New
	newChecker    = health.NewChecker
	newWebHandler = web.NewHandler
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, defaultServe); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, serve func(context.Context, string, http.Handler) error) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Printf("Starting %s...", webhook.ServiceName)
	log.Printf("Port: %d", cfg.Port)
	log.Printf("Repo root: %s", cfg.RepoRoot)
	log.Printf("Scripts directory: %s", cfg.ScriptsDir)
	log.Printf("State directory: %s", cfg.ResolvedStateDir())
	if cfg.GitHubWebhookSecret != "" {
		log.Printf("Webhook signature verification enabled")
	} else {
		log.Printf("GITHUB_WEBHOOK_SECRET not set, signature verification disabled")
	}

	// Initialize run-state store
	store := newFileStore(cfg.ResolvedStateDir())

	// Initialize GitHub comment client (optional, requires credentials)
	client, err := newGitHubClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize GitHub client: %w", err)
	}

	recoverer := &workflow.Recoverer{}
	var comments webhook.CommentPoster
	if client != nil {
		comments = client
		recoverer.Source = client
		log.Printf("GitHub comments enabled for %s", client.Repo())
	} else {
		log.Printf("No GitHub credentials configured, comment posting and ID recovery disabled")
	}

	// Initialize workflow dispatcher and health checker
	scripts := newDispatcher(cfg.ScriptsDir, cfg.RepoRoot, cfg.ResolvedStateDir())
	checker := newChecker(cfg.HealthCheckScript, cfg.RepoRoot, cfg.HealthCheckTimeout)

	// Initialize webhook handler
	handler := webhook.NewHandler(cfg.GitHubWebhookSecret, cfg.StateDir, scripts, store, comments, recoverer, checker)

	// Setup router
	r := mux.NewRouter()

	// Webhook and health endpoints
	r.HandleFunc("/gh-webhook", handler.Handle).Methods("POST")
	r.HandleFunc("/health", handler.HandleHealth).Methods("GET")

	// Run inspection endpoints
	newWebHandler(store).RegisterRoutes(r)

	// Root endpoint with info
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"service":%q,"status":"running"}`, webhook.ServiceName)
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Webhook endpoint: http://localhost%s/gh-webhook", addr)
	log.Printf("Health check: http://localhost%s/health", addr)
	log.Printf("Runs API: http://localhost%s/runs", addr)

	if err := serve(ctx, addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// newGitHubClient builds the comment client when a credential is configured.
// It returns nil without error when none is: the trigger still accepts
// webhooks, it just cannot post acknowledgments or recover identifiers from
// prior comments.
func newGitHubClient(cfg *config.Config) (*github.Client, error) {
	var auth github.AuthProvider
	switch {
	case cfg.GitHubPAT != "":
		auth = &github.PATAuth{Token: cfg.GitHubPAT}
	case cfg.HasGitHubApp():
		auth = &github.AppAuth{AppID: cfg.GitHubAppID, PrivateKey: cfg.GitHubPrivateKey}
	default:
		return nil, nil
	}

	repoPath, err := github.ResolveRepoPath(cfg.GitHubRepoURL, cfg.RepoRoot, &github.RealCommandRunner{})
	if err != nil {
		return nil, err
	}
	return github.NewClient(auth, repoPath)
}

// defaultServe runs the HTTP server until ctx is canceled, then drains
// in-flight requests for up to drainTimeout.
func defaultServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("Shutdown signal received, draining in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
