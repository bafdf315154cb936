package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/decision-gate/core/internal/adapters/httpprovider"
	"github.com/decision-gate/core/internal/adapters/pgstore"
	"github.com/decision-gate/core/internal/adapters/runlock"
	"github.com/decision-gate/core/internal/adapters/runpackstore"
	"github.com/decision-gate/core/internal/adapters/sqlitestore"
	"github.com/decision-gate/core/pkg/comparator"
	"github.com/decision-gate/core/pkg/config"
	"github.com/decision-gate/core/pkg/engine"
	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/observability"
	"github.com/decision-gate/core/pkg/policyhooks"
	"github.com/decision-gate/core/pkg/scenario"
	"github.com/decision-gate/core/pkg/validate"

	_ "modernc.org/sqlite"
)

// deployment holds every long-lived component runServer wires together, so
// the HTTP handlers and the doctor subcommand can share one construction
// path rather than duplicating it.
type deployment struct {
	cfg      *config.Config
	facade   *engine.Facade
	provider *observability.Provider
	db       *sql.DB
	logger   *slog.Logger
	runpacks runpackstore.Store
}

func buildDeployment(ctx context.Context, cfg *config.Config) (*deployment, error) {
	logger := slog.Default().With("component", "decisiongate")

	obsCfg := observability.FromAppConfig(cfg)
	provider, err := observability.New(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}

	var runStore scenario.Store
	var db *sql.DB
	if cfg.DevPermissive {
		logger.WarnContext(ctx, "DEV_PERMISSIVE is enabled — run state is in-memory and gate guardrails are relaxed for local iteration")
		runStore = scenario.NewMemoryStore()
	} else {
		sqliteDB, err := sql.Open("sqlite", "file:decisiongate.db?_pragma=journal_mode(WAL)")
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		store, err := sqlitestore.NewRunStore(sqliteDB)
		if err != nil {
			return nil, fmt.Errorf("run store: %w", err)
		}
		runStore = store
		db = sqliteDB
	}

	registry := scenario.NewRegistry(validate.NoopRegistry{})
	pipeline := &evidence.Pipeline{
		Providers:    httpprovider.New(providerURLsFromEnv(), 10*time.Second),
		Trust:        evidence.TrustPolicy{DevPermissive: cfg.DevPermissive, Logger: logger},
		Hasher:       nil,
		MaxBodyBytes: int(cfg.MaxCanonicalBytes),
		Logger:       logger,
		ComparatorOptions: comparator.Options{
			AllowLexFamily:  true,
			AllowDeepFamily: true,
		},
	}
	policies, err := policyhooks.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("policy hooks: %w", err)
	}
	scenarios := scenario.NewEngine(registry, runStore, pipeline, policies, logger)

	schemas := engine.NewSchemaRegistry()
	acl := engine.NewSchemaACL([]byte(schemaACLSecret()))
	disclose := engine.DisclosurePolicy{AllowedProviders: map[string]bool{}}

	facade := engine.NewFacade(scenarios, schemas, acl, pipeline, disclose)

	runpacks, err := runpackstore.Open(ctx, cfg.RunpackStoreURL)
	if err != nil {
		return nil, fmt.Errorf("runpack store: %w", err)
	}

	return &deployment{cfg: cfg, facade: facade, provider: provider, db: db, logger: logger, runpacks: runpacks}, nil
}

func providerURLsFromEnv() map[string]string {
	urls := map[string]string{}
	if v := os.Getenv("EVIDENCE_PROVIDER_URLS"); v != "" {
		// PROVIDER_ID=URL,PROVIDER_ID2=URL2
		for _, pair := range splitNonEmpty(v, ",") {
			kv := splitNonEmpty(pair, "=")
			if len(kv) == 2 {
				urls[kv[0]] = kv[1]
			}
		}
	}
	return urls
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range splitRaw(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitRaw(s, sep string) []string {
	var out []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			out = append(out, s[start:i])
			start = i + len(sep)
		}
	}
	out = append(out, s[start:])
	return out
}

func schemaACLSecret() string {
	if v := os.Getenv("SCHEMA_ACL_SECRET"); v != "" {
		return v
	}
	return "decisiongate-dev-secret"
}

// runServer starts the HTTP transport in front of engine.Facade, plus a
// separate health listener on its own port.
func runServer() {
	ctx := context.Background()
	cfg := config.Load()

	dep, err := buildDeployment(ctx, cfg)
	if err != nil {
		log.Fatalf("decisiongate: failed to initialize: %v", err)
	}
	defer func() { _ = dep.provider.Shutdown(ctx) }()

	if pgURL := os.Getenv("DECISION_LEDGER_URL"); pgURL != "" {
		ledgerDB, err := pgstore.Open(pgURL)
		if err != nil {
			log.Fatalf("decisiongate: failed to connect decision ledger: %v", err)
		}
		ledger := pgstore.NewDecisionLedger(ledgerDB)
		if err := ledger.Init(ctx); err != nil {
			log.Fatalf("decisiongate: failed to init decision ledger: %v", err)
		}
		dep.logger.InfoContext(ctx, "decision ledger ready (postgres)")
	}

	if cfg.RunLockURL != "" {
		opts, err := redis.ParseURL(cfg.RunLockURL)
		if err == nil {
			client := redis.NewClient(opts)
			_ = runlock.New(client, 30*time.Second)
			dep.logger.InfoContext(ctx, "run lock ready (redis)")
		} else {
			dep.logger.WarnContext(ctx, "run lock disabled: could not parse RUN_LOCK_URL", "error", err)
		}
	}

	mux := http.NewServeMux()
	registerRoutes(mux, dep)

	fmt.Fprintf(os.Stdout, "%sDecision Gate%s starting on :%s\n", ColorBold+ColorBlue, ColorReset, dep.cfg.Port)

	go func() {
		if err := http.ListenAndServe(":"+dep.cfg.Port, mux); err != nil {
			log.Fatalf("decisiongate: server error: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	go func() {
		if err := http.ListenAndServe(":8081", healthMux); err != nil {
			log.Printf("decisiongate: health server error: %v", err)
		}
	}()

	log.Println("[decisiongate] ready")
	log.Println("[decisiongate] press ctrl+c to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("[decisiongate] shutting down")
}

func runDoctorCmd(stdout, stderr io.Writer) int {
	ctx := context.Background()
	cfg := config.Load()

	_, _ = fmt.Fprintf(stdout, "Decision Gate doctor\n")
	_, _ = fmt.Fprintf(stdout, "  port:              %s\n", cfg.Port)
	_, _ = fmt.Fprintf(stdout, "  database_url:      %s\n", redactURL(cfg.DatabaseURL))
	_, _ = fmt.Fprintf(stdout, "  run_lock_url:      %s\n", redactURL(cfg.RunLockURL))
	_, _ = fmt.Fprintf(stdout, "  runpack_store_url: %s\n", cfg.RunpackStoreURL)
	_, _ = fmt.Fprintf(stdout, "  dev_permissive:    %v\n", cfg.DevPermissive)

	dep, err := buildDeployment(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "  engine init:       FAILED: %v\n", err)
		return 1
	}
	_ = dep.provider.Shutdown(ctx)
	_, _ = fmt.Fprintln(stdout, "  engine init:       OK")
	_, _ = fmt.Fprintln(stdout, "  runpack store:     OK")
	return 0
}

func redactURL(u string) string {
	if u == "" {
		return "(unset)"
	}
	if parsed, err := url.Parse(u); err == nil {
		return parsed.Redacted()
	}
	return u
}
