package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/viper"

	"github.com/mindtide/mindtide/internal/ai"
	"github.com/mindtide/mindtide/internal/api"
	"github.com/mindtide/mindtide/internal/cache"
	"github.com/mindtide/mindtide/internal/db"
	"github.com/mindtide/mindtide/internal/middleware"
	"github.com/mindtide/mindtide/internal/orchestrator"
	"github.com/mindtide/mindtide/internal/utils"
)

func main() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.SetEnvPrefix("mindtide")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := viper.ReadInConfig(); err != nil {
		log.Println("no config.yaml found, using environment variables only")
	}

	addr := viper.GetString("addr")
	if addr == "" {
		addr = utils.SafeEnv("MINDTIDE_ADDR", ":8080")
	}

	// "migrate" applies migrations and exits, for deploy hooks.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		migrateAndExit()
	}

	ctx := context.Background()
	store := openStore()
	opts := buildPipeline(ctx)

	mux := http.NewServeMux()
	api.NewRouter(store, opts).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"name":   "MindTide API",
			"locale": locale,
			"msg":    utils.T(locale, "health.ok"),
		})
	})

	handler := middleware.NoStore(middleware.LocaleMiddleware(middleware.CORS(middleware.SecureHeaders(middleware.WithAuth(mux)))))

	log.Printf("MindTide server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func migrateAndExit() {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Fatal("migrate: db.path required")
	}
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatalf("open sqlite %s: %v", dbPath, err)
	}
	defer conn.Close()
	if err := db.RunMigrations(conn, os.Getenv("MINDTIDE_MIGRATIONS_DIR")); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	log.Printf("migrations applied to %s", dbPath)
	os.Exit(0)
}

// openStore picks SQLite when a path is configured, otherwise the
// in-process memory store.
func openStore() api.Store {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Println("no db.path configured, using in-memory store")
		return api.NewMemoryStore()
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatalf("open sqlite %s: %v", dbPath, err)
	}
	if err := db.RunMigrations(conn, os.Getenv("MINDTIDE_MIGRATIONS_DIR")); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	store, err := db.NewStore(conn)
	if err != nil {
		log.Fatalf("init sqlite store: %v", err)
	}
	log.Printf("sqlite store ready at %s", dbPath)
	return store
}

// buildPipeline wires the optional composer stages. Every stage is
// best-effort: a missing key or unreachable service just narrows the
// cascade down to the deterministic templates.
func buildPipeline(ctx context.Context) api.Options {
	var opts api.Options
	opts.ComposeTimeout = viper.GetDuration("orchestrator.timeout")

	if base := viper.GetString("orchestrator.url"); base != "" {
		opts.Orchestrator = orchestrator.NewClient(base, viper.GetString("orchestrator.token"))
		log.Printf("orchestrator configured at %s", base)
	}

	if apiKey := viper.GetString("gemini.api_key"); apiKey != "" {
		gen, err := ai.NewGenerator(ctx, apiKey, viper.GetString("gemini.model"))
		if err != nil {
			log.Printf("AI generator unavailable: %v", err)
		} else {
			opts.Generator = gen
		}
	}

	if redisAddr := viper.GetString("redis.addr"); redisAddr != "" {
		marker, err := cache.Dial(ctx, redisAddr, viper.GetString("redis.password"), viper.GetInt("redis.db"))
		if err != nil {
			log.Printf("redis marker unavailable: %v", err)
		} else {
			opts.Marker = marker
		}
	}

	return opts
}
