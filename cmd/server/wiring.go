package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"daytrip/config"
	"daytrip/database"
	"daytrip/entities"
	"daytrip/pkg/ai"
	authCtrlImp "daytrip/pkg/auth/controllerImp"
	"daytrip/pkg/auth/token"
	"daytrip/pkg/exclusion"
	healthCtrlImp "daytrip/pkg/health/controllerImp"
	"daytrip/pkg/metrics"
	placeCtrlImp "daytrip/pkg/place/controllerImp"
	"daytrip/pkg/place/importer"
	"daytrip/pkg/place/repository"
	placeRepoImp "daytrip/pkg/place/repositoryImp"
	planCtrlImp "daytrip/pkg/plan/controllerImp"
	planSvcImp "daytrip/pkg/plan/serviceImp"
	"daytrip/pkg/revision"
	"daytrip/router"
)

func setupLogger(flagLevel, envLevel string) *slog.Logger {
	lvl := flagLevel
	if lvl == "" {
		lvl = envLevel
	}
	level := slog.LevelInfo
	switch strings.ToLower(lvl) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// openStore returns the configured PlaceStore: sqlite through gorm, or an
// Elasticsearch index.
func openStore(ctx context.Context, cfg config.AppConfig, kind string, log *slog.Logger) (repository.PlaceStore, error) {
	switch kind {
	case "", "sqlite":
		db, err := database.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		return placeRepoImp.New(db), nil
	case "elasticsearch", "es":
		client, err := placeRepoImp.NewESClient(cfg.ESAddresses)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch client: %w", err)
		}
		store := placeRepoImp.NewESStore(client, cfg.ESIndex, log)
		if err := store.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure index %s: %w", cfg.ESIndex, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown place store %q", kind)
	}
}

func newPlanner(cfg config.AppConfig, log *slog.Logger) ai.Planner {
	if cfg.LLMAPIKey == "" {
		log.Warn("[ai] LLM_API_KEY not set, using the mock planner")
		return ai.NewMock()
	}
	rules := promptRules(cfg.Rules)
	llm, err := ai.NewOpenAI(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel, rules, ai.NewHTTPClient())
	if err != nil {
		log.Warn("[ai] planner client failed, using the mock planner", "err", err)
		return ai.NewMock()
	}
	return ai.RateLimited(llm, cfg.LLMRatePerSec, cfg.LLMBurst)
}

// promptRules folds configured limits onto the cafe and restaurant groups,
// matching keys the way the planner service does.
func promptRules(r config.PlannerRules) ai.PromptRules {
	def := config.DefaultRules()
	if len(r.CafeCategories) == 0 {
		r.CafeCategories = def.CafeCategories
	}
	if len(r.RestaurantCategories) == 0 {
		r.RestaurantCategories = def.RestaurantCategories
	}
	cafes := aliasSet(r.CafeCategories)
	restaurants := aliasSet(r.RestaurantCategories)

	rules := ai.DefaultPromptRules()
	for k, n := range r.CategoryLimits {
		key := entities.NormalizeCategory(k)
		switch {
		case cafes[key]:
			rules.CafeLimit = n
		case restaurants[key]:
			rules.RestaurantLimit = n
		}
	}
	rules.MinActivities = r.MinActivities
	return rules
}

func aliasSet(aliases []string) map[string]bool {
	out := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		out[entities.NormalizeCategory(a)] = true
	}
	return out
}

func clockIn(tz string, log *slog.Logger) func() time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("[cfg] unknown timezone, using host local time", "tz", tz, "err", err)
		return time.Now
	}
	return func() time.Time { return time.Now().In(loc) }
}

func runServe(ctx context.Context, logLevel string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := setupLogger(logLevel, cfg.LogLevel)

	store, err := openStore(ctx, cfg, cfg.StoreKind, log)
	if err != nil {
		return err
	}
	exclusions, err := exclusion.New(cfg.ExclusionSessions, cfg.ExclusionPerSession)
	if err != nil {
		return fmt.Errorf("exclusion store: %w", err)
	}
	m := metrics.New()

	svc, err := planSvcImp.NewPlanService(store, newPlanner(cfg, log), planSvcImp.Options{
		Rules:      cfg.Rules,
		Revisions:  revision.NewRegistry(),
		Exclusions: exclusions,
		Metrics:    m,
		Log:        log,
		Now:        clockIn(cfg.Timezone, log),
	})
	if err != nil {
		return err
	}
	tokens := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.Warn("[http] request", append(attrs, "err", v.Error)...)
				return nil
			}
			log.Info("[http] request", attrs...)
			return nil
		},
	}))

	router.New(
		e,
		tokens,
		planCtrlImp.NewPlanCtrl(svc, log),
		placeCtrlImp.New(store, cfg.ImportAllowedDomains, cfg.ImportMaxBytes, &http.Client{Timeout: 20 * time.Second}, log),
		authCtrlImp.NewAuthController(tokens, log),
		healthCtrlImp.NewHealthCtrl(store, cfg.StoreKind),
		m.Handler(),
	)

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port, "store", cfg.StoreKind)
		errc <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

func runImport(ctx context.Context, logLevel, file, kind string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	log := setupLogger(logLevel, cfg.LogLevel)
	if kind == "" {
		kind = cfg.StoreKind
	}

	res, err := importer.LoadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	store, err := openStore(ctx, cfg, strings.ToLower(kind), log)
	if err != nil {
		return err
	}
	n, err := store.UpsertPlaces(ctx, res.Places)
	if err != nil {
		return fmt.Errorf("upsert places: %w", err)
	}
	log.Info("[import] done", "file", file, "store", kind, "upserted", n, "skipped", res.Skipped)
	return nil
}
