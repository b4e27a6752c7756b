package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimcheck/internal/analytics"
	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/logging"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/search"
	"github.com/ppiankov/claimcheck/internal/store"
	"github.com/ppiankov/claimcheck/internal/telemetry"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/validate"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// optionalKeys are empty by default, so the YAML defaults omit them
var optionalKeys = []string{
	"http.http_proxy", "http.https_proxy", "http.no_proxy",
	"analytics.endpoint", "analytics.api_key",
	"llm.provider", "llm.base_url", "llm.api_key",
	"search.redis_addr", "search.password",
	"telemetry.endpoint",
}

// setDefaults registers every config key so environment overrides apply
func setDefaults(v *viper.Viper) error {
	raw, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return err
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return err
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for _, key := range optionalKeys {
		v.SetDefault(key, "")
	}
	return nil
}

// loadConfig resolves flags, environment, config file and defaults into a
// validated Config with secrets applied from the environment
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	creds, err := env.ParseAs[model.Credentials]()
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	kind, err := llm.ResolveKind(cfg.LLM.Provider, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	cfg.ApplyCredentials(creds, string(kind))

	if err := validate.Config(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the process-wide collaborators, built once at start-up
type app struct {
	config   *model.Config
	logger   *zap.Logger
	store    *store.Store
	index    search.Index
	pipeline *pipeline.Pipeline

	shutdownTracing func(context.Context) error
}

// setupTracing is replaced in tests
var setupTracing = telemetry.Setup

// newApp builds the logger, tracing, store, index and pipeline.
// On error everything built so far is released.
func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return nil, err
	}

	shutdown, err := setupTracing(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	a := &app{config: cfg, logger: logger, shutdownTracing: shutdown}
	fail := func(err error) (*app, error) {
		if cerr := a.Close(context.Background()); cerr != nil {
			logger.Warn("release after failed start-up", zap.Error(cerr))
		}
		return nil, err
	}

	llmCfg, err := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
	if err != nil {
		return fail(err)
	}
	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		return fail(fmt.Errorf("create LLM provider: %w", err))
	}

	a.store, err = store.Open(ctx, cfg.Store)
	if err != nil {
		return fail(err)
	}

	a.index = search.New(cfg.Search)

	httpClient := pipeline.NewHTTPClient(cfg.HTTP)
	opts := []pipeline.FetcherOption{
		pipeline.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
	}
	if cfg.Robots.Enabled {
		robotsCache := cache.NewMemoryCache(cfg.Robots.CacheTTL, 2*cfg.Robots.CacheTTL)
		opts = append(opts, pipeline.WithRobots(util.NewRobotsChecker(robotsCache, cfg.Robots.CacheTTL, httpClient, cfg.HTTP.UserAgent)))
	}
	fetcher := pipeline.NewFetcher(cfg.HTTP, opts...)

	analyzer := analytics.New(cfg.Analytics.Endpoint, cfg.Analytics.APIKey,
		analytics.WithTimeout(cfg.Analytics.Timeout))

	deps := pipeline.Deps{
		Fetcher:    fetcher,
		Analyzer:   analyzer,
		Classifier: llm.NewClassifier(provider, logger),
		Store:      a.store,
		Logger:     logger,
	}
	if a.index.Enabled() {
		deps.Index = a.index
	}
	a.pipeline = pipeline.NewPipeline(cfg, deps)

	logger.Debug("claimcheck initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.String("analyzer", analyzer.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("search", a.index.Enabled()),
		zap.Int("sources", len(cfg.Sources)))

	return a, nil
}

// Close waits for pending index writes and releases every resource.
// It tolerates a partially built app.
func (a *app) Close(ctx context.Context) error {
	if a.pipeline != nil {
		a.pipeline.Wait()
	}

	var errs []error
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close search index: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush traces: %w", err))
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// startApp loads the global configuration and builds the app
func startApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}
