package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/catalog"
	"github.com/kailas-cloud/indexsync/internal/config"
	"github.com/kailas-cloud/indexsync/internal/db"
	dbRedis "github.com/kailas-cloud/indexsync/internal/db/redis"
	"github.com/kailas-cloud/indexsync/internal/db/typesense"
	domsyn "github.com/kailas-cloud/indexsync/internal/domain/synonym"
	"github.com/kailas-cloud/indexsync/internal/engine"
	logpkg "github.com/kailas-cloud/indexsync/internal/logger"
	"github.com/kailas-cloud/indexsync/internal/metrics"
	"github.com/kailas-cloud/indexsync/internal/registry"
	"github.com/kailas-cloud/indexsync/internal/repository/entity"
	"github.com/kailas-cloud/indexsync/internal/tracker"
	"github.com/kailas-cloud/indexsync/internal/usecase/health"
	"github.com/kailas-cloud/indexsync/internal/usecase/listener"
	"github.com/kailas-cloud/indexsync/internal/usecase/normalize"
	"github.com/kailas-cloud/indexsync/internal/usecase/schema"
	"github.com/kailas-cloud/indexsync/internal/usecase/synonym"
	"github.com/kailas-cloud/indexsync/internal/usecase/syncer"
)

// syncWorkflows is what the collection commands drive.
type syncWorkflows interface {
	Create(ctx context.Context, entity string) error
	Delete(ctx context.Context, entity string) error
	Recreate(ctx context.Context, entity string) bool
	ReindexDetailed(ctx context.Context, entity string) syncer.ReindexResult
}

// synonymService is what the synonym commands drive.
type synonymService interface {
	Upsert(ctx context.Context, collection string, syn domsyn.Synonym) error
	List(ctx context.Context, collection string) ([]domsyn.Synonym, error)
	Delete(ctx context.Context, collection, id string) error
	Apply(ctx context.Context) (synonym.ApplyResult, error)
}

type healthChecker interface {
	Check(ctx context.Context) health.Report
}

// deps is the assembled object graph of one CLI invocation.
type deps struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *registry.Registry
	schemas  *schema.Generator
	syncer   syncWorkflows
	synonyms synonymService
	health   healthChecker
	repo     *entity.Repo
	listener *listener.Listener
	closers  []func()
}

// Close releases connections in reverse order of creation.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func (c *cli) loadConfig() (config.Config, error) {
	if path := c.v.GetString("config"); path != "" {
		return config.LoadFile(path) //nolint:wrapcheck // already names the file
	}
	env := c.v.GetString("env")
	if env == "" {
		env = config.GetEnv()
	}
	return config.Load(env) //nolint:wrapcheck // already names the file
}

// buildDeps is the composition root: config, logger, engine, registry,
// repository, then the use cases.
func buildDeps(c *cli, cmd *cobra.Command) (*deps, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if c.v.GetBool("debug") {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(cfg.Env, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	d := &deps{cfg: cfg, logger: logger}
	d.closers = append(d.closers, func() { _ = logger.Sync() })

	metrics.Register()

	store, err := openEngine(ctx, cfg, logger)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.closers = append(d.closers, store.Close)

	client := engine.New(store, engine.Options{
		RetryBaseDelay:  time.Duration(cfg.Engine.RetryBaseDelayMs) * time.Millisecond,
		ImportRateLimit: cfg.Engine.ImportRateLimit,
	}, logger.Named("engine"))

	d.registry = registry.New()
	if err := catalog.Register(d.registry, cfg.IndexableEntities...); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to register indexable types: %w", err)
	}
	d.schemas = schema.New(d.registry)
	norm := normalize.New(d.registry)

	tr, err := tracker.New(tracker.Config{
		Enabled:         cfg.ErrorTracking.Enabled,
		Level:           cfg.ErrorTracking.LogLevel,
		TrackNodeErrors: cfg.ErrorTracking.TrackNodeErrors,
		NodeFields:      cfg.ErrorTracking.NodeErrorFields,
		Environment:     cfg.Env,
	}, logger.Named("tracker"))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create error tracker: %w", err)
	}

	sqlDB, dialect, err := entity.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	d.repo = entity.New(sqlDB, dialect, logger.Named("repository"))
	d.closers = append(d.closers, func() { _ = d.repo.Close() })
	if err := catalog.Migrate(ctx, sqlDB); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, m := range catalog.Mappings() {
		if err := d.repo.Register(m); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to register mapping: %w", err)
		}
	}

	d.listener = listener.New(norm, client, tr, cfg.AutoUpdateEnabled(), logger.Named("listener"))
	d.repo.OnCommit(func(ctx context.Context, obj any, change entity.Change) {
		d.listener.OnChange(ctx, obj, listener.ChangeKind(change))
	})

	out := cmd.OutOrStdout()
	d.syncer = syncer.New(d.schemas, norm, client, d.repo, tr, logger.Named("syncer"),
		syncer.WithReporter(newReporter(out)),
		syncer.WithProgress(newProgress(cmd.ErrOrStderr())),
		syncer.WithSettleDelay(time.Duration(cfg.Engine.SettleDelayMs)*time.Millisecond),
	)
	d.synonyms = synonym.New(client, d.registry, cfg.Synonyms, logger.Named("synonyms"))
	d.health = health.New(store, logger.Named("health"),
		health.WithCollections(client, collectionNames(d.registry)...),
		health.WithDatabase(d.repo),
	)

	logger.Debug("Dependencies assembled",
		zap.String("engine", cfg.Engine.Driver),
		zap.String("database", cfg.Database.Driver),
		zap.Strings("entities", d.registry.Entities()),
		zap.Bool("auto_update", cfg.AutoUpdateEnabled()),
	)
	return d, nil
}

func openEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (db.Engine, error) {
	timeout := time.Duration(cfg.Engine.ConnectionTimeoutSec) * time.Second
	switch cfg.Engine.Driver {
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.RedisAddrs(),
			Password:  cfg.Engine.Password,
			KeyPrefix: cfg.Engine.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		return store, nil
	default:
		client, err := typesense.New(typesense.Config{
			APIKey:         cfg.APIKey,
			Nodes:          cfg.ActiveNodes(),
			ReadPreference: cfg.Cluster.ReadPreference,
			Timeout:        timeout,
		}, logger.Named("typesense"))
		if err != nil {
			return nil, fmt.Errorf("failed to create cluster client: %w", err)
		}
		return client, nil
	}
}

func collectionNames(r *registry.Registry) []string {
	descs := r.Descriptors()
	out := make([]string, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.Collection)
	}
	return out
}

// withDeps builds dependencies for one command run and releases them afterwards.
func (c *cli) withDeps(cmd *cobra.Command, fn func(ctx context.Context, d *deps) error) error {
	d, err := c.build(c, cmd)
	if err != nil {
		return err
	}
	defer d.Close()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(logpkg.ContextWithLogger(ctx, d.logger), d)
}
