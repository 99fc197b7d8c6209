package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/cache"
	"github.com/mohammad-safakhou/ideahub/internal/dashboard"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/ideastore"
	"github.com/mohammad-safakhou/ideahub/internal/logging"
	"github.com/mohammad-safakhou/ideahub/internal/metrics"
	"github.com/mohammad-safakhou/ideahub/internal/providers"
	"github.com/mohammad-safakhou/ideahub/internal/scheduler"
	"github.com/mohammad-safakhou/ideahub/internal/sentiment"
	"github.com/mohammad-safakhou/ideahub/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCMD() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logging.ForService(logging.New(cfg.General), "ideahub")
	m := metrics.New()

	reg := providers.Build(cfg.Providers, log)
	engineOpts := []hub.EngineOption{
		hub.WithUnitCosts(reg.UnitCosts),
		hub.WithFetchTimeout(cfg.Engine.FetchTimeout),
		hub.WithConcurrency(cfg.Engine.Concurrency),
		hub.WithRecorder(m),
		hub.WithLogger(log.WithField("component", "hub.engine")),
	}
	if cfg.Sentiment.Enabled {
		engineOpts = append(engineOpts, hub.WithClassifier(sentiment.New(cfg.Sentiment)))
	}
	engine := hub.NewEngine(reg.Fetchers, engineOpts...)

	var rdb *redis.Client
	if cfg.Cache.RedisEnabled || cfg.Scheduler.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:        cfg.Storage.Redis.Addr(),
			Password:    cfg.Storage.Redis.Password,
			DB:          cfg.Storage.Redis.DB,
			DialTimeout: cfg.Storage.Redis.Timeout,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}
	var pg *cache.Postgres
	if cfg.Cache.PostgresEnabled {
		db, err := cache.OpenPostgres(ctx, cfg.Storage.Postgres.DSN())
		if err != nil {
			return err
		}
		defer func(db *sql.DB) { _ = db.Close() }(db)
		pg = cache.NewPostgres(db)
	}

	tiers := []cache.Tier{{Name: "memory", Store: cache.NewMemory(cfg.Cache.MemoryMaxEntries)}}
	if cfg.Cache.RedisEnabled {
		tiers = append(tiers, cache.Tier{Name: "redis", Store: cache.NewRedis(rdb, cfg.Cache.RedisPrefix)})
	}
	if pg != nil {
		tiers = append(tiers, cache.Tier{Name: "postgres", Store: pg})
	}
	store := cache.NewTiered(log, m.CacheHooks(), tiers...)

	ttls := make(map[hub.TileType]time.Duration, len(cfg.Cache.TTLs))
	for name, d := range cfg.Cache.TTLs {
		ttls[hub.TileType(name)] = d
	}
	dashOpts := []dashboard.Option{
		dashboard.WithTTLPolicy(cache.NewTTLPolicy(ttls)),
		dashboard.WithTileRecorder(m),
		dashboard.WithRunTimeout(cfg.Server.RequestTimeout),
		dashboard.WithLogger(log),
	}
	if cfg.Engine.DirectReddit {
		dashOpts = append(dashOpts, dashboard.WithPlanOptions(hub.WithDirectReddit()))
	}
	dash := dashboard.New(engine, store, dashOpts...)

	ideaOpts := []ideastore.Option{ideastore.WithLogger(log)}
	if rdb != nil {
		ideaOpts = append(ideaOpts, ideastore.WithPersistence(ideastore.NewRedisPersistence(rdb, "")))
	}
	ideas := ideastore.New(ideaOpts...)
	if err := ideas.Load(ctx); err != nil {
		return err
	}
	if rdb != nil {
		if _, err := ideas.ImportLegacy(ctx, rdb, "", ideastore.DefaultLegacyKeys()); err != nil {
			return err
		}
	}
	unsubscribe := ideas.Subscribe(warmOnPin(ctx, dash, log))
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Scheduler.Enabled {
		schedOpts := []scheduler.Option{
			scheduler.WithLocker(scheduler.NewRedisLocker(rdb), cfg.Scheduler.LockTTL),
			scheduler.WithLogger(log),
		}
		if pg != nil {
			schedOpts = append(schedOpts, scheduler.WithPurger(pg, cfg.Cache.PurgeInterval))
		}
		sched, err := scheduler.New(cfg.Scheduler.Cron, dash, ideas, schedOpts...)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(gctx) })
	}

	srv := server.New(cfg.Server, dash, ideas, m.Handler(), log)
	g.Go(func() error { return srv.Run(gctx) })

	log.WithFields(logrus.Fields{
		"providers": len(reg.Fetchers),
		"disabled":  reg.Disabled,
		"tiers":     store.Tiers(),
		"scheduler": cfg.Scheduler.Enabled,
	}).Info("ideahub started")
	return g.Wait()
}

// warmOnPin precomputes every tile in the background when an idea becomes
// pinned, so the first dashboard load is served from cache.
func warmOnPin(ctx context.Context, dash *dashboard.Service, log *logrus.Entry) func(ideastore.State) {
	return func(st ideastore.State) {
		if !st.Pinned {
			return
		}
		go func() {
			if _, err := dash.Tiles(ctx, dashboard.Request{Owner: st.Owner, Input: st.Input}, nil); err != nil {
				log.WithError(err).WithField("owner", st.Owner).Warn("warming pinned idea failed")
			}
		}()
	}
}
