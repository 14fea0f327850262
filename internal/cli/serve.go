package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stagetower/internal/config"
	"github.com/matzehuels/stagetower/internal/server"
	"github.com/matzehuels/stagetower/pkg/store"
)

type serveOpts struct {
	addr     string
	cache    string
	redisURL string
	store    string
	mongoURI string
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		Long: `Run the stagetower JSON API. Reports are uploaded with POST /api/v1/reports
and analyzed on request. Flags override the [server], [cache] and [store]
sections of the config file.`,
		Example: `  stagetower serve --addr :9090
  stagetower serve --store mongo --mongo-uri mongodb://localhost:27017 --cache redis --redis-url redis://localhost:6379/0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "cache backend: none, file or redis")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "redis URL for the redis cache backend")
	cmd.Flags().StringVar(&opts.store, "store", "", "report store: memory or mongo")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB URI for the mongo store")
	return cmd
}

// applyServeFlags overlays non-empty flag values on cfg.
func applyServeFlags(cfg config.Config, opts serveOpts) (*config.Config, error) {
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.cache != "" {
		cfg.Cache.Backend = opts.cache
	}
	if opts.redisURL != "" {
		cfg.Cache.RedisURL = opts.redisURL
	}
	if opts.store != "" {
		cfg.Store.Backend = opts.store
	}
	if opts.mongoURI != "" {
		cfg.Store.MongoURI = opts.mongoURI
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *CLI) runServe(ctx context.Context, cmd *cobra.Command, opts serveOpts) error {
	cfg, err := applyServeFlags(*c.config(), opts)
	if err != nil {
		return err
	}
	c.cfg = cfg

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return err
	}
	defer runner.Close()

	c.Logger.Info("starting server",
		"store", cfg.Store.Backend,
		"cache", cfg.Cache.Backend)

	srv := server.New(server.Options{
		Store:          st,
		Runner:         runner,
		Logger:         c.Logger,
		MaxReportBytes: cfg.Server.MaxReportBytes,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr, server.Timeouts{
		Read:     cfg.Server.ReadTimeout.Duration,
		Write:    cfg.Server.WriteTimeout.Duration,
		Shutdown: cfg.Server.ShutdownTimeout.Duration,
	})
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreMongo:
		st, err := store.NewMongoStore(ctx, store.MongoOptions{
			URI:        cfg.MongoURI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("open report store: %w", err)
		}
		return st, nil
	default:
		return store.NewMemoryStore(), nil
	}
}
