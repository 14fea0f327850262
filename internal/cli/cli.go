// Package cli implements the stagetower command-line interface.
//
// Commands:
//   - inspect: summarize a report (stages, progress, sort histograms)
//   - graph: render the stage graph as DOT, SVG or JSON
//   - partitions: per-partition channel counters of one stage
//   - browse: interactive stage browser
//   - serve: run the JSON API
//   - cache: manage the local analysis cache
//
// Reports are read from a file argument, or from stdin when the argument is
// "-". All commands accept --verbose and --config.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stagetower/internal/config"
	"github.com/matzehuels/stagetower/pkg/buildinfo"
	"github.com/matzehuels/stagetower/pkg/cache"
	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/pipeline"
	"github.com/matzehuels/stagetower/pkg/stages"
)

const appName = "stagetower"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds state shared by all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with every subcommand registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "stagetower inspects multi-stage query reports",
		Long:         `stagetower reads the stage report of a multi-stage query and summarizes it: stage progress, sort-merge histograms, per-partition counters and the stage graph.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/stagetower/config.toml)")

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.partitionsCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads the config file once. A log_level of "debug" in the
// file only raises verbosity; --verbose still wins.
func (c *CLI) loadConfig() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil && lvl < c.Logger.GetLevel() {
		c.Logger.SetLevel(lvl)
	}
	c.cfg = cfg
	return nil
}

func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// newRunner creates a pipeline runner over the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, c.config().Cache, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if prefix := c.config().Cache.Prefix; prefix != "" {
		keyer = cache.NewScopedKeyer(nil, prefix)
	}
	return pipeline.NewRunner(ch, keyer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{URL: cfg.RedisURL})
	default:
		dir, err := cfg.CacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// openReport reads a report from path, or from stdin when path is "-".
func openReport(cmd *cobra.Command, path string) (*stages.Report, error) {
	if path == "-" {
		return reportio.ReadReport(cmd.InOrStdin())
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("report %s: %w", path, err)
	}
	return reportio.ImportReport(path)
}

// parseFormats splits a comma-separated format list.
func parseFormats(s string) []string {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}
