package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/atelier"
	"github.com/iksnae/studio-bridge/internal/urlbuilder"
)

// environment is what every command that talks to the remote system needs.
type environment struct {
	paths   internal.ConfigPaths
	cfg     *internal.Config
	client  *atelier.Client
	querier internal.Querier
	builder *urlbuilder.Builder
	closers []func() error
}

func loadEnvironment() (*environment, error) {
	paths, err := internal.GetConfigPaths(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	cfg, err := internal.LoadConfig(paths)
	if err != nil {
		return nil, err
	}
	if namespaceFlag != "" {
		cfg.Connection.Namespace = namespaceFlag
	}

	client, err := atelier.NewClient(atelier.ClientConfig{Connection: cfg.Connection})
	if err != nil {
		return nil, err
	}

	env := &environment{paths: paths, cfg: cfg, client: client, querier: client}

	// A local token ledger replaces the server's token service, e.g. for
	// offline demos against a recorded environment.
	if cfg.Token.Database != "" {
		db, err := internal.OpenDatabase(cfg.Token.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open token database: %w", err)
		}
		env.querier = internal.NewSQLQuerier(db)
		env.closers = append(env.closers, db.Close)
		internal.LogDebug("Minting tokens from %s", cfg.Token.Database)
	}

	env.builder = urlbuilder.New(env.querier,
		urlbuilder.WithTokenQuery(cfg.Token.Query, ""),
		urlbuilder.WithNamespace(cfg.Connection.Namespace),
	)
	return env, nil
}

// mirrorDir is where proxy documents of the namespace are mirrored.
func (e *environment) mirrorDir(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	host := strings.ReplaceAll(e.cfg.Connection.Host, ":", "_")
	return filepath.Join(base, "studio-bridge", host, strings.ToUpper(e.cfg.Connection.Namespace)), nil
}

func (e *environment) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			internal.LogWarn("Failed to close: %v", err)
		}
	}
}
