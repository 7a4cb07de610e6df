package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/morph/internal/config"
	"github.com/leapstack-labs/morph/internal/engine"
	"github.com/leapstack-labs/morph/internal/state"
	"github.com/leapstack-labs/morph/pkg/adapter"
	"github.com/spf13/cobra"

	// Register the database adapters.
	_ "github.com/leapstack-labs/morph/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/morph/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/morph/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/morph/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/morph/pkg/adapters/sqlserver"
)

// needs selects what a command connects to.
type needs struct {
	mapping bool
	source  bool
	target  bool
	store   bool
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Mapping *config.Loaded
	Source  adapter.Adapter
	Target  adapter.Adapter
	Store   *state.SQLiteStore

	closers []func() error
}

// newCommandContext loads the mapping and opens what the command needs.
// The cleanup function must be called (typically via defer).
func newCommandContext(cmd *cobra.Command, n needs) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	cfg, err := GetConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	cc := &CommandContext{Cfg: cfg, Logger: GetLogger(ctx)}
	cleanup := func() {
		for i := len(cc.closers) - 1; i >= 0; i-- {
			_ = cc.closers[i]()
		}
	}

	if err := cc.open(ctx, n); err != nil {
		cleanup()
		return nil, nil, err
	}
	return cc, cleanup, nil
}

func (cc *CommandContext) open(ctx context.Context, n needs) error {
	var err error
	if n.mapping {
		if cc.Mapping, err = config.LoadMapping(cc.Cfg.Mapping, cc.Logger); err != nil {
			return err
		}
		if err := engine.Check(); err != nil {
			return err
		}
	}

	if n.source {
		if cc.Source, err = cc.connect(ctx, cc.Cfg.Source, adapter.RoleSource); err != nil {
			return err
		}
	}
	if n.target {
		if cc.Target, err = cc.connect(ctx, cc.Cfg.Target, adapter.RoleTarget); err != nil {
			return err
		}
	}
	if n.store {
		if cc.Store, err = openStore(cc.Cfg.StatePath, cc.Logger); err != nil {
			return err
		}
		cc.closers = append(cc.closers, cc.Store.Close)
	}
	return nil
}

func (cc *CommandContext) connect(ctx context.Context, db *config.DatabaseConfig, role adapter.Role) (adapter.Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("no %s database configured\nHint: add a %s section to morph.yaml", role, role)
	}
	if err := db.Validate(role); err != nil {
		return nil, err
	}
	a, err := adapter.NewAdapter(db.AdapterConfig(), role, cc.Logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, db.AdapterConfig()); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", role, err)
	}
	cc.closers = append(cc.closers, a.Close)
	cc.Logger.Debug("connected", "role", role, "type", db.Type)
	return a, nil
}

// Engine creates an engine over the opened databases.
func (cc *CommandContext) Engine() (*engine.Engine, error) {
	deriver, err := cc.Cfg.Deriver()
	if err != nil {
		return nil, err
	}
	ecfg := engine.Config{
		Family:      cc.Mapping.Family,
		Conversions: cc.Mapping.Conversions,
		Bindings:    cc.Mapping.Bindings,
		Source:      cc.Source,
		Target:      cc.Target,
		Deriver:     deriver,
		BatchSize:   cc.Cfg.BatchSize,
		Workers:     cc.Cfg.Workers,
		Mapping:     cc.Cfg.Mapping,
		Logger:      cc.Logger,
	}
	if cc.Store != nil {
		ecfg.Store = cc.Store
	}
	return engine.New(ecfg)
}

// openStore opens the run ledger, creating its directory if needed.
func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize state database: %w", err), store.Close())
	}
	return store, nil
}
