package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"tipnet/adapters/postgres"
	"tipnet/app"
	"tipnet/internal"
	"tipnet/internal/api"
	"tipnet/internal/config"
	apperrors "tipnet/internal/errors"
	"tipnet/internal/migration"
	"tipnet/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; nil when persistence is disabled
	DB *sqlx.DB

	NetworkRepo ports.NetworkRepository
	Discovery   *app.DiscoveryService
	Handler     *api.NetworkHandler
}

// New creates a container without persistence. Call InitWithDatabase to
// enable stored runs.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	c := &Container{Config: cfg, Logger: logger}
	c.initServices()
	return c, nil
}

// Connect opens the configured database, applies migrations and switches the
// services to stored runs.
func (c *Container) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Config.Database.ConnTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return apperrors.DatabaseError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return apperrors.Wrap(err, "database migration failed")
	}
	return c.InitWithDatabase(db)
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db
	c.NetworkRepo = postgres.NewNetworkRepository(db)
	c.initServices()
	c.Logger.Info("persistence enabled")
	return nil
}

func (c *Container) initServices() {
	c.Discovery = app.NewDiscoveryService(c.NetworkRepo, nil, c.Logger)
	c.Handler = api.NewNetworkHandler(c.Discovery, c.Config.Discovery, c.Config.Oracle, c.Config.Server.MaxUploadMB, c.Logger)
}

// Close releases the database connection, if any.
func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
