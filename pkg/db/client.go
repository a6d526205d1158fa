package db

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/angelmondragon/packfinderz-field/pkg/config"
	"github.com/angelmondragon/packfinderz-field/pkg/db/models"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the device-local GORM connection.
type Client struct {
	conn *gorm.DB
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the on-device sqlite database used for durable queue storage.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	dsn := cfg.Path
	if cfg.InMemory {
		dsn = "file::memory:?cache=shared"
	}
	if dsn == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if cfg.BusyTimeout > 0 && !cfg.InMemory {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d", dsn, cfg.BusyTimeout.Milliseconds())
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	// Single local writer; sqlite handles its own file locking.
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&models.QueueDocument{}); err != nil {
		return nil, fmt.Errorf("migrating queue storage: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "queue storage opened")
	}

	return &Client{conn: conn}, nil
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
