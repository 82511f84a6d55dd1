package neo4jdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type Config struct {
	URI         string
	User        string
	Password    string
	Database    string
	Timeout     time.Duration
	MaxPoolSize int
}

func ConfigFromEnv() Config {
	return Config{
		URI:         envutil.String("NEO4J_URI", ""),
		User:        envutil.String("NEO4J_USER", "neo4j"),
		Password:    envutil.String("NEO4J_PASSWORD", ""),
		Database:    envutil.String("NEO4J_DATABASE", ""),
		Timeout:     envutil.Seconds("NEO4J_TIMEOUT_SECONDS", 10*time.Second),
		MaxPoolSize: envutil.Int("NEO4J_MAX_POOL_SIZE", 50),
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 50
	}
	return c
}

// Client is a connected driver bound to one database. A nil *Client is
// valid and reports Enabled() == false.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
}

// NewFromEnv connects when NEO4J_URI is set and returns (nil, nil) otherwise.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	cfg := ConfigFromEnv()
	if cfg.URI == "" {
		return nil, nil
	}
	return Connect(context.Background(), log, cfg)
}

// Connect opens the driver and verifies connectivity within cfg.Timeout.
func Connect(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}
	vctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(vctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity %s: %w", cfg.URI, err)
	}
	log.Info("neo4j connected", "uri", cfg.URI, "database", cfg.Database)
	return &Client{driver: driver, database: cfg.Database, log: log.With("component", "neo4j")}, nil
}

func (c *Client) Enabled() bool { return c != nil && c.driver != nil }

// Write runs stmts in order inside one managed write transaction, all with
// the same params. The driver retries the whole function on transient errors.
func (c *Client) Write(ctx context.Context, params map[string]any, stmts ...string) error {
	if !c.Enabled() || len(stmts) == 0 {
		return nil
	}
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range stmts {
			res, err := tx.Run(ctx, stmt, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (c *Client) Close(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	return err
}
