package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Config 控制 Neo4j 连接参数。
type Config struct {
	URI            string
	Username       string
	Password       string
	Database       string
	MaxPoolSize    int
	ConnectTimeout time.Duration
}

// Runner 是写入器依赖的最小执行接口。
type Runner interface {
	RunWrite(ctx context.Context, query string, params map[string]any) error
	RunRaw(ctx context.Context, query string, params map[string]any) error
}

// Client 封装 Neo4j Driver。
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewClient 创建驱动并校验连通性。
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j uri 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""), func(c *neo4j.Config) {
		if cfg.MaxPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
		}
		if cfg.ConnectTimeout > 0 {
			c.SocketConnectTimeout = cfg.ConnectTimeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("创建 neo4j driver 失败: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j 无法连通: %w", err)
	}
	return &Client{driver: driver, database: cfg.Database, logger: logger.Named("neo4j")}, nil
}

// Close 关闭驱动。
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

// RunWrite 在托管写事务中执行语句，失败时驱动自动重试可重试错误。
func (c *Client) RunWrite(ctx context.Context, query string, params map[string]any) error {
	res, err := neo4j.ExecuteQuery(ctx, c.driver, query, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
		neo4j.ExecuteQueryWithWritersRouting())
	if err != nil {
		return fmt.Errorf("执行写入失败: %w", err)
	}
	counters := res.Summary.Counters()
	c.logger.Debug("neo4j write",
		zap.Int("nodes_created", counters.NodesCreated()),
		zap.Int("nodes_deleted", counters.NodesDeleted()),
		zap.Int("properties_set", counters.PropertiesSet()))
	return nil
}

// RunRaw 以自动提交方式执行语句，用于 schema 变更。
func (c *Client) RunRaw(ctx context.Context, query string, params map[string]any) error {
	sess := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database, AccessMode: neo4j.AccessModeWrite})
	defer sess.Close(ctx)
	res, err := sess.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("执行语句失败: %w", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return fmt.Errorf("执行语句失败: %w", err)
	}
	return nil
}
