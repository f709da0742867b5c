// pkg/warehouse/client.go
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/connector"
)

// Row is a single result row keyed by column name.
type Row map[string]interface{}

// String returns the row value for a column as a string, or "" when the
// column is absent or NULL.
func (r Row) String(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ResultSet holds the full logical result of a query. A non-nil ResultSet
// with zero rows means the query ran and produced nothing; a failed query
// never produces a ResultSet. This keeps "no rows" and "could not run"
// distinguishable at every call site.
type ResultSet struct {
	Rows []Row
}

// Len returns the number of rows
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}

// Empty reports whether the query produced zero rows
func (rs *ResultSet) Empty() bool {
	return len(rs.Rows) == 0
}

// Strings collects one column across all rows, skipping NULLs.
func (rs *ResultSet) Strings(col string) []string {
	out := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		if v := row.String(col); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Client executes read queries against a database and accumulates results in
// fixed-size pages to bound per-fetch memory on large cohorts.
type Client struct {
	conn     connector.DatabaseConnector
	pageSize int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClient creates a read client for the given connector
func NewClient(conn connector.DatabaseConnector, pageSize int, timeout time.Duration) *Client {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Client{
		conn:     conn,
		pageSize: pageSize,
		timeout:  timeout,
		logger:   zap.L().Named("warehouse-client"),
	}
}

// RunQuery executes a read query on a dedicated connection, streaming rows in
// pages of pageSize while accumulating the full logical result. The
// connection is released on every exit path. Failures are logged and returned;
// callers receive no ResultSet for a query that could not run.
func (c *Client) RunQuery(ctx context.Context, query string) (*ResultSet, error) {
	start := time.Now()

	dbConn, err := c.conn.DB().Conn(ctx)
	if err != nil {
		c.logger.Error("Failed to acquire connection", zap.Error(err))
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer dbConn.Close()

	queryCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("Executing query", zap.String("query", query))

	rows, err := dbConn.QueryContext(queryCtx, query)
	if err != nil {
		c.logger.Error("Query failed", zap.Error(err))
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	rs := &ResultSet{Rows: make([]Row, 0)}
	pageCount := 0
	pageRows := 0

	for rows.Next() {
		row := Row{}
		if err := sqlx.MapScan(rows, row); err != nil {
			c.logger.Error("Failed to scan row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rs.Rows = append(rs.Rows, row)

		pageRows++
		if pageRows == c.pageSize {
			pageCount++
			c.logger.Info("Processed page",
				zap.Int("page", pageCount),
				zap.Int("records", pageRows))
			pageRows = 0
		}
	}

	if err := rows.Err(); err != nil {
		c.logger.Error("Error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if pageRows > 0 {
		pageCount++
		c.logger.Info("Processed page",
			zap.Int("page", pageCount),
			zap.Int("records", pageRows))
	}

	c.logger.Info("Query complete",
		zap.Int("rows", rs.Len()),
		zap.Duration("duration", time.Since(start)))

	return rs, nil
}
