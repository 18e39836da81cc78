// Package snowflake runs the warehouse side of a setup run over database/sql.
package snowflake

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/snowflakedb/gosnowflake"
)

const (
	AuthPassword = "PASSWORD"
	AuthKeyPair  = "KEY_PAIR"
)

// Options configures New.
type Options struct {
	Account        string
	Username       string
	AuthMethod     string
	Password       string
	PrivateKeyPath string
	Role           string
	Warehouse      string
}

// Row is one result row keyed by lower-cased column name.
type Row map[string]string

// QueryError is a failed statement. SQLState is the ANSI state Snowflake
// reported, such as 42710 for an object that already exists.
type QueryError struct {
	State string
	Err   error
}

func (e *QueryError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("snowflake query failed: %v", e.Err)
	}
	return fmt.Sprintf("snowflake query failed (sqlState %s): %v", e.State, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) SQLState() string { return e.State }

// Client executes statements against one Snowflake connection pool.
type Client struct {
	db   *sql.DB
	exec func(ctx context.Context, stmt string) ([]Row, error)
}

// New opens a connection pool. No network traffic happens until the first
// statement runs.
func New(opts Options) (*Client, error) {
	cfg := &gosnowflake.Config{
		Account:   opts.Account,
		User:      opts.Username,
		Role:      opts.Role,
		Warehouse: opts.Warehouse,
	}

	switch opts.AuthMethod {
	case AuthPassword, "":
		cfg.Authenticator = gosnowflake.AuthTypeSnowflake
		cfg.Password = opts.Password
	case AuthKeyPair:
		key, err := loadPrivateKey(opts.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		cfg.Authenticator = gosnowflake.AuthTypeJwt
		cfg.PrivateKey = key
	default:
		return nil, fmt.Errorf("unsupported authentication method: %s", opts.AuthMethod)
	}

	dsn, err := gosnowflake.DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build snowflake connection string: %w", err)
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}

	c := &Client{db: db}
	c.exec = c.query
	return c, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("private key %s is not PEM encoded", path)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key %s is not an RSA key", path)
	}
	return key, nil
}

// Execute runs one statement and returns every row it produced.
func (c *Client) Execute(ctx context.Context, stmt string) ([]Row, error) {
	return c.exec(ctx, stmt)
}

func (c *Client) query(ctx context.Context, stmt string) ([]Row, error) {
	rows, err := c.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, wrapQueryError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapQueryError(err)
	}

	var out []Row
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[strings.ToLower(col)] = values[i].String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err)
	}
	return out, nil
}

func wrapQueryError(err error) error {
	qe := &QueryError{Err: err}
	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) {
		qe.State = sfErr.SQLState
	}
	return qe
}

// Ping verifies the credentials by running a trivial statement.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "SELECT CURRENT_VERSION()")
	return err
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
