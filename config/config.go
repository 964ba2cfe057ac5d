// Package config loads the YAML description of a statement to render for a
// dialect, together with the database it can be executed against.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"github.com/syssam/sqldialect/dialect"
	"github.com/syssam/sqldialect/dialect/sql"
)

// Config describes a statement and where to run it.
type Config struct {
	Dialect       string        `yaml:"dialect"`
	Driver        string        `yaml:"driver"`
	DSN           string        `yaml:"dsn"`
	Table         string        `yaml:"table"`
	Columns       []string      `yaml:"columns"`
	Where         []Condition   `yaml:"where"`
	OrderBy       []string      `yaml:"order_by"`
	Limit         *int64        `yaml:"limit"`
	Offset        *int64        `yaml:"offset"`
	Rows          [][]any       `yaml:"rows"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// Condition is a single predicate of the WHERE clause.
type Condition struct {
	Column string `yaml:"column"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value"`
}

// Error is returned for invalid configuration values.
type Error struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("config: invalid %q (value: %v): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("config: invalid %q: %s", e.Field, e.Message)
}

// NewError creates a new Error.
func NewError(field string, value any, message string) *Error {
	return &Error{Field: field, Value: value, Message: message}
}

// IsError returns true if the error is a configuration Error.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Option configures a Config after it was read.
type Option func(*Config) error

// WithDialect overrides the dialect.
func WithDialect(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return NewError("dialect", nil, "cannot be empty")
		}
		c.Dialect = name
		return nil
	}
}

// WithDSN overrides the data source name.
func WithDSN(dsn string) Option {
	return func(c *Config) error {
		c.DSN = dsn
		return nil
	}
}

// WithLimit overrides the row limit.
func WithLimit(n int64) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewError("limit", n, "must not be negative")
		}
		c.Limit = &n
		return nil
	}
}

// WithOffset overrides the row offset.
func WithOffset(n int64) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewError("offset", n, "must not be negative")
		}
		c.Offset = &n
		return nil
	}
}

// Load reads the file at path and applies the options.
func Load(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data), opts...)
}

// Parse decodes a YAML document, applies the options and validates the result.
// Unknown fields are rejected.
func Parse(r io.Reader, opts ...Option) (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	// Credentials usually live in the environment, e.g. dsn: ${DATABASE_URL}.
	c.DSN = os.ExpandEnv(c.DSN)
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	d, err := dialect.ByName(c.Dialect)
	if err != nil {
		return NewError("dialect", c.Dialect, err.Error())
	}
	if c.Table == "" {
		return NewError("table", nil, "cannot be empty")
	}
	switch {
	case c.Limit != nil && *c.Limit < 0:
		return NewError("limit", *c.Limit, "must not be negative")
	case c.Offset != nil && *c.Offset < 0:
		return NewError("offset", *c.Offset, "must not be negative")
	case c.Offset != nil && c.Limit == nil:
		return NewError("offset", *c.Offset, "requires a limit")
	}
	for i, cond := range c.Where {
		if _, err := cond.Predicate(); err != nil {
			return NewError(fmt.Sprintf("where[%d]", i), cond.Op, err.Error())
		}
	}
	if c.Driver != "" {
		dd, err := dialect.ByName(c.Driver)
		if err != nil || dd.Name() != d.Name() {
			return NewError("driver", c.Driver, fmt.Sprintf("not a %s driver", d.Name()))
		}
	}
	if len(c.Rows) > 0 && len(c.Columns) == 0 {
		return NewError("rows", len(c.Rows), "require columns")
	}
	return validateDSN(d.Name(), c.DSN)
}

// validateDSN checks the DSN syntax of the engines with a known driver.
func validateDSN(name, dsn string) error {
	if dsn == "" {
		return nil
	}
	switch name {
	case dialect.MySQL:
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return NewError("dsn", nil, err.Error())
		}
	case dialect.Postgres:
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if _, err := pq.ParseURL(dsn); err != nil {
				return NewError("dsn", nil, err.Error())
			}
		}
	}
	return nil
}

// SQLDialect resolves the configured dialect.
func (c *Config) SQLDialect() (dialect.Dialect, error) {
	return dialect.ByName(c.Dialect)
}

// DriverName returns the database/sql driver name of the dialect, or the
// configured driver if set.
func (c *Config) DriverName() (string, error) {
	d, err := c.SQLDialect()
	if err != nil {
		return "", err
	}
	if c.Driver != "" {
		return c.Driver, nil
	}
	switch d.Name() {
	case dialect.Postgres, dialect.MySQL, dialect.SQLite:
		return d.Name(), nil
	default:
		return "", NewError("dialect", d.Name(), "no database driver is registered for this dialect")
	}
}

// Selector builds the configured SELECT statement.
func (c *Config) Selector() (*sql.Selector, error) {
	d, err := c.SQLDialect()
	if err != nil {
		return nil, err
	}
	s := sql.For(d).Select(c.Columns...).From(c.Table).OrderBy(c.OrderBy...)
	for _, cond := range c.Where {
		p, err := cond.Predicate()
		if err != nil {
			return nil, err
		}
		s.Where(p)
	}
	if c.Limit != nil {
		s.Limit(*c.Limit)
	}
	if c.Offset != nil {
		s.Offset(*c.Offset)
	}
	return s, nil
}

// Insert builds the configured INSERT statement, or returns nil if no rows
// are configured.
func (c *Config) Insert() (*sql.InsertBuilder, error) {
	if len(c.Rows) == 0 {
		return nil, nil
	}
	d, err := c.SQLDialect()
	if err != nil {
		return nil, err
	}
	i := sql.For(d).Insert(c.Table).Columns(c.Columns...)
	for _, row := range c.Rows {
		i.Values(row...)
	}
	return i, nil
}

// Predicate returns the predicate of the condition.
func (c Condition) Predicate() (*sql.Predicate, error) {
	if c.Column == "" {
		return nil, errors.New("column cannot be empty")
	}
	op := strings.ToLower(c.Op)
	switch op {
	case "", "eq", "=":
		return sql.EQ(c.Column, c.Value), nil
	case "neq", "<>", "!=":
		return sql.NEQ(c.Column, c.Value), nil
	case "gt", ">":
		return sql.GT(c.Column, c.Value), nil
	case "gte", ">=":
		return sql.GTE(c.Column, c.Value), nil
	case "lt", "<":
		return sql.LT(c.Column, c.Value), nil
	case "lte", "<=":
		return sql.LTE(c.Column, c.Value), nil
	case "in":
		vs, ok := c.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("in expects a list, got %T", c.Value)
		}
		return sql.In(c.Column, vs...), nil
	case "is_null":
		return sql.IsNull(c.Column), nil
	case "not_null":
		return sql.NotNull(c.Column), nil
	case "prefix", "contains":
		s, ok := c.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%s expects a string, got %T", c.Op, c.Value)
		}
		if op == "prefix" {
			return sql.HasPrefix(c.Column, s), nil
		}
		return sql.Contains(c.Column, s), nil
	default:
		return nil, fmt.Errorf("unknown operator %q", c.Op)
	}
}
