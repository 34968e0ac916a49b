package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/mcuadros/go-defaults"

	"github.com/warriorguo/mediagraph/store"
	"github.com/warriorguo/mediagraph/types"
)

var (
	_ store.Store = &pgStore{}

	tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

	validSSLModes = map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
)

// Config holds PostgreSQL connection configuration
type Config struct {
	Host     string `default:"localhost"`
	Port     int    `default:"5432"`
	User     string `default:"postgres"`
	Password string `default:"postgres"`
	Database string `default:"mediagraph"`
	SSLMode  string `default:"disable"` // disable, require, verify-ca, verify-full
	// Table is created on first use.
	Table string `default:"mediagraph_store"`
}

func DefaultConfig() *Config {
	config := &Config{}
	defaults.SetDefaults(config)
	return config
}

// FromOptions fills a Config from the engine options, keeping defaults for
// whatever is left empty.
func FromOptions(opts *types.PostgresConfig) *Config {
	config := DefaultConfig()
	if opts == nil {
		return config
	}
	if opts.Host != "" {
		config.Host = opts.Host
	}
	if opts.Port != 0 {
		config.Port = opts.Port
	}
	if opts.User != "" {
		config.User = opts.User
	}
	if opts.Password != "" {
		config.Password = opts.Password
	}
	if opts.Database != "" {
		config.Database = opts.Database
	}
	if opts.SSLMode != "" {
		config.SSLMode = opts.SSLMode
	}
	return config
}

type pgStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(config *Config) (store.Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open postgres connection")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "failed to ping postgres")
	}

	s := &pgStore{db: db, table: config.Table}
	if err := s.initTable(context.Background()); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "failed to initialize table")
	}
	return s, nil
}

// NewPostgresStoreWithDB uses an existing connection. The store does not
// take ownership of db unless Close is called.
func NewPostgresStoreWithDB(db *sql.DB, table string) (store.Store, error) {
	if db == nil {
		return nil, errors.BadRequestf("db is nil")
	}
	if table == "" {
		table = DefaultConfig().Table
	}
	if !tableNamePattern.MatchString(table) {
		return nil, errors.NotValidf("table name %q", table)
	}

	s := &pgStore{db: db, table: table}
	if err := s.initTable(context.Background()); err != nil {
		return nil, errors.Annotatef(err, "failed to initialize table")
	}
	return s, nil
}

func (p *pgStore) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			prefix VARCHAR(255) NOT NULL,
			key VARCHAR(255) NOT NULL,
			value BYTEA,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (prefix, key)
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_prefix ON %[1]s(prefix);
	`, p.table)

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return errors.Annotatef(err, "failed to create table %s", p.table)
	}
	return nil
}

func (p *pgStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE prefix = $1 AND key = $2`, p.table)

	var value []byte
	err := p.db.QueryRowContext(ctx, query, prefix, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Annotatef(err, "failed to get prefix=%s, key=%s", prefix, key)
	}
	return value, nil
}

func (p *pgStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (prefix, key, value, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (prefix, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
	`, p.table)

	if _, err := p.db.ExecContext(ctx, query, prefix, key, value); err != nil {
		return errors.Annotatef(err, "failed to set prefix=%s, key=%s", prefix, key)
	}
	return nil
}

func (p *pgStore) Remove(ctx context.Context, prefix, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE prefix = $1 AND key = $2`, p.table)

	if _, err := p.db.ExecContext(ctx, query, prefix, key); err != nil {
		return errors.Annotatef(err, "failed to remove prefix=%s, key=%s", prefix, key)
	}
	return nil
}

func (p *pgStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	query := fmt.Sprintf(`SELECT key FROM %s WHERE prefix = $1 ORDER BY key`, p.table)

	rows, err := p.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return errors.Annotatef(err, "failed to list prefix=%s", prefix)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return errors.Annotatef(err, "failed to scan key")
		}
		if !iterator(key) {
			break
		}
	}
	return errors.Trace(rows.Err())
}

func (p *pgStore) Close() error {
	if p.db == nil {
		return nil
	}
	return errors.Trace(p.db.Close())
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Validate fills an empty SSLMode and Table and rejects everything else
// that would make a broken DSN or unsafe SQL.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.NotValidf("empty host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.NotValidf("port %d", c.Port)
	}
	if c.User == "" {
		return errors.NotValidf("empty user")
	}
	if c.Database == "" {
		return errors.NotValidf("empty database")
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if !validSSLModes[c.SSLMode] {
		return errors.NotValidf("sslmode %s", c.SSLMode)
	}
	if c.Table == "" {
		c.Table = DefaultConfig().Table
	}
	if !tableNamePattern.MatchString(c.Table) {
		return errors.NotValidf("table name %q", c.Table)
	}
	return nil
}

// ParseDSN parses "host=localhost port=5432 user=postgres password=secret
// dbname=mediagraph sslmode=disable". Unknown keys are ignored.
func ParseDSN(dsn string) (*Config, error) {
	config := DefaultConfig()

	for _, part := range strings.Fields(dsn) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}

		switch key {
		case "host":
			config.Host = value
		case "port":
			var port int
			if _, err := fmt.Sscanf(value, "%d", &port); err != nil {
				return nil, errors.NotValidf("port %q", value)
			}
			config.Port = port
		case "user":
			config.User = value
		case "password":
			config.Password = value
		case "dbname":
			config.Database = value
		case "sslmode":
			config.SSLMode = value
		}
	}

	return config, config.Validate()
}
