package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	go_ora "github.com/sijms/go-ora/v2"
	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.querybridge/querybridge.yaml"
)

// Connection types.
const (
	TypeMongoDB    = "mongodb"
	TypePostgreSQL = "postgresql"
	TypeOracle     = "oracle"
	TypeSQLite     = "sqlite"
)

// Config is the top-level configuration.
type Config struct {
	Version           int          `yaml:"version" toml:"version"`
	DefaultConnection string       `yaml:"default_connection,omitempty" toml:"default_connection"`
	Connections       []Connection `yaml:"connections" toml:"connections"`
	Server            ServerConfig `yaml:"server,omitempty" toml:"server"`
	Logging           LogConfig    `yaml:"logging,omitempty" toml:"logging"`
}

// Connection defines one named store.
type Connection struct {
	Name             string `yaml:"name" toml:"name"`
	Type             string `yaml:"type" toml:"type"` // mongodb, postgresql, oracle or sqlite
	ConnectionString string `yaml:"connection_string,omitempty" toml:"connection_string"`
	Host             string `yaml:"host,omitempty" toml:"host"`
	Port             int    `yaml:"port,omitempty" toml:"port"`
	Database         string `yaml:"database,omitempty" toml:"database"`
	Schema           string `yaml:"schema,omitempty" toml:"schema"`
	Username         string `yaml:"username,omitempty" toml:"username"`
	Password         string `yaml:"password,omitempty" toml:"password"`
	Path             string `yaml:"path,omitempty" toml:"path"` // sqlite file
	SSL              bool   `yaml:"ssl,omitempty" toml:"ssl"`
	ReadOnly         bool   `yaml:"read_only,omitempty" toml:"read_only"`
	MaxConnections   int    `yaml:"max_connections,omitempty" toml:"max_connections"` // default 10, max 50
}

// ServerConfig defines the HTTP tool surface.
type ServerConfig struct {
	Host string `yaml:"host,omitempty" toml:"host"`
	Port int    `yaml:"port,omitempty" toml:"port"` // default 8230
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty" toml:"level"`                   // debug, info, warn, error
	Directory     string `yaml:"directory,omitempty" toml:"directory"`           // default ~/.querybridge/logs/
	RetentionDays int    `yaml:"retention_days,omitempty" toml:"retention_days"` // default 30
}

// Load reads and parses the config file from the given path. Files ending
// in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the given path as YAML.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Connection returns the named connection, or the default one when name is
// empty.
func (c *Config) Connection(name string) (*Connection, bool) {
	if name == "" {
		name = c.DefaultConnection
	}
	for i := range c.Connections {
		if c.Connections[i].Name == name {
			return &c.Connections[i], true
		}
	}
	return nil, false
}

func (c *Config) applyDefaults() {
	for i := range c.Connections {
		conn := &c.Connections[i]
		if conn.MaxConnections == 0 {
			conn.MaxConnections = 10
		}
		if conn.MaxConnections > 50 {
			conn.MaxConnections = 50
		}
		switch conn.Type {
		case TypePostgreSQL:
			if conn.Port == 0 {
				conn.Port = 5432
			}
			if conn.Schema == "" {
				conn.Schema = "public"
			}
		case TypeOracle:
			if conn.Port == 0 {
				conn.Port = 1521
			}
			if conn.Schema == "" {
				conn.Schema = strings.ToUpper(conn.Username)
			}
		case TypeSQLite:
			conn.Path = ExpandHome(conn.Path)
		}
	}
	if c.DefaultConnection == "" && len(c.Connections) > 0 {
		c.DefaultConnection = c.Connections[0].Name
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8230
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = "~/.querybridge/logs/"
	}
	c.Logging.Directory = ExpandHome(c.Logging.Directory)
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
}

// Validate checks connection names, types and the fields each type needs.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, conn := range c.Connections {
		if conn.Name == "" {
			errs = append(errs, fmt.Errorf("connection %d: name is required", i))
			continue
		}
		if seen[conn.Name] {
			errs = append(errs, fmt.Errorf("connection %q: duplicate name", conn.Name))
		}
		seen[conn.Name] = true
		if err := conn.validate(); err != nil {
			errs = append(errs, fmt.Errorf("connection %q: %w", conn.Name, err))
		}
	}
	if c.DefaultConnection != "" && !seen[c.DefaultConnection] {
		errs = append(errs, fmt.Errorf("default connection %q is not defined", c.DefaultConnection))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

func (c *Connection) validate() error {
	switch c.Type {
	case TypeMongoDB:
		if c.ConnectionString == "" {
			return errors.New("connection_string is required")
		}
		if c.Database == "" {
			return errors.New("database is required")
		}
	case TypePostgreSQL, TypeOracle:
		if c.ConnectionString == "" && (c.Host == "" || c.Database == "") {
			return errors.New("connection_string or host and database are required")
		}
	case TypeSQLite:
		if c.Path == "" {
			return errors.New("path is required")
		}
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("unknown type %q", c.Type)
	}
	return nil
}

// DSN returns the driver connection string. An explicit connection_string
// wins over the individual fields.
func (c *Connection) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	switch c.Type {
	case TypePostgreSQL:
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
			c.Host, c.Port, c.Database, c.Username, quoteKeyword(c.Password))
		if c.SSL {
			return dsn + " sslmode=require"
		}
		return dsn + " sslmode=disable"
	case TypeOracle:
		var opts map[string]string
		if c.SSL {
			opts = map[string]string{"SSL": "enable"}
		}
		return go_ora.BuildUrl(c.Host, c.Port, c.Database, c.Username, c.Password, opts)
	case TypeSQLite:
		return c.Path
	}
	return ""
}

// quoteKeyword quotes a libpq keyword value when it contains spaces or
// quotes.
func quoteKeyword(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	for i := range c.Connections {
		conn := &c.Connections[i]
		var err error
		conn.Password, err = ResolveValue(conn.Password)
		if err != nil {
			return fmt.Errorf("connection %q password: %w", conn.Name, err)
		}
		conn.ConnectionString, err = ResolveValue(conn.ConnectionString)
		if err != nil {
			return fmt.Errorf("connection %q connection string: %w", conn.Name, err)
		}
	}
	return nil
}

// ResolveValue resolves a secret reference. Values that are not a reference
// pass through unchanged.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// Redacted returns a copy with passwords and connection strings masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Connections = make([]Connection, len(c.Connections))
	for i, conn := range c.Connections {
		if conn.Password != "" {
			conn.Password = "****"
		}
		if conn.ConnectionString != "" {
			conn.ConnectionString = redactURI(conn.ConnectionString)
		}
		out.Connections[i] = conn
	}
	return &out
}

var userinfoPattern = regexp.MustCompile(`://([^:/@]+):[^@]*@`)

func redactURI(s string) string {
	return userinfoPattern.ReplaceAllString(s, "://$1:****@")
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
