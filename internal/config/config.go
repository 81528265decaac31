package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
)

// Engine drivers.
const (
	DriverTypesense = "typesense"
	DriverRedis     = "redis"
)

// Database drivers.
const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Read preferences.
const (
	ReadLeaderOnly   = "leader_only"
	ReadFollowerOnly = "follower_only"
	ReadNearest      = "nearest"
)

// Tracker levels.
var LogLevels = []string{"debug", "info", "notice", "warning", "error", "critical", "alert", "emergency"}

// NodeErrorFields is the maximal set of node details the tracker may attach.
var NodeErrorFields = []string{"host", "port", "protocol", "role", "error_message", "error_code", "timestamp"}

// Config holds the indexsync configuration.
type Config struct {
	Env               string              `yaml:"env"`
	APIKey            string              `yaml:"api_key"`
	AutoUpdate        *bool               `yaml:"auto_update"`
	Engine            EngineConfig        `yaml:"engine"`
	ErrorTracking     ErrorTrackingConfig `yaml:"error_tracking"`
	IndexableEntities []string            `yaml:"indexable_entities"`
	Cluster           ClusterConfig       `yaml:"cluster"`
	Synonyms          []synonym.Synonym   `yaml:"synonyms"`
	Database          DatabaseConfig      `yaml:"database"`
	HTTP              HTTPConfig          `yaml:"http"`
	Logging           LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // zap level or syslog severity (default: determined by env)
}

// HTTPConfig holds admin server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig selects and tunes the search backend.
type EngineConfig struct {
	Driver               string   `yaml:"driver"` // typesense (default), redis
	ConnectionTimeoutSec int      `yaml:"connection_timeout_sec"`
	RetryBaseDelayMs     int      `yaml:"retry_base_delay_ms"`
	ImportRateLimit      float64  `yaml:"import_rate_limit"` // batches per second, 0 = unlimited
	SettleDelayMs        int      `yaml:"settle_delay_ms"`
	KeyPrefix            string   `yaml:"key_prefix"` // redis only
	Addrs                []string `yaml:"addrs"`      // redis only, defaults to node addresses
	Password             string   `yaml:"password"`   // redis only
}

// ErrorTrackingConfig controls failure reporting.
type ErrorTrackingConfig struct {
	Enabled         bool     `yaml:"enabled"`
	LogLevel        string   `yaml:"log_level"`
	TrackNodeErrors bool     `yaml:"track_node_errors"`
	NodeErrorFields []string `yaml:"node_error_fields"`
}

// ClusterConfig lists the engine nodes.
type ClusterConfig struct {
	Enabled          bool           `yaml:"enabled"`
	ReadPreference   string         `yaml:"read_preference"`
	ConsistencyLevel int            `yaml:"consistency_level"`
	Nodes            []cluster.Node `yaml:"nodes"`
}

// DatabaseConfig points at the relational store holding indexable entities.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres, sqlite (default)
	DSN    string `yaml:"dsn"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	cfg, err := LoadFile(findConfigPath(env))
	if err != nil {
		return Config{}, err
	}
	if cfg.Env == "" {
		cfg.Env = env
	}
	return cfg, nil
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = GetEnv()
	}
	if c.AutoUpdate == nil {
		on := true
		c.AutoUpdate = &on
	}
	if c.Engine.Driver == "" {
		c.Engine.Driver = DriverTypesense
	}
	if c.Engine.ConnectionTimeoutSec <= 0 {
		c.Engine.ConnectionTimeoutSec = 5
	}
	if c.Engine.RetryBaseDelayMs <= 0 {
		c.Engine.RetryBaseDelayMs = 1000
	}
	if c.Engine.SettleDelayMs <= 0 {
		c.Engine.SettleDelayMs = 1000
	}
	if c.Engine.KeyPrefix == "" {
		c.Engine.KeyPrefix = "indexsync:"
	}
	if c.ErrorTracking.LogLevel == "" {
		c.ErrorTracking.LogLevel = "error"
	}
	if c.Cluster.ReadPreference == "" {
		c.Cluster.ReadPreference = ReadNearest
	}
	if c.Cluster.ConsistencyLevel == 0 {
		c.Cluster.ConsistencyLevel = 1
	}
	for i := range c.Cluster.Nodes {
		n := &c.Cluster.Nodes[i]
		if n.Port == 0 {
			n.Port = 8108
		}
		if n.Protocol == "" {
			n.Protocol = "http"
		}
		if n.Role == "" {
			n.Role = cluster.RoleLeader
		}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DatabaseSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == DatabaseSQLite {
		c.Database.DSN = "file:indexsync.db"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("api_key is required")
	}
	switch c.Engine.Driver {
	case DriverTypesense, DriverRedis:
	default:
		return fmt.Errorf("engine.driver must be %q or %q, got %q", DriverTypesense, DriverRedis, c.Engine.Driver)
	}
	if c.Engine.ImportRateLimit < 0 {
		return fmt.Errorf("engine.import_rate_limit must not be negative")
	}
	if !slices.Contains(LogLevels, c.ErrorTracking.LogLevel) {
		return fmt.Errorf("error_tracking.log_level must be one of %s, got %q",
			strings.Join(LogLevels, ", "), c.ErrorTracking.LogLevel)
	}
	for _, f := range c.ErrorTracking.NodeErrorFields {
		if !slices.Contains(NodeErrorFields, f) {
			return fmt.Errorf("error_tracking.node_error_fields: unknown field %q", f)
		}
	}
	switch c.Cluster.ReadPreference {
	case ReadLeaderOnly, ReadFollowerOnly, ReadNearest:
	default:
		return fmt.Errorf("cluster.read_preference must be one of %s, %s, %s, got %q",
			ReadLeaderOnly, ReadFollowerOnly, ReadNearest, c.Cluster.ReadPreference)
	}
	if c.Cluster.ConsistencyLevel < 1 {
		return fmt.Errorf("cluster.consistency_level must be at least 1, got %d", c.Cluster.ConsistencyLevel)
	}
	if len(c.Cluster.Nodes) == 0 {
		return fmt.Errorf("cluster.nodes must list at least one node")
	}
	for i, n := range c.Cluster.Nodes {
		if strings.TrimSpace(n.Host) == "" {
			return fmt.Errorf("cluster.nodes[%d].host is required", i)
		}
		if n.Port <= 0 || n.Port > 65535 {
			return fmt.Errorf("cluster.nodes[%d].port must be between 1 and 65535, got %d", i, n.Port)
		}
		if n.Protocol != "http" && n.Protocol != "https" {
			return fmt.Errorf("cluster.nodes[%d].protocol must be http or https, got %q", i, n.Protocol)
		}
		if n.Role != cluster.RoleLeader && n.Role != cluster.RoleFollower {
			return fmt.Errorf("cluster.nodes[%d].role must be leader or follower, got %q", i, n.Role)
		}
	}
	for i, s := range c.Synonyms {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("synonyms[%d]: %w", i, err)
		}
	}
	switch c.Database.Driver {
	case DatabasePostgres, DatabaseSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DatabasePostgres, DatabaseSQLite, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	return nil
}

// AutoUpdateEnabled reports whether persistence events keep the index in step.
func (c *Config) AutoUpdateEnabled() bool {
	return c.AutoUpdate == nil || *c.AutoUpdate
}

// ActiveNodes returns the nodes in use. With clustering off only the first
// node is used and it always acts as leader.
func (c *Config) ActiveNodes() []cluster.Node {
	if len(c.Cluster.Nodes) == 0 {
		return nil
	}
	if !c.Cluster.Enabled {
		n := c.Cluster.Nodes[0]
		n.Role = cluster.RoleLeader
		return []cluster.Node{n}
	}
	return slices.Clone(c.Cluster.Nodes)
}

// RedisAddrs returns engine.addrs, or the active node addresses when unset.
func (c *Config) RedisAddrs() []string {
	if len(c.Engine.Addrs) > 0 {
		return c.Engine.Addrs
	}
	nodes := c.ActiveNodes()
	addrs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		addrs = append(addrs, n.Addr())
	}
	return addrs
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
