// Package config loads the service configuration from a JSON file with
// environment variable substitution.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/stylist.json"

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig    `json:"server"`
	Embedding  ProviderConfig  `json:"embedding"`
	Generation ProviderConfig  `json:"generation"`
	Index      IndexConfig     `json:"index"`
	Retrieval  RetrievalConfig `json:"retrieval"`
	Ingest     IngestConfig    `json:"ingest"`
	Catalog    CatalogConfig   `json:"catalog"`
	Recommend  RecommendConfig `json:"recommend"`
	Database   DatabaseConfig  `json:"database"`
	Cache      CacheConfig     `json:"cache"`
	Gateway    GatewayConfig   `json:"gateway"`
}

type ServerConfig struct {
	Port                  int    `json:"port"`
	LogLevel              string `json:"log_level"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// RequestTimeout is the server-side deadline for one request.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// ProviderConfig selects an embedding or generation backend.
type ProviderConfig struct {
	Provider string `json:"provider"`
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
}

type IndexConfig struct {
	// Backend is "qdrant" or "memory". The memory index lives only as long
	// as the process, so it serves tests and ingest dry runs.
	Backend string `json:"backend"`
	Name    string `json:"name"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type RetrievalConfig struct {
	TopK int `json:"top_k"`
}

type IngestConfig struct {
	BatchSize int `json:"batch_size"`
}

type CatalogConfig struct {
	// Source is "grpc" or "postgres".
	Source  string `json:"source"`
	Address string `json:"address"`
}

type RecommendConfig struct {
	GenerateOnEmpty bool `json:"generate_on_empty"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type CacheConfig struct {
	TTLSeconds int `json:"ttl_seconds"`
}

// TTL is the embedding cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `json:"slack"`
	Discord DiscordGatewayConfig `json:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file, substitutes environment variable references
// and fills unset fields with defaults. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "read config "+path, err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "parse config", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "debug"
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		c.Server.RequestTimeoutSeconds = 20
	}
	c.Embedding.Provider = strings.ToUpper(strings.TrimSpace(c.Embedding.Provider))
	c.Generation.Provider = strings.ToUpper(strings.TrimSpace(c.Generation.Provider))
	if c.Generation.Provider == "" {
		c.Generation.Provider = "GEMINI"
	}
	if c.Index.Backend == "" {
		c.Index.Backend = "qdrant"
	}
	if c.Index.Name == "" {
		c.Index.Name = "online-boutique-products"
	}
	if c.Index.Host == "" {
		c.Index.Host = "localhost"
	}
	if c.Index.Port == 0 {
		c.Index.Port = 6334
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 100
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = "grpc"
	}
	if c.Catalog.Address == "" {
		c.Catalog.Address = "localhost:3550"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 24 * 60 * 60
	}
}

// Validate reports every invalid setting the server depends on at once. The
// returned error matches apperr.ErrConfiguration.
func (c *Config) Validate() error {
	errs := c.ingestErrors()
	if c.Index.Backend == "memory" {
		errs = append(errs, errors.New("index.backend memory is never populated in the server; use qdrant"))
	}
	switch c.Generation.Provider {
	case "OLLAMA":
	case "GEMINI":
		if c.Generation.APIKey == "" {
			errs = append(errs, errors.New("generation.api_key is required for GEMINI"))
		}
	default:
		errs = append(errs, fmt.Errorf("generation.provider %q is not supported", c.Generation.Provider))
	}
	if c.Gateway.Slack.Enabled && (c.Gateway.Slack.BotToken == "" || c.Gateway.Slack.AppToken == "") {
		errs = append(errs, errors.New("gateway.slack requires bot_token and app_token"))
	}
	if c.Gateway.Discord.Enabled && c.Gateway.Discord.BotToken == "" {
		errs = append(errs, errors.New("gateway.discord requires bot_token"))
	}
	return joinConfigErrors(errs)
}

// ValidateIngest checks only what an ingestion run needs: the embedding
// provider, the index and the catalog source.
func (c *Config) ValidateIngest() error {
	return joinConfigErrors(c.ingestErrors())
}

func (c *Config) ingestErrors() []error {
	var errs []error
	switch c.Embedding.Provider {
	case "OLLAMA":
	case "GEMINI":
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding.api_key is required for GEMINI"))
		}
	case "":
		errs = append(errs, errors.New("embedding.provider is required (OLLAMA or GEMINI)"))
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider))
	}
	switch c.Index.Backend {
	case "qdrant", "memory":
	default:
		errs = append(errs, fmt.Errorf("index.backend %q is not supported", c.Index.Backend))
	}
	switch c.Catalog.Source {
	case "grpc":
	case "postgres":
		if c.Database.Postgres.DSN == "" {
			errs = append(errs, errors.New("catalog.source postgres requires database.postgres.dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.source %q is not supported", c.Catalog.Source))
	}
	return errs
}

func joinConfigErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return apperr.Wrap(apperr.ErrConfiguration, "validate config", errors.Join(errs...))
}
