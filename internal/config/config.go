// Package config loads duofeed settings from defaults, an optional YAML file,
// a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/duofeed/internal/feed"
	"github.com/gauthierbraillon/duofeed/internal/partition"
)

const (
	configPathEnv     = "DUOFEED_CONFIG"
	configDirEnv      = "DUOFEED_CONFIG_DIR"
	logLevelEnv       = "DUOFEED_LOG_LEVEL"
	fixtureEnv        = "DUOFEED_FIXTURE"
	layoutPolicyEnv   = "DUOFEED_LAYOUT_POLICY"
	gmailClientIDEnv  = "DUOFEED_GMAIL_CLIENT_ID"
	gmailSecretEnv    = "DUOFEED_GMAIL_CLIENT_SECRET" // #nosec G101 -- environment variable name, not a credential
	gmailURLEnv       = "DUOFEED_GMAIL_URL"
	gmailMaxEnv       = "DUOFEED_GMAIL_MAX_RESULTS"
	groupMeTokenEnv   = "GROUPME_ACCESS_TOKEN" // #nosec G101 -- environment variable name, not a credential
	groupMeURLEnv     = "DUOFEED_GROUPME_URL"
	serverAddrEnv     = "DUOFEED_SERVER_ADDR"
	defaultEnvFile    = ".env"
	defaultServerAddr = "127.0.0.1:8000"
)

// Config holds every setting the CLI and the local backend need.
type Config struct {
	LogLevel  string        `yaml:"logLevel"`
	ConfigDir string        `yaml:"configDir"`
	Fixture   string        `yaml:"fixture"`
	Layout    LayoutConfig  `yaml:"layout"`
	Gmail     GmailConfig   `yaml:"gmail"`
	GroupMe   GroupMeConfig `yaml:"groupme"`
	Server    ServerConfig  `yaml:"server"`
}

// LayoutConfig tunes the column partitioner.
type LayoutConfig struct {
	Policy  string         `yaml:"policy"`
	Heights map[string]int `yaml:"heights"`
}

// GmailConfig describes the OAuth client and message query for the email source.
type GmailConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"` // #nosec G117 -- config field, not an exposed secret
	Endpoint     string `yaml:"endpoint"`
	MaxResults   int64  `yaml:"maxResults"`
	StartDate    string `yaml:"startDate"`
	EndDate      string `yaml:"endDate"`
}

// GroupMeConfig describes the group-chat source.
type GroupMeConfig struct {
	AccessToken string `yaml:"accessToken"` // #nosec G117 -- config field, not an exposed secret
	BaseURL     string `yaml:"baseUrl"`
	UnreadLimit int    `yaml:"unreadLimit"`
}

// ServerConfig describes the local feed backend.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		LogLevel:  "info",
		ConfigDir: filepath.Join(home, ".config", "duofeed"),
		Layout: LayoutConfig{
			Policy:  string(partition.PolicyAsymmetric),
			Heights: defaultHeights(),
		},
		Gmail: GmailConfig{
			MaxResults: 10,
		},
		GroupMe: GroupMeConfig{
			BaseURL:     "https://api.groupme.com/v3",
			UnreadLimit: 20,
		},
		Server: ServerConfig{
			Addr:           defaultServerAddr,
			AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		},
	}
}

func defaultHeights() map[string]int {
	heights := make(map[string]int)
	for typ, h := range partition.DefaultHeights() {
		heights[string(typ)] = h
	}
	return heights
}

// Load builds the configuration. path names a YAML file; when empty the
// DUOFEED_CONFIG variable is consulted. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read %s: %w", defaultEnvFile, err)
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the local user
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	cfg.fillHeights()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	overrideString(&c.ConfigDir, configDirEnv)
	overrideString(&c.LogLevel, logLevelEnv)
	overrideString(&c.Fixture, fixtureEnv)
	overrideString(&c.Layout.Policy, layoutPolicyEnv)
	overrideString(&c.Gmail.ClientID, gmailClientIDEnv)
	overrideString(&c.Gmail.ClientSecret, gmailSecretEnv)
	overrideString(&c.Gmail.Endpoint, gmailURLEnv)
	overrideString(&c.GroupMe.AccessToken, groupMeTokenEnv)
	overrideString(&c.GroupMe.BaseURL, groupMeURLEnv)
	overrideString(&c.Server.Addr, serverAddrEnv)

	if v := strings.TrimSpace(os.Getenv(gmailMaxEnv)); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s %q: must be a positive integer", gmailMaxEnv, v)
		}
		c.Gmail.MaxResults = n
	}
	return nil
}

func overrideString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

// fillHeights restores default heights for types a partial YAML table left out.
func (c *Config) fillHeights() {
	if c.Layout.Heights == nil {
		c.Layout.Heights = make(map[string]int)
	}
	for typ, h := range defaultHeights() {
		if _, ok := c.Layout.Heights[typ]; !ok {
			c.Layout.Heights[typ] = h
		}
	}
}

// PartitionOptions converts the layout section into partitioner options.
func (l LayoutConfig) PartitionOptions() ([]partition.Option, error) {
	heights := make(partition.HeightTable, len(l.Heights))
	for name, h := range l.Heights {
		typ, err := feed.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("layout heights: %w", err)
		}
		heights[typ] = h
	}

	return []partition.Option{
		partition.WithPolicy(partition.Policy(l.Policy)),
		partition.WithHeights(heights),
	}, nil
}
