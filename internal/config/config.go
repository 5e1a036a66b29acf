package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	GitHub     GitHubConfig     `yaml:"github"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string    `yaml:"listen_addr"`
	TLS        TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	OIDC OIDCConfig `yaml:"oidc"`

	// StaticTokens maps bearer tokens to identities. Intended for
	// single-user deployments and tests; OIDC is the production path.
	StaticTokens map[string]StaticIdentity `yaml:"static_tokens"`
}

type OIDCConfig struct {
	Enabled      bool     `yaml:"enabled"`
	IssuerURL    string   `yaml:"issuer_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

type StaticIdentity struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

type GitHubConfig struct {
	// Base URLs are overridable so tests can point at a local server.
	APIBaseURL string        `yaml:"api_base_url"`
	RawBaseURL string        `yaml:"raw_base_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
}

type SummarizerConfig struct {
	CachePath string        `yaml:"cache_path"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8090"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/keyhub/keyhub.db"
	}
	if cfg.GitHub.APIBaseURL == "" {
		cfg.GitHub.APIBaseURL = "https://api.github.com"
	}
	if cfg.GitHub.RawBaseURL == "" {
		cfg.GitHub.RawBaseURL = "https://raw.githubusercontent.com"
	}
	if cfg.GitHub.Timeout == 0 {
		cfg.GitHub.Timeout = 10 * time.Second
	}
	if cfg.Summarizer.CachePath == "" {
		cfg.Summarizer.CachePath = "/var/lib/keyhub/summaries.db"
	}
	if cfg.Summarizer.CacheTTL == 0 {
		cfg.Summarizer.CacheTTL = 24 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if len(cfg.Auth.OIDC.Scopes) == 0 {
		cfg.Auth.OIDC.Scopes = []string{"openid", "profile", "email"}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KEYHUB_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("KEYHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("KEYHUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KEYHUB_GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("KEYHUB_OIDC_CLIENT_SECRET"); v != "" {
		cfg.Auth.OIDC.ClientSecret = v
	}
}

func validate(cfg *Config) error {
	if !cfg.Auth.OIDC.Enabled && len(cfg.Auth.StaticTokens) == 0 {
		return fmt.Errorf("at least one auth method must be configured (oidc or static_tokens)")
	}
	if cfg.Auth.OIDC.Enabled {
		if cfg.Auth.OIDC.IssuerURL == "" {
			return fmt.Errorf("auth.oidc.issuer_url is required when OIDC is enabled")
		}
		if cfg.Auth.OIDC.ClientID == "" {
			return fmt.Errorf("auth.oidc.client_id is required when OIDC is enabled")
		}
	}
	for token, id := range cfg.Auth.StaticTokens {
		if token == "" {
			return fmt.Errorf("auth.static_tokens contains an empty token")
		}
		if id.ID == "" {
			return fmt.Errorf("auth.static_tokens[%q] is missing an id", token)
		}
	}
	return nil
}
