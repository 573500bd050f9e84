package config

import "time"

// Config is the root configuration for Warren.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Provisioner   ProvisionerConfig   `yaml:"provisioner"`
	DNS           DNSConfig           `yaml:"dns"`
	Render        RenderConfig        `yaml:"render"`
	Runner        RunnerConfig        `yaml:"runner"`
	Notifications NotificationsConfig `yaml:"notifications"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	PublicURL string `yaml:"public_url"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
}

type AuthConfig struct {
	// APITokenHash is the SHA-256 hex digest of the bearer token required
	// on the MCP endpoint. Empty disables auth (local use only).
	APITokenHash string `yaml:"api_token_hash"`
}

// ProvisionerConfig describes the remote tunnel-provisioning API.
type ProvisionerConfig struct {
	BaseURL   string `yaml:"base_url"`
	AccountID string `yaml:"account_id"`
	APIToken  string `yaml:"api_token"`
	// Timeout bounds each remote call at the transport level.
	// Zero means no client-side timeout; an expired timeout surfaces
	// like any other transport failure.
	Timeout time.Duration `yaml:"timeout"`
}

// DNSConfig holds the fixed hostname-binding parameters: every tunnel is
// published as <name>.<Domain>, routing to TargetService.
type DNSConfig struct {
	Domain        string `yaml:"domain"`
	TargetService string `yaml:"target_service"`
}

type RenderConfig struct {
	LogLevel string `yaml:"log_level"`
}

type RunnerConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ConfigDir  string `yaml:"config_dir"`
}

type NotificationsConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8421,
			LogLevel: "info",
		},
		Provisioner: ProvisionerConfig{
			BaseURL: "https://provision.house-iq.cc/api/v1",
		},
		DNS: DNSConfig{
			Domain:        "house-iq.cc",
			TargetService: "http://127.0.0.1:8123",
		},
		Render: RenderConfig{
			LogLevel: "info",
		},
		Runner: RunnerConfig{
			BinaryPath: "tunnel-runner",
			ConfigDir:  "~/.config/warren",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			Burst:             30,
		},
	}
}
