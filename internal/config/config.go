package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/brandon/mail-butler/internal/credential"
)

// Mailbox providers
const (
	ProviderIMAP  = "imap"
	ProviderGmail = "gmail"
)

// State backends
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// LLM providers
const (
	LLMOpenAI    = "openai"
	LLMAnthropic = "anthropic"
)

// Config holds the application configuration
type Config struct {
	Provider string

	IMAP  IMAPConfig
	SMTP  SMTPConfig
	Gmail GmailConfig
	LLM   LLMConfig

	// Auto-send allow-lists
	AutoSendEmails  []string
	AutoSendDomains []string
	PolicyFile      string

	// Polling loop
	PollInterval time.Duration
	BatchSize    int

	// Processed set
	StateBackend string
	StatePath    string
	RedisURL     string

	CachePath   string
	LogLevel    string
	MetricsAddr string
}

// IMAPConfig holds the inbound mailbox settings
type IMAPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	Mailbox       string
	DraftsMailbox string
}

// SMTPConfig holds the submission server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// GmailConfig holds the OAuth client and token file locations
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
}

// LLMConfig selects the generation backend
type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// policyFile is the YAML layout of AUTO_SEND_POLICY_FILE
type policyFile struct {
	Emails  []string `yaml:"emails"`
	Domains []string `yaml:"domains"`
}

// lookupSecret resolves secrets missing from the environment
var lookupSecret = credential.Get

// LoadConfig loads configuration from a .env file, if any, and the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Provider: strings.ToLower(getEnv("MAILBOX_PROVIDER", ProviderIMAP)),
		IMAP: IMAPConfig{
			Host:          getEnv("IMAP_HOST", ""),
			Port:          getEnvInt("IMAP_PORT", 993),
			Username:      getEnv("IMAP_USERNAME", ""),
			Password:      getEnv("IMAP_PASSWORD", ""),
			Mailbox:       getEnv("IMAP_MAILBOX", "INBOX"),
			DraftsMailbox: getEnv("IMAP_DRAFTS_MAILBOX", "Drafts"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		Gmail: GmailConfig{
			CredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", "credentials.json"),
			TokenFile:       getEnv("GMAIL_TOKEN_FILE", "token.json"),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", LLMOpenAI)),
			APIKey:   getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			Model:    getEnv("LLM_MODEL", "gpt-4.1-mini"),
			BaseURL:  getEnv("LLM_BASE_URL", ""),
		},
		AutoSendEmails:  getEnvList("AUTO_SEND_EMAILS"),
		AutoSendDomains: getEnvList("AUTO_SEND_DOMAINS"),
		PolicyFile:      getEnv("AUTO_SEND_POLICY_FILE", ""),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 10*time.Second),
		BatchSize:       getEnvInt("BATCH_SIZE", 10),
		StateBackend:    strings.ToLower(getEnv("STATE_BACKEND", BackendSQLite)),
		StatePath:       getEnv("STATE_PATH", "state.json"),
		RedisURL:        getEnv("REDIS_URL", ""),
		CachePath:       getEnv("CACHE_PATH", "data/butler.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
	}

	// SMTP credentials default to the IMAP ones
	if cfg.SMTP.Username == "" {
		cfg.SMTP.Username = cfg.IMAP.Username
	}

	if err := cfg.loadPolicyFile(); err != nil {
		return nil, err
	}
	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadPolicyFile() error {
	if c.PolicyFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to read auto-send policy: %w", err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("failed to parse auto-send policy %s: %w", c.PolicyFile, err)
	}
	c.AutoSendEmails = append(c.AutoSendEmails, pf.Emails...)
	c.AutoSendDomains = append(c.AutoSendDomains, pf.Domains...)
	return nil
}

// resolveSecrets fills empty passwords and keys from the OS keyring
func (c *Config) resolveSecrets() error {
	secrets := []struct {
		value *string
		key   string
		need  bool
	}{
		{&c.IMAP.Password, credential.KeyIMAPPassword, c.Provider == ProviderIMAP},
		{&c.SMTP.Password, credential.KeySMTPPassword, c.Provider == ProviderIMAP},
		{&c.LLM.APIKey, credential.KeyLLMAPIKey, true},
	}
	for _, s := range secrets {
		if *s.value != "" || !s.need {
			continue
		}
		v, err := lookupSecret(s.key)
		if err != nil {
			return fmt.Errorf("failed to read %s from keyring: %w", s.key, err)
		}
		*s.value = v
	}
	if c.SMTP.Password == "" {
		c.SMTP.Password = c.IMAP.Password
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderIMAP:
		if c.IMAP.Host == "" || c.SMTP.Host == "" {
			return fmt.Errorf("IMAP_HOST and SMTP_HOST are required")
		}
		if c.IMAP.Username == "" {
			return fmt.Errorf("IMAP_USERNAME is required")
		}
		if c.IMAP.Password == "" {
			return fmt.Errorf("IMAP_PASSWORD is required (environment or keyring)")
		}
		if c.IMAP.Port < 1 || c.IMAP.Port > 65535 {
			return fmt.Errorf("invalid IMAP_PORT")
		}
		if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP_PORT")
		}
	case ProviderGmail:
		if c.Gmail.CredentialsFile == "" {
			return fmt.Errorf("GMAIL_CREDENTIALS_FILE is required")
		}
	default:
		return fmt.Errorf("unknown MAILBOX_PROVIDER %q", c.Provider)
	}

	switch c.LLM.Provider {
	case LLMOpenAI, LLMAnthropic:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required (environment or keyring)")
	}

	switch c.StateBackend {
	case BackendSQLite:
		if c.CachePath == "" {
			return fmt.Errorf("CACHE_PATH is required")
		}
	case BackendFile:
		if c.StatePath == "" {
			return fmt.Errorf("STATE_PATH is required")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.BatchSize < 1 || c.BatchSize > 500 {
		return fmt.Errorf("BATCH_SIZE must be between 1 and 500")
	}
	return nil
}
