package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir = ".nba-morning"
	defaultMaxPosts  = 30
	defaultHours     = 24

	postsVariable = "{{.Posts}}"
	hoursVariable = "{{.Hours}}"
)

// Embedded configuration files
//
//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/system-prompt.md
var defaultSystemPrompt string

//go:embed config/user-prompt.md
var defaultUserPrompt string

// ConfigOverrides allows overriding embedded defaults with file paths
type ConfigOverrides struct {
	SettingsPath     *string
	SystemPromptPath *string
	UserPromptPath   *string
}

// FeedSource is one syndication endpoint queried by the collector
type FeedSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// AgentSettings configures a generation request
type AgentSettings struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// TelegramSettings configures message delivery
type TelegramSettings struct {
	APIBase          string        `yaml:"api_base"`
	Pacing           time.Duration `yaml:"pacing"`
	MaxMessageLength int           `yaml:"max_message_length"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	Feeds            []FeedSource  `yaml:"feeds"`
	WindowHours      int           `yaml:"window_hours"`
	MaxPosts         int           `yaml:"max_posts"`
	UserAgent        string        `yaml:"user_agent"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	HistoryDirectory string        `yaml:"history_directory"`
	Agents           struct {
		Digest AgentSettings `yaml:"digest"`
	} `yaml:"agents"`
	Telegram TelegramSettings `yaml:"telegram"`
}

// Credentials are the secrets every run depends on. They come from the
// environment (or a .env file) and never from settings.yaml.
type Credentials struct {
	AnthropicAPIKey  string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key"`
	TelegramBotToken string `long:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token"`
	TelegramChatID   string `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram destination chat ID"`
}

// Config holds settings, credentials and overrides
type Config struct {
	Settings    *Settings
	Credentials *Credentials
	Overrides   *ConfigOverrides
}

// NewConfig loads settings and credentials once at start-up. It does not
// touch the filesystem; see WriteDefaultSettings.
func NewConfig(overrides *ConfigOverrides) (*Config, error) {
	if overrides == nil {
		overrides = &ConfigOverrides{}
	}

	var (
		settings *Settings
		err      error
	)
	if overrides.SettingsPath != nil {
		settings, err = loadSettingsRequired(*overrides.SettingsPath)
	} else {
		settings, err = loadSettings(getConfigPath("settings.yaml"))
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	creds, err := LoadCredentials()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	return &Config{
		Settings:    settings,
		Credentials: creds,
		Overrides:   overrides,
	}, nil
}

// WriteDefaultSettings writes the embedded settings to
// .nba-morning/settings.yaml unless a settings file was given or one exists.
func (c *Config) WriteDefaultSettings() error {
	if c.Overrides != nil && c.Overrides.SettingsPath != nil {
		return nil
	}
	if err := ensureConfigExists(); err != nil {
		return fmt.Errorf("ensuring config files exist: %w", err)
	}
	return nil
}

// LoadCredentials reads credentials from the environment after loading an
// optional .env file from the working directory.
func LoadCredentials() (*Credentials, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	var creds Credentials
	parser := flags.NewParser(&creds, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs([]string{}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &creds, nil
}

// Validate reports every missing credential. Delivery credentials are only
// checked when requireDelivery is set.
func (c *Credentials) Validate(requireDelivery bool) error {
	var missing []string
	if c.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if requireDelivery {
		if c.TelegramBotToken == "" {
			missing = append(missing, "TELEGRAM_BOT_TOKEN")
		}
		if c.TelegramChatID == "" {
			missing = append(missing, "TELEGRAM_CHAT_ID")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s (check your .env file)", strings.Join(missing, ", "))
	}
	return nil
}

// GetSystemPrompt returns the system prompt (from override file or embedded)
func (c *Config) GetSystemPrompt() (string, error) {
	if c.Overrides != nil && c.Overrides.SystemPromptPath != nil {
		data, err := os.ReadFile(*c.Overrides.SystemPromptPath)
		if err != nil {
			return "", fmt.Errorf("reading system prompt %s: %w", *c.Overrides.SystemPromptPath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.TrimSpace(defaultSystemPrompt), nil
}

// GetUserPrompt returns the user prompt template (from override file or embedded)
func (c *Config) GetUserPrompt() (string, error) {
	prompt := defaultUserPrompt
	if c.Overrides != nil && c.Overrides.UserPromptPath != nil {
		data, err := os.ReadFile(*c.Overrides.UserPromptPath)
		if err != nil {
			return "", fmt.Errorf("reading user prompt %s: %w", *c.Overrides.UserPromptPath, err)
		}
		prompt = string(data)
	}

	if !strings.Contains(prompt, postsVariable) {
		return "", fmt.Errorf("user prompt template must contain %s variable", postsVariable)
	}
	return strings.TrimSpace(prompt), nil
}

// parseSettings decodes YAML on top of the embedded defaults
func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	settings.applyDefaults()
	return &settings, nil
}

func (s *Settings) validate() error {
	if len(s.Feeds) == 0 {
		return fmt.Errorf("at least one feed is required")
	}
	for i, feed := range s.Feeds {
		if feed.URL == "" {
			return fmt.Errorf("feed at index %d has no url", i)
		}
	}
	if s.WindowHours < 0 {
		return fmt.Errorf("window_hours must be non-negative")
	}
	if s.Telegram.Pacing < 0 {
		return fmt.Errorf("telegram.pacing must be non-negative")
	}
	if s.Telegram.MaxMessageLength < 0 {
		return fmt.Errorf("telegram.max_message_length must be non-negative")
	}
	return nil
}

func (s *Settings) applyDefaults() {
	if s.WindowHours == 0 {
		s.WindowHours = defaultHours
	}
	if s.MaxPosts <= 0 {
		s.MaxPosts = defaultMaxPosts
	}
	if s.HistoryDirectory == "" {
		s.HistoryDirectory = "history"
	}
	if s.Agents.Digest.MaxTokens <= 0 {
		log.Printf("Warning: agents.digest.max_tokens is %d, defaulting to 4096", s.Agents.Digest.MaxTokens)
		s.Agents.Digest.MaxTokens = 4096
	}
	for i := range s.Feeds {
		if s.Feeds[i].Name == "" {
			s.Feeds[i].Name = s.Feeds[i].URL
		}
	}
}

// loadSettings loads settings from YAML file with fallback to defaults
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		debugLog("settings %s not readable (%v), using embedded defaults", settingsPath, err)
		return parseSettings(nil)
	}
	return parseSettings(data)
}

// loadSettingsRequired loads settings from YAML file, failing if file doesn't exist
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", settingsPath, err)
	}
	return parseSettings(data)
}

// getConfigPath returns the path to a config file in the config directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates the config directory and writes settings.yaml if needed
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	return nil
}
