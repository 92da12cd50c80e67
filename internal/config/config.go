package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is loaded once at startup and never mutated afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	Driver string       `mapstructure:"driver"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// GitHubConfig names the single watched target: one project, one status
// field, one repository. Deliveries about anything else are skipped.
type GitHubConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
	Token         string `mapstructure:"token"`
	APIURL        string `mapstructure:"api_url"`
	ProjectID     string `mapstructure:"project_id"`
	StatusFieldID string `mapstructure:"status_field_id"`
	Repository    string `mapstructure:"repository"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

type ExecutorConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("boardbot")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/boardbot")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("BOARDBOT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects a configuration that cannot serve webhooks.
func (c *Config) Validate() error {
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("github.webhook_secret is required")
	}
	if c.GitHub.ProjectID == "" {
		return fmt.Errorf("github.project_id is required")
	}
	if c.GitHub.StatusFieldID == "" {
		return fmt.Errorf("github.status_field_id is required")
	}
	if c.GitHub.Repository == "" {
		return fmt.Errorf("github.repository is required")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.sqlite.path", "./data/boardbot.db")

	viper.SetDefault("github.api_url", "https://api.github.com/graphql")

	viper.SetDefault("executor.interval", time.Minute)
	viper.SetDefault("executor.batch_size", 50)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
