package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/CIDgravity/snakelet"
	"github.com/caarlos0/env/v11"
)

// config structure
type Config struct {
	API      APIConfig      `mapstructure:"API"`
	Github   GithubConfig   `mapstructure:"GITHUB"`
	Tasks    TasksConfig    `mapstructure:"TASKS"`
	Sessions SessionsConfig `mapstructure:"SESSIONS"`
	Logs     LogsConfig     `mapstructure:"LOGS"`
}

type APIConfig struct {
	ListenPort string `mapstructure:"ListenPort" env:"PORT"`
}

type GithubConfig struct {
	Token                 string `mapstructure:"Token" env:"GITHUB_TOKEN"`
	ResultsPerPage        int    `mapstructure:"ResultsPerPage"`
	RequestTimeoutSeconds int    `mapstructure:"RequestTimeoutSeconds"`
}

type TasksConfig struct {
	MaxParallelTasksAllowed int `mapstructure:"MaxParallelTasksAllowed"`
}

type SessionsConfig struct {
	MaxSessions            int `mapstructure:"MaxSessions"`            // 0 means unlimited
	IdleTTLSeconds         int `mapstructure:"IdleTTLSeconds"`         // 0 means sessions never expire
	CleanupIntervalSeconds int `mapstructure:"CleanupIntervalSeconds"` // 0 means expired sessions are only reclaimed on access
}

type LogsConfig struct {
	Level            string `mapstructure:"Level" env:"LOG_LEVEL"` // error | warn | info | debug - case insensitive
	OutputLogsAsJSON bool   `mapstructure:"OutputLogsAsJson"`
	ServiceName      string `mapstructure:"ServiceName"` // added to every log entry as "service"
}

// Load search the config file next to the binary first, then in the working directory
// if no file is found, defaults are used. Environment variables are applied last
func Load() (*Config, error) {
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))

	if err != nil {
		return nil, err
	}

	configFilePath := ""

	if _, err := os.Stat(dir + "/config/config.toml"); err == nil {
		configFilePath = dir + "/config/config.toml"
	} else if _, err := os.Stat("config/config.toml"); err == nil {
		configFilePath = "config/config.toml"
	}

	return LoadFile(configFilePath)
}

// LoadFile load defaults, then the config file content if any, then environment variables
func LoadFile(configFilePath string) (*Config, error) {
	cfg := GetDefault()

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		if _, err := snakelet.InitAndLoad(cfg, configFilePath); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv override config values with environment variables when they are set
func ApplyEnv(cfg *Config) error {
	return env.Parse(cfg)
}

// GetDefault
func GetDefault() *Config {
	return &Config{
		API: APIConfig{
			ListenPort: "5000",
		},
		Github: GithubConfig{
			ResultsPerPage:        30,
			RequestTimeoutSeconds: 10,
		},
		Tasks: TasksConfig{
			MaxParallelTasksAllowed: 8,
		},
		Sessions: SessionsConfig{
			MaxSessions:            1000,
			IdleTTLSeconds:         1800,
			CleanupIntervalSeconds: 60,
		},
		Logs: LogsConfig{
			Level:            "debug",
			OutputLogsAsJSON: false,
			ServiceName:      "popular-repos",
		},
	}
}
