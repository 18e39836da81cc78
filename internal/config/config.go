// Package config loads serp2snow settings.
//
// Precedence, lowest first: built-in defaults, the settings file, and
// SERP2SNOW_* environment variables (nested keys use underscores, so
// store.backend is SERP2SNOW_STORE_BACKEND).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppName is used for the config directory and the environment prefix.
const AppName = "serp2snow"

// Config holds all settings.
type Config struct {
	LogLevel    string            `mapstructure:"log_level"`
	Store       StoreConfig       `mapstructure:"store"`
	AWS         AWSConfig         `mapstructure:"aws"`
	SerpWow     SerpWowConfig     `mapstructure:"serpwow"`
	Names       Names             `mapstructure:"names"`
	Propagation PropagationConfig `mapstructure:"propagation"`
}

// StoreConfig selects where setup progress and credentials are kept.
type StoreConfig struct {
	Backend       string `mapstructure:"backend"` // "local", "s3", "memory"
	Path          string `mapstructure:"path"`
	Bucket        string `mapstructure:"bucket"`
	Key           string `mapstructure:"key"`
	Region        string `mapstructure:"region"`
	DynamoDBTable string `mapstructure:"dynamodb_table"`
	Profile       string `mapstructure:"profile"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type SerpWowConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// Names are the fixed names of the resources a setup run creates.
type Names struct {
	UploadUser         string `mapstructure:"upload_user"`
	WritePolicy        string `mapstructure:"write_policy"`
	ReadPolicy         string `mapstructure:"read_policy"`
	SnowflakeRole      string `mapstructure:"snowflake_role"`
	Destination        string `mapstructure:"destination"`
	StorageIntegration string `mapstructure:"storage_integration"`
	Table              string `mapstructure:"table"`
	WarehouseStage     string `mapstructure:"warehouse_stage"`
	Pipe               string `mapstructure:"pipe"`
	View               string `mapstructure:"view"`
}

// PropagationConfig bounds the retry of the first call that uses a freshly
// created IAM access key.
type PropagationConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"`
}

// DefaultNames returns the resource names the integration has always used.
func DefaultNames() Names {
	return Names{
		UploadUser:         "valueserp_results_upload_user",
		WritePolicy:        "valueserp_results_write_to_s3",
		ReadPolicy:         "valueserp_results_snowflake_access",
		SnowflakeRole:      "valueserp_integration_snowflake_external",
		Destination:        "SNOWFLAKE_S3_INTEGRATION",
		StorageIntegration: "SERPWOW_RESULTS_S3",
		Table:              "SERPWOW_RESULTS",
		WarehouseStage:     "SERPWOW_RESULTS_S3_STAGE",
		Pipe:               "SERPWOW_RESULTS_PIPE",
		View:               "FLATTENED_SERPS",
	}
}

// Dir returns the per-user configuration directory for serp2snow.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("log_level", "warn")

	v.SetDefault("store.backend", "local")
	v.SetDefault("store.path", filepath.Join(dir, "store.json"))
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.key", AppName+"/state.json")
	v.SetDefault("store.region", "us-east-1")
	v.SetDefault("store.dynamodb_table", "")
	v.SetDefault("store.profile", "")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("serpwow.base_url", "https://api.valueserp.com")

	n := DefaultNames()
	v.SetDefault("names.upload_user", n.UploadUser)
	v.SetDefault("names.write_policy", n.WritePolicy)
	v.SetDefault("names.read_policy", n.ReadPolicy)
	v.SetDefault("names.snowflake_role", n.SnowflakeRole)
	v.SetDefault("names.destination", n.Destination)
	v.SetDefault("names.storage_integration", n.StorageIntegration)
	v.SetDefault("names.table", n.Table)
	v.SetDefault("names.warehouse_stage", n.WarehouseStage)
	v.SetDefault("names.pipe", n.Pipe)
	v.SetDefault("names.view", n.View)

	v.SetDefault("propagation.initial_interval", 5*time.Second)
	v.SetDefault("propagation.max_interval", 30*time.Second)
	v.SetDefault("propagation.max_elapsed", 3*time.Minute)
}

// Load reads settings. An explicit path must exist; without one the
// settings.yaml in Dir is read when present.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return load(path, dir)
}

func load(path, dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v, dir)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("settings")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read settings: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late in a run.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "local", "memory":
	case "s3":
		if c.Store.Bucket == "" {
			return fmt.Errorf("store backend s3 requires store.bucket")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if c.Propagation.MaxElapsed < 0 || c.Propagation.InitialInterval < 0 {
		return fmt.Errorf("propagation intervals must not be negative")
	}
	return nil
}
