// Package config loads the splitter settings from the Lambda environment.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names before they are mapped to config keys.
// PDF_SPLITTER_MAX_FILE_SIZE_MB -> max_file_size_mb
const EnvPrefix = "PDF_SPLITTER_"

const bytesPerMB = 1024 * 1024

// Config holds the splitter settings.
type Config struct {
	MaxFileSizeMB     int      `koanf:"max_file_size_mb"    validate:"min=1"`
	Extension         string   `koanf:"extension"           validate:"required,startswith=."`
	SplitMarker       string   `koanf:"split_marker"        validate:"required"`
	ExcludedPaths     []string `koanf:"excluded_paths"      validate:"dive,required"`
	ProcessAllRecords bool     `koanf:"process_all_records"`
	LogLevel          string   `koanf:"log_level"           validate:"oneof=debug info warn error"`
	LogJSON           bool     `koanf:"log_json"`
}

// Default returns the settings used when nothing is set in the environment.
func Default() *Config {
	return &Config{
		MaxFileSizeMB:     45,
		Extension:         ".pdf",
		SplitMarker:       "_part",
		ExcludedPaths:     []string{"/processed/", "/tmp/"},
		ProcessAllRecords: false,
		LogLevel:          "info",
		LogJSON:           true,
	}
}

// MaxBytes returns the size limit in bytes.
func (c *Config) MaxBytes() int64 {
	return int64(c.MaxFileSizeMB) * bytesPerMB
}

// Load reads defaults, then overrides them from PDF_SPLITTER_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags on cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
