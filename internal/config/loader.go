package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults and environment fallbacks applied. A missing file is
// not an error; the configuration then comes entirely from defaults and the
// environment.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			applyEnv(cfg)
			applyDefaults(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment fallbacks
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills credential fields from the environment when the file left
// them empty.
func applyEnv(cfg *Config) {
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = os.Getenv("DISCORD_TOKEN")
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// applyDefaults replaces zero-value tuning fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Transcription.MaxConcurrent <= 0 {
		cfg.Transcription.MaxConcurrent = 3
	}
	if cfg.Transcription.MaxRetries <= 0 {
		cfg.Transcription.MaxRetries = 5
	}
	if cfg.Transcription.InitialBackoff <= 0 {
		cfg.Transcription.InitialBackoff = 2 * time.Second
	}
	if cfg.Transcription.AttemptTimeout <= 0 {
		cfg.Transcription.AttemptTimeout = 4 * time.Minute
	}
	if cfg.Settings.File == "" {
		cfg.Settings.File = "guild_settings.json"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required (or set DISCORD_TOKEN)"))
	}
	if cfg.Gemini.APIKey == "" {
		errs = append(errs, errors.New("gemini.api_key is required (or set GEMINI_API_KEY)"))
	}
	if cfg.Transcription.MaxConcurrent > 64 {
		errs = append(errs, fmt.Errorf("transcription.max_concurrent %d is unreasonably high; maximum 64", cfg.Transcription.MaxConcurrent))
	}

	return errors.Join(errs...)
}
