package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the complete config.yaml file structure. Any section
// omitted by the user falls back to the built-in default for that section.
type YAMLConfig struct {
	Scheduler   *SchedulerConfig   `yaml:"scheduler"`
	Session     *SessionConfig     `yaml:"session"`
	Browser     *BrowserConfig     `yaml:"browser"`
	Identity    *IdentityConfig    `yaml:"identity"`
	Diarization *DiarizationConfig `yaml:"diarization"`
	Artifacts   *ArtifactsConfig   `yaml:"artifacts"`
	Credentials *CredentialsConfig `yaml:"credentials"`
}

// Initialize loads, merges, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Read config.yaml from configDir (missing file is not an error — the
//     built-in defaults are used as-is, since every section has a sane
//     development default).
//  2. Expand environment variables (${VAR} / $VAR syntax).
//  3. Parse YAML into a YAMLConfig.
//  4. Merge each section onto its built-in default (YAML values win).
//  5. Validate and return the assembled Config.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)

	yamlCfg, err := loadYAMLConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	scheduler := DefaultSchedulerConfig()
	if yamlCfg.Scheduler != nil {
		if err := mergo.Merge(scheduler, yamlCfg.Scheduler, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge scheduler config: %w", err)
		}
	}

	session := DefaultSessionConfig()
	if yamlCfg.Session != nil {
		if err := mergo.Merge(session, yamlCfg.Session, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge session config: %w", err)
		}
	}

	browser := DefaultBrowserConfig()
	if yamlCfg.Browser != nil {
		if err := mergo.Merge(browser, yamlCfg.Browser, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge browser config: %w", err)
		}
	}

	identity := DefaultIdentityConfig()
	if yamlCfg.Identity != nil {
		if err := mergo.Merge(identity, yamlCfg.Identity, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return nil, fmt.Errorf("failed to merge identity config: %w", err)
		}
	}

	diarization := DefaultDiarizationConfig()
	if yamlCfg.Diarization != nil {
		if err := mergo.Merge(diarization, yamlCfg.Diarization, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge diarization config: %w", err)
		}
	}

	artifacts := DefaultArtifactsConfig()
	if yamlCfg.Artifacts != nil {
		if err := mergo.Merge(artifacts, yamlCfg.Artifacts, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge artifacts config: %w", err)
		}
	}

	credentials := DefaultCredentialsConfig()
	if yamlCfg.Credentials != nil {
		if err := mergo.Merge(credentials, yamlCfg.Credentials, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge credentials config: %w", err)
		}
	}

	cfg := &Config{
		configDir:   configDir,
		Scheduler:   scheduler,
		Session:     session,
		Browser:     browser,
		Identity:    identity,
		Diarization: diarization,
		Artifacts:   artifacts,
		Credentials: credentials,
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized",
		"max_concurrent_sessions", cfg.Scheduler.MaxConcurrentSessions,
		"profiles_root", cfg.Browser.ProfilesRoot,
		"headless", cfg.Browser.Headless)

	return cfg, nil
}

func loadYAMLConfig(configDir string) (*YAMLConfig, error) {
	cfg := &YAMLConfig{}

	path := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No config.yaml found, using built-in defaults", "path", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return cfg, nil
}
