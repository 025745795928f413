package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	appconfig "github.com/vhm24/taskflow/internal/app/config"
)

// settingsYAML is the on-disk settings form. Every field has a default;
// environment variables override file values.
type settingsYAML struct {
	DBPath            string   `yaml:"dbPath"`
	RedisURL          string   `yaml:"redisURL"`
	CatalogPath       string   `yaml:"catalogPath"`
	IdleTimeoutMs     int      `yaml:"idleTimeoutMs"`
	SweepIntervalMs   int      `yaml:"sweepIntervalMs"`
	DependencyTimeout string   `yaml:"dependencyTimeout"`
	AdminActorIDs     []string `yaml:"adminActorIds"`
	LogLevel          string   `yaml:"logLevel"`
	LogJSON           bool     `yaml:"logJSON"`
}

func defaults() settingsYAML {
	return settingsYAML{
		DBPath:            "taskflow.db",
		IdleTimeoutMs:     int((30 * time.Minute).Milliseconds()),
		SweepIntervalMs:   int((60 * time.Second).Milliseconds()),
		DependencyTimeout: "5s",
		LogLevel:          "info",
	}
}

// Load resolves configuration from an optional settings file plus
// TASKFLOW_* environment overrides. A missing file is not an error; the
// defaults apply.
func Load(fs afero.Fs, path string) (appconfig.Config, error) {
	s := defaults()

	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read settings %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	applyEnv(&s)

	depTimeout, err := time.ParseDuration(s.DependencyTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dependencyTimeout %q: %w", s.DependencyTimeout, err)
	}
	if s.IdleTimeoutMs <= 0 {
		return nil, fmt.Errorf("idleTimeoutMs must be positive, got %d", s.IdleTimeoutMs)
	}
	if s.SweepIntervalMs <= 0 {
		return nil, fmt.Errorf("sweepIntervalMs must be positive, got %d", s.SweepIntervalMs)
	}

	return appconfig.NewAppConfig(
		s.DBPath,
		s.RedisURL,
		s.CatalogPath,
		time.Duration(s.IdleTimeoutMs)*time.Millisecond,
		time.Duration(s.SweepIntervalMs)*time.Millisecond,
		depTimeout,
		s.AdminActorIDs,
		s.LogLevel,
		s.LogJSON,
	), nil
}

func applyEnv(s *settingsYAML) {
	if v := os.Getenv("TASKFLOW_DB_PATH"); v != "" {
		s.DBPath = v
	}
	if v := os.Getenv("TASKFLOW_REDIS_URL"); v != "" {
		s.RedisURL = v
	}
	if v := os.Getenv("TASKFLOW_CATALOG_PATH"); v != "" {
		s.CatalogPath = v
	}
	if v := os.Getenv("TASKFLOW_IDLE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.IdleTimeoutMs = n
		}
	}
	if v := os.Getenv("TASKFLOW_SWEEP_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.SweepIntervalMs = n
		}
	}
	if v := os.Getenv("TASKFLOW_DEPENDENCY_TIMEOUT"); v != "" {
		s.DependencyTimeout = v
	}
	if v := os.Getenv("TASKFLOW_ADMIN_ACTORS"); v != "" {
		parts := strings.Split(v, ",")
		admins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				admins = append(admins, p)
			}
		}
		s.AdminActorIDs = admins
	}
	if v := os.Getenv("TASKFLOW_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("TASKFLOW_LOG_JSON"); v != "" {
		s.LogJSON = v == "1" || strings.EqualFold(v, "true")
	}
}
