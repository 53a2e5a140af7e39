package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "FLIGHTSIM"

// Settings are the process-wide options: logging, where runs are stored and
// how many workers simulate in parallel.
type Settings struct {
	LogLevel         string
	LogFormat        string
	DataDir          string
	Workers          int
	Integrator       string
	ProgressInterval time.Duration

	// SentryDSN enables crash reporting when set.
	SentryDSN string
}

// LoadSettings reads defaults, then file when it is not empty, then
// FLIGHTSIM_* environment variables, such as FLIGHTSIM_LOG_LEVEL.
func LoadSettings(file string) (Settings, error) {
	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("data.dir", "./runs")
	v.SetDefault("workers", 0)
	v.SetDefault("integrator", DefaultIntegrator)
	v.SetDefault("progress.interval", "200ms")
	v.SetDefault("sentry.dsn", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("error reading config file: %v", err)
		}
	}

	s := Settings{
		LogLevel:         v.GetString("log.level"),
		LogFormat:        v.GetString("log.format"),
		DataDir:          v.GetString("data.dir"),
		Workers:          v.GetInt("workers"),
		Integrator:       v.GetString("integrator"),
		ProgressInterval: v.GetDuration("progress.interval"),
		SentryDSN:        v.GetString("sentry.dsn"),
	}
	if s.Workers < 0 {
		return s, fmt.Errorf("workers must not be negative, got %d", s.Workers)
	}
	if s.ProgressInterval <= 0 {
		return s, fmt.Errorf("progress interval must be positive, got %s", s.ProgressInterval)
	}
	return s, nil
}
