// Package config loads process configuration from defaults, an optional
// diagnostica.yaml and DIAGNOSTICA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/abhisek/diagnostica/internal/cohort"
	"github.com/abhisek/diagnostica/internal/evaluation"
	"github.com/abhisek/diagnostica/internal/llm"
	"github.com/abhisek/diagnostica/internal/logging"
	"github.com/abhisek/diagnostica/internal/store"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "DIAGNOSTICA"

// Config holds all application configuration.
type Config struct {
	DB     DBConfig          `mapstructure:"db"`
	Server ServerConfig      `mapstructure:"server"`
	Log    logging.Config    `mapstructure:"log"`
	Engine evaluation.Config `mapstructure:"engine"`
	Cohort cohort.Thresholds `mapstructure:"cohort"`
	LLM    llm.Config        `mapstructure:"llm"`
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	Tracing bool   `mapstructure:"tracing"`

	// TraceFile receives exported spans as JSON lines. Empty means stderr.
	TraceFile string `mapstructure:"trace_file"`
}

func setDefaults(v *viper.Viper) {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		dbPath = "diagnostica.db"
	}
	v.SetDefault("db.path", dbPath)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.tracing", false)
	v.SetDefault("server.trace_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.compress", true)

	eng := evaluation.DefaultConfig()
	v.SetDefault("engine.diagnosis.rapid_guess_floor_ms", eng.Diagnosis.RapidGuessFloorMs)
	v.SetDefault("engine.diagnosis.mastery_time_factor", eng.Diagnosis.MasteryTimeFactor)
	v.SetDefault("engine.calibration.impulsive_rapid_rate", eng.Calibration.ImpulsiveRapidRate)
	v.SetDefault("engine.calibration.anxious_hesitation_avg", eng.Calibration.AnxiousHesitationAvg)
	v.SetDefault("engine.calibration.anxious_focus_loss_avg", eng.Calibration.AnxiousFocusLossAvg)
	v.SetDefault("engine.calibration.anxious_min_accuracy_pct", eng.Calibration.AnxiousMinAccuracyPct)

	co := cohort.DefaultThresholds()
	v.SetDefault("cohort.cohort_fraction", co.CohortFraction)
	v.SetDefault("cohort.slip_broken", co.SlipBroken)
	v.SetDefault("cohort.guess_trivial", co.GuessTrivial)
	v.SetDefault("cohort.discrimination_trivial", co.DiscriminationTrivial)
	v.SetDefault("cohort.min_group_size", co.MinGroupSize)
	v.SetDefault("cohort.critical_ratio", co.CriticalRatio)
	v.SetDefault("cohort.warning_ratio", co.WarningRatio)
	v.SetDefault("cohort.shadow_nodes", co.ShadowNodes)

	ll := llm.DefaultConfig()
	v.SetDefault("llm.provider", ll.Provider)
	v.SetDefault("llm.fallback", ll.Fallback)
	v.SetDefault("llm.timeout", ll.Timeout)
	v.SetDefault("llm.groq.api_key", "")
	v.SetDefault("llm.groq.model", ll.Groq.Model)
	v.SetDefault("llm.groq.base_url", ll.Groq.BaseURL)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", ll.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", ll.OpenAI.BaseURL)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", ll.Anthropic.Model)
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", ll.Gemini.Model)
	v.SetDefault("llm.gemini.base_url", "")
	v.SetDefault("llm.retry.max_attempts", ll.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", ll.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", ll.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", ll.Retry.Multiplier)
}

// New returns a viper instance with defaults and environment binding set
// up. When file is empty, diagnostica.yaml is searched for in the working
// directory and the user config directory.
func New(file string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("diagnostica")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "diagnostica"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if any, and decodes the result. An explicit
// file that does not exist is an error; a missing default file is not.
// When no LLM provider is configured, well-known API key variables are
// probed.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Engine = cfg.Engine.Normalized()

	if !cfg.LLM.Enabled() {
		if discovered, ok := llm.DiscoverConfig(cfg.LLM); ok {
			cfg.LLM = discovered
		}
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.Cohort.CohortFraction <= 0 || c.Cohort.CohortFraction > 0.5 {
		return fmt.Errorf("cohort.cohort_fraction %v out of range (0, 0.5]", c.Cohort.CohortFraction)
	}
	if c.Engine.Diagnosis.RapidGuessFloorMs < 0 {
		return errors.New("engine.diagnosis.rapid_guess_floor_ms must not be negative")
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	return nil
}
