// Package config defines the application configuration and loads it from a
// YAML file with environment overrides.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for rental-analytics.
type Configuration struct {
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
	Data     DataConfig     `yaml:"data,omitempty"`
	Analysis AnalysisConfig `yaml:"analysis,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, json
}

// DataConfig points at the dataset to analyze.
type DataConfig struct {
	File string `yaml:"file,omitempty"`
}

// AnalysisConfig holds defaults for the portfolio and tax computations.
type AnalysisConfig struct {
	FiscalYear     int     `yaml:"fiscalYear,omitempty"`
	VacancyPercent float64 `yaml:"vacancyPercent,omitempty"`
}

// NewViper returns a viper instance reading RENTAL_* environment variables,
// e.g. RENTAL_DATA_FILE overrides data.file.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Every key needs a default for its environment variable to be seen by
	// Unmarshal.
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", "")
	v.SetDefault("data.file", constants.DefaultDataFile)
	v.SetDefault("analysis.fiscalYear", 0)
	v.SetDefault("analysis.vacancyPercent", 0.0)
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := NewViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return Decode(v)
}

// LoadConfigurationFromReader loads the YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := NewViper()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return Decode(v)
}

// Decode unmarshals the settings held by v.
func Decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// FiscalYearOr returns the configured fiscal year, or the year before now when
// none is set.
func (c *Configuration) FiscalYearOr(now time.Time) int {
	if c.Analysis.FiscalYear > 0 {
		return c.Analysis.FiscalYear
	}
	return now.Year() - 1
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown logging level %q, startup will fail", c.Logging.Level))
	}

	if c.Data.File == "" {
		warnings = append(warnings, "no dataset file configured")
	}

	if c.Analysis.FiscalYear < 0 {
		warnings = append(warnings, fmt.Sprintf("fiscal year %d is negative and will be ignored", c.Analysis.FiscalYear))
	}

	if c.Analysis.VacancyPercent < 0 || c.Analysis.VacancyPercent > constants.PercentageMultiplier {
		warnings = append(warnings, fmt.Sprintf("vacancy percent %.2f is outside 0-100", c.Analysis.VacancyPercent))
	} else if c.Analysis.VacancyPercent > 50 {
		warnings = append(warnings, fmt.Sprintf("vacancy percent %.2f is unusually high", c.Analysis.VacancyPercent))
	}

	return warnings
}
