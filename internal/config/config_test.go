package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
logging:
  level: debug
  format: console
output:
  format: json
data:
  file: data/portfolio.yaml
analysis:
  fiscalYear: 2024
  vacancyPercent: 5
`

func TestLoadConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: filepath.Join(dir, "nonexistent.yaml"),
			wantError:  true,
		},
		{
			name:       "Sample config",
			configPath: path,
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfiguration() error = %v", err)
			}
			if config.Logging.Level != "debug" || config.Logging.Format != "console" {
				t.Errorf("Logging = %+v", config.Logging)
			}
			if config.Output.Format != "json" {
				t.Errorf("Output.Format = %q, expected json", config.Output.Format)
			}
			if config.Data.File != "data/portfolio.yaml" {
				t.Errorf("Data.File = %q", config.Data.File)
			}
			if config.Analysis.FiscalYear != 2024 || config.Analysis.VacancyPercent != 5 {
				t.Errorf("Analysis = %+v", config.Analysis)
			}
		})
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfigurationFromReader(strings.NewReader("logging:\n  level: info\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if config.Data.File != "portfolio.yaml" {
		t.Errorf("Data.File = %q, expected default portfolio.yaml", config.Data.File)
	}
	if config.Analysis.FiscalYear != 0 {
		t.Errorf("FiscalYear = %d, expected 0", config.Analysis.FiscalYear)
	}
}

func TestLoadConfigurationEnvironmentOverride(t *testing.T) {
	t.Setenv("RENTAL_DATA_FILE", "/srv/rentals.json")
	t.Setenv("RENTAL_ANALYSIS_FISCALYEAR", "2023")

	config, err := LoadConfigurationFromReader(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if config.Data.File != "/srv/rentals.json" {
		t.Errorf("Data.File = %q, expected environment override", config.Data.File)
	}
	if config.Analysis.FiscalYear != 2023 {
		t.Errorf("FiscalYear = %d, expected environment override 2023", config.Analysis.FiscalYear)
	}
}

func TestFiscalYearOr(t *testing.T) {
	now := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	c := &Configuration{}
	if got := c.FiscalYearOr(now); got != 2024 {
		t.Errorf("FiscalYearOr() = %d, expected previous year 2024", got)
	}
	c.Analysis.FiscalYear = 2022
	if got := c.FiscalYearOr(now); got != 2022 {
		t.Errorf("FiscalYearOr() = %d, expected configured 2022", got)
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		config   Configuration
		warnings int
	}{
		{
			name:     "Clean",
			config:   Configuration{Data: DataConfig{File: "portfolio.yaml"}, Analysis: AnalysisConfig{VacancyPercent: 5}},
			warnings: 0,
		},
		{
			name:     "Missing data file",
			config:   Configuration{},
			warnings: 1,
		},
		{
			name: "Everything wrong",
			config: Configuration{
				Logging:  LoggingConfig{Level: "verbose"},
				Analysis: AnalysisConfig{FiscalYear: -1, VacancyPercent: 130},
			},
			warnings: 4,
		},
		{
			name:     "High vacancy",
			config:   Configuration{Data: DataConfig{File: "x"}, Analysis: AnalysisConfig{VacancyPercent: 60}},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := tt.config.ValidateConfiguration()
			if len(warnings) != tt.warnings {
				t.Errorf("ValidateConfiguration() = %v, expected %d warnings", warnings, tt.warnings)
			}
		})
	}
}
