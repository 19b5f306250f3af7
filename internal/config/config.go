// internal/config/config.go
//
// This package resolves where renewal reads its inputs and writes its outputs.
// Everything has a built-in default matching the layout of the tools/ folder
// in the app repository; a renewal.yaml next to the working directory can
// override any of them.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// RenewalDir holds the run log inside the working directory when
	// log_file is enabled.
	RenewalDir = ".renewal"

	// FileName is the optional override file looked up in the working directory.
	FileName = "renewal.yaml"

	// VersionPlaceholder is substituted with the release version in path templates.
	VersionPlaceholder = "{version}"

	defaultMetricsPath   = "../app/metrics.yaml"
	defaultDecisionList  = "{version}_expiry_list.csv"
	defaultOutputPath    = "new_metrics.yaml"
	defaultRequestPath   = "{version}_filled_renewal_request.txt"
	defaultCadenceOffset = 13
	defaultRenewalPeriod = "1 year"
	defaultLogLevel      = "warn"
	defaultFileLogLevel  = "info"
)

// ProjectConfig models renewal.yaml. Zero values mean "use the default".
type ProjectConfig struct {
	MetricsPath          string `yaml:"metrics_path"`
	DecisionList         string `yaml:"decision_list"`
	OutputPath           string `yaml:"output_path"`
	RequestPath          string `yaml:"request_path"`
	CadenceOffset        int    `yaml:"cadence_offset"`
	RenewalPeriod        string `yaml:"renewal_period"`
	IndentNestedMappings bool   `yaml:"indent_nested_mappings"`
	KeepComments         bool   `yaml:"keep_comments"`
	LogLevel             string `yaml:"log_level"`
	LogFile              bool   `yaml:"log_file"`
}

// Config holds the runtime configuration for a renewal run.
type Config struct {
	// ProjectDir is the directory renewal was started from; relative paths
	// are resolved against it.
	ProjectDir string

	// RenewalProjectDir is ProjectDir/.renewal
	RenewalProjectDir string

	Project ProjectConfig
}

// NewConfig builds the configuration for projectDir, applying renewal.yaml
// when present.
func NewConfig(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", projectDir, err)
	}
	cfg := &Config{
		ProjectDir:        abs,
		RenewalProjectDir: filepath.Join(abs, RenewalDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.RenewalProjectDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the override file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ProjectDir, FileName)
}

// MetricsPath returns the metrics.yaml that will be reconciled.
func (c *Config) MetricsPath() string {
	return c.Project.MetricsPath
}

// DecisionListPaths returns the candidate decision tables for version in
// lookup order. A .csv template also yields the matching .xlsx export.
func (c *Config) DecisionListPaths(version string) []string {
	primary := expandVersion(c.Project.DecisionList, version)
	paths := []string{primary}
	if ext := filepath.Ext(primary); strings.EqualFold(ext, ".csv") {
		paths = append(paths, strings.TrimSuffix(primary, ext)+".xlsx")
	}
	return paths
}

// OutputPath returns where the rewritten metrics file is written.
func (c *Config) OutputPath() string {
	return c.Project.OutputPath
}

// RequestPath returns where the renewal request for version is written.
func (c *Config) RequestPath(version string) string {
	return expandVersion(c.Project.RequestPath, version)
}

// CadenceOffset is the number of releases added to the run version to
// compute the new expiry.
func (c *Config) CadenceOffset() int {
	return c.Project.CadenceOffset
}

// RenewalPeriod is the human label printed in the request header.
func (c *Config) RenewalPeriod() string {
	return c.Project.RenewalPeriod
}

// IndentNestedMappings reports whether the rewritten metrics file uses the
// wide (4 space) nesting indent instead of 2 spaces.
func (c *Config) IndentNestedMappings() bool {
	return c.Project.IndentNestedMappings
}

// KeepComments reports whether comments from metrics.yaml survive the rewrite.
func (c *Config) KeepComments() bool {
	return c.Project.KeepComments
}

// LogLevel returns the minimum level that is logged.
func (c *Config) LogLevel() string {
	return c.Project.LogLevel
}

// LogFile reports whether runs are logged to .renewal/logs instead of stderr.
func (c *Config) LogFile() bool {
	return c.Project.LogFile
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	parsed := ProjectConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		MetricsPath:   defaultMetricsPath,
		DecisionList:  defaultDecisionList,
		OutputPath:    defaultOutputPath,
		RequestPath:   defaultRequestPath,
		CadenceOffset: defaultCadenceOffset,
		RenewalPeriod: defaultRenewalPeriod,
		LogLevel:      defaultLogLevel,
	}
}

func (pc *ProjectConfig) applyDefaults() {
	defaults := defaultProjectConfig()
	if strings.TrimSpace(pc.MetricsPath) == "" {
		pc.MetricsPath = defaults.MetricsPath
	}
	if strings.TrimSpace(pc.DecisionList) == "" {
		pc.DecisionList = defaults.DecisionList
	}
	if strings.TrimSpace(pc.OutputPath) == "" {
		pc.OutputPath = defaults.OutputPath
	}
	if strings.TrimSpace(pc.RequestPath) == "" {
		pc.RequestPath = defaults.RequestPath
	}
	if pc.CadenceOffset == 0 {
		pc.CadenceOffset = defaults.CadenceOffset
	}
	if strings.TrimSpace(pc.RenewalPeriod) == "" {
		pc.RenewalPeriod = defaults.RenewalPeriod
	}
	if strings.TrimSpace(pc.LogLevel) == "" {
		pc.LogLevel = defaults.LogLevel
		if pc.LogFile {
			pc.LogLevel = defaultFileLogLevel
		}
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.MetricsPath = resolvePath(base, pc.MetricsPath)
	pc.DecisionList = resolvePath(base, pc.DecisionList)
	pc.OutputPath = resolvePath(base, pc.OutputPath)
	pc.RequestPath = resolvePath(base, pc.RequestPath)
	pc.RenewalPeriod = strings.TrimSpace(pc.RenewalPeriod)
	pc.LogLevel = strings.ToLower(strings.TrimSpace(pc.LogLevel))
}

func (pc *ProjectConfig) validate() error {
	if pc.CadenceOffset < 0 {
		return fmt.Errorf("cadence_offset must be >= 0")
	}
	if !strings.Contains(pc.DecisionList, VersionPlaceholder) {
		return fmt.Errorf("decision_list must contain %s", VersionPlaceholder)
	}
	if pc.OutputPath == pc.MetricsPath {
		return fmt.Errorf("output_path must differ from metrics_path")
	}
	if pc.RequestPath == pc.OutputPath || pc.RequestPath == pc.MetricsPath {
		return fmt.Errorf("request_path must differ from output_path and metrics_path")
	}
	switch pc.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

func expandVersion(template, version string) string {
	return strings.ReplaceAll(template, VersionPlaceholder, strings.TrimSpace(version))
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
