// Package config loads run configuration from an optional YAML file with
// environment variable overrides. Command-line flags are applied on top by
// each command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"schemagroup/internal/textio"
)

// Config is the full configuration shared by the probe, group and upload
// commands. Each command reads only the sections it needs.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Sampling SamplingConfig `yaml:"sampling"`
	Group    GroupConfig    `yaml:"group"`
	DDL      DDLConfig      `yaml:"ddl"`
	Upload   UploadConfig   `yaml:"upload"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// InputConfig selects the files to read and how to decode them.
type InputConfig struct {
	Dir        string   `yaml:"dir" env:"SCHEMAGROUP_INPUT_DIR" env-default:""`
	Extensions []string `yaml:"extensions" env:"SCHEMAGROUP_EXTENSIONS" env-default:".csv,.tsv,.txt,.dat"`
	// Flat disables descent into subdirectories. Booleans in this package are
	// all false by default: cleanenv applies env-default over a zero YAML value.
	Flat       bool     `yaml:"flat" env:"SCHEMAGROUP_FLAT"`
	Encoding   string   `yaml:"encoding" env:"SCHEMAGROUP_ENCODING" env-default:"utf-8"`
	NullValues []string `yaml:"null_values" env:"SCHEMAGROUP_NULL_VALUES"`
}

// SamplingConfig bounds per-file read cost.
type SamplingConfig struct {
	DetectLines int `yaml:"detect_lines" env:"SCHEMAGROUP_DETECT_LINES" env-default:"5"`
	// TypeRows is the row sample used for DDL type inference.
	TypeRows int `yaml:"type_rows" env:"SCHEMAGROUP_TYPE_ROWS" env-default:"100"`
	// GroupRows is the row sample used when fingerprinting for grouping.
	GroupRows int `yaml:"group_rows" env:"SCHEMAGROUP_GROUP_ROWS" env-default:"20"`
}

// GroupConfig controls classification and combination.
type GroupConfig struct {
	OutputDir    string `yaml:"output_dir" env:"SCHEMAGROUP_OUTPUT_DIR" env-default:"combined_files"`
	OutputFormat string `yaml:"output_format" env:"SCHEMAGROUP_OUTPUT_FORMAT" env-default:"csv"`
	MinFiles     int    `yaml:"min_files" env:"SCHEMAGROUP_MIN_FILES" env-default:"2"`
	// MaxFiles caps how many files of one group are combined. Zero means all.
	MaxFiles int `yaml:"max_files" env:"SCHEMAGROUP_MAX_FILES_PER_GROUP" env-default:"0"`
	// Workers above one classifies files in parallel.
	Workers    int  `yaml:"workers" env:"SCHEMAGROUP_WORKERS" env-default:"1"`
	HTMLReport bool `yaml:"html_report" env:"SCHEMAGROUP_HTML_REPORT"`
}

// DDLConfig controls the schema-detection script.
type DDLConfig struct {
	OutputFile string `yaml:"output_file" env:"SCHEMAGROUP_DDL_FILE" env-default:"table_ddl.sql"`
}

// UploadConfig describes the destination database and batching.
type UploadConfig struct {
	Backend string `yaml:"backend" env:"SCHEMAGROUP_DB_BACKEND" env-default:"mssql"`
	// DSN, when set, wins over the discrete connection fields.
	DSN                string `yaml:"-" env:"SCHEMAGROUP_DSN"`
	Host               string `yaml:"host" env:"SCHEMAGROUP_DB_HOST" env-default:"localhost"`
	Port               int    `yaml:"port" env:"SCHEMAGROUP_DB_PORT" env-default:"0"`
	Database           string `yaml:"database" env:"SCHEMAGROUP_DB_NAME" env-default:""`
	User               string `yaml:"user" env:"SCHEMAGROUP_DB_USER" env-default:""`
	Password           string `yaml:"-" env:"SCHEMAGROUP_DB_PASSWORD"`
	TrustedConnection  bool   `yaml:"trusted_connection" env:"SCHEMAGROUP_DB_TRUSTED"`
	Encrypt            string `yaml:"encrypt" env:"SCHEMAGROUP_DB_ENCRYPT" env-default:""`
	SSLMode            string `yaml:"ssl_mode" env:"SCHEMAGROUP_DB_SSLMODE" env-default:"disable"`
	ChunkSize          int    `yaml:"chunk_size" env:"SCHEMAGROUP_CHUNK_SIZE" env-default:"10000"`
	MaxFiles           int    `yaml:"max_files" env:"SCHEMAGROUP_MAX_FILES" env-default:"0"`
	SkipNumericCleanup bool   `yaml:"skip_numeric_cleanup" env:"SCHEMAGROUP_SKIP_NUMERIC_CLEANUP"`
	ReportDir          string `yaml:"report_dir" env:"SCHEMAGROUP_REPORT_DIR" env-default:"."`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	Backend    string        `yaml:"backend" env:"METRICS_BACKEND" env-default:"none"`
	Tags       string        `yaml:"tags" env:"METRICS_TAGS" env-default:""`
	FlushEvery time.Duration `yaml:"flush_every" env:"METRICS_FLUSH_EVERY" env-default:"60s"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" env:"SCHEMAGROUP_LOG_LEVEL" env-default:"info"`
	// Dir holds the run log. Empty means the tool's own default: the output
	// folder for grouping, the working directory otherwise.
	Dir string `yaml:"dir" env:"SCHEMAGROUP_LOG_DIR"`
}

// Supported enumerations.
var (
	OutputFormats = []string{"csv", "parquet", "excel"}
	Backends      = []string{"mssql", "postgres", "sqlite"}
	MetricsKinds  = []string{"none", "datadog"}
)

// Load reads path (YAML) with environment overrides. An empty path reads
// the environment and defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read config from env: %w", err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration with every env-default applied and no
// file or environment input.
func Default() *Config {
	cfg := &Config{}
	_ = cleanenv.ReadEnv(cfg)
	return cfg
}

// Usage describes every environment variable, for -help output.
func Usage() string {
	d, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return d
}

// Validate reports every problem at once. needInput makes a missing or
// non-directory Input.Dir an error. A known Upload.Backend is rewritten to
// its canonical name.
func (c *Config) Validate(needInput bool) error {
	var errs []error

	if needInput {
		if c.Input.Dir == "" {
			errs = append(errs, errors.New("input.dir is required"))
		} else if fi, err := os.Stat(c.Input.Dir); err != nil {
			errs = append(errs, fmt.Errorf("input.dir: %w", err))
		} else if !fi.IsDir() {
			errs = append(errs, fmt.Errorf("input.dir %s is not a directory", c.Input.Dir))
		}
	}
	if _, err := textio.LookupEncoding(c.Input.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("input.encoding: %w", err))
	}

	if c.Sampling.DetectLines < 2 {
		errs = append(errs, fmt.Errorf("sampling.detect_lines must be >= 2, got %d", c.Sampling.DetectLines))
	}
	if c.Sampling.TypeRows < 1 {
		errs = append(errs, fmt.Errorf("sampling.type_rows must be >= 1, got %d", c.Sampling.TypeRows))
	}
	if c.Sampling.GroupRows < 1 {
		errs = append(errs, fmt.Errorf("sampling.group_rows must be >= 1, got %d", c.Sampling.GroupRows))
	}

	if !oneOf(c.Group.OutputFormat, OutputFormats) {
		errs = append(errs, fmt.Errorf("group.output_format %q: want one of %s", c.Group.OutputFormat, strings.Join(OutputFormats, ", ")))
	}
	if c.Group.MinFiles < 1 {
		errs = append(errs, fmt.Errorf("group.min_files must be >= 1, got %d", c.Group.MinFiles))
	}
	if c.Group.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("group.max_files must be >= 0, got %d", c.Group.MaxFiles))
	}
	if c.Group.Workers < 1 {
		errs = append(errs, fmt.Errorf("group.workers must be >= 1, got %d", c.Group.Workers))
	}

	c.Upload.Backend = CanonicalBackend(c.Upload.Backend)
	if !oneOf(c.Upload.Backend, Backends) {
		errs = append(errs, fmt.Errorf("upload.backend %q: want one of %s", c.Upload.Backend, strings.Join(Backends, ", ")))
	}
	if c.Upload.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("upload.chunk_size must be > 0, got %d", c.Upload.ChunkSize))
	}
	if c.Upload.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("upload.max_files must be >= 0, got %d", c.Upload.MaxFiles))
	}

	if !oneOf(c.Metrics.Backend, MetricsKinds) {
		errs = append(errs, fmt.Errorf("metrics.backend %q: want one of %s", c.Metrics.Backend, strings.Join(MetricsKinds, ", ")))
	}

	return errors.Join(errs...)
}

// CanonicalBackend trims and lowercases a backend name and maps the
// postgresql and sqlserver aliases onto postgres and mssql.
func CanonicalBackend(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "postgresql":
		return "postgres"
	case "sqlserver":
		return "mssql"
	}
	return s
}

func oneOf(v string, set []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
