package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, []string{".csv", ".tsv", ".txt", ".dat"}, cfg.Input.Extensions)
	require.False(t, cfg.Input.Flat)
	require.Equal(t, "utf-8", cfg.Input.Encoding)
	require.Equal(t, 5, cfg.Sampling.DetectLines)
	require.Equal(t, 100, cfg.Sampling.TypeRows)
	require.Equal(t, 20, cfg.Sampling.GroupRows)
	require.Equal(t, "combined_files", cfg.Group.OutputDir)
	require.Equal(t, "csv", cfg.Group.OutputFormat)
	require.Equal(t, 2, cfg.Group.MinFiles)
	require.Equal(t, 1, cfg.Group.Workers)
	require.Equal(t, "table_ddl.sql", cfg.DDL.OutputFile)
	require.Equal(t, "mssql", cfg.Upload.Backend)
	require.Equal(t, 10000, cfg.Upload.ChunkSize)
	require.False(t, cfg.Upload.SkipNumericCleanup)
	require.Equal(t, "none", cfg.Metrics.Backend)
	require.Equal(t, 60*time.Second, cfg.Metrics.FlushEvery)

	require.NoError(t, cfg.Validate(false))
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schemagroup.yaml")
	yaml := `
input:
  dir: ` + dir + `
  extensions: [".csv"]
  flat: true
group:
  output_format: parquet
  min_files: 3
upload:
  backend: postgres
  chunk_size: 500
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("SCHEMAGROUP_CHUNK_SIZE", "250")
	t.Setenv("SCHEMAGROUP_DB_PASSWORD", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, dir, cfg.Input.Dir)
	require.Equal(t, []string{".csv"}, cfg.Input.Extensions)
	require.True(t, cfg.Input.Flat)
	require.Equal(t, "parquet", cfg.Group.OutputFormat)
	require.Equal(t, 3, cfg.Group.MinFiles)
	require.Equal(t, "postgres", cfg.Upload.Backend)
	require.Equal(t, 250, cfg.Upload.ChunkSize)
	require.Equal(t, "from-env", cfg.Upload.Password)
	// Untouched sections keep their defaults.
	require.Equal(t, 100, cfg.Sampling.TypeRows)

	require.NoError(t, cfg.Validate(true))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Input.Dir = filepath.Join(t.TempDir(), "missing")
	cfg.Input.Encoding = "klingon"
	cfg.Group.OutputFormat = "xml"
	cfg.Group.MinFiles = 0
	cfg.Upload.Backend = "oracle"
	cfg.Upload.ChunkSize = 0
	cfg.Metrics.Backend = "statsd"

	err := cfg.Validate(true)
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"input.dir",
		"input.encoding",
		`group.output_format "xml"`,
		"group.min_files",
		`upload.backend "oracle"`,
		"upload.chunk_size",
		`metrics.backend "statsd"`,
	} {
		require.True(t, strings.Contains(msg, want), "missing %q in:\n%s", want, msg)
	}
}

func TestValidate_InputMustBeDirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.csv")
	require.NoError(t, os.WriteFile(f, []byte("a\n"), 0o644))

	cfg := Default()
	cfg.Input.Dir = f
	require.ErrorContains(t, cfg.Validate(true), "is not a directory")

	cfg.Input.Dir = ""
	require.ErrorContains(t, cfg.Validate(true), "input.dir is required")
	require.NoError(t, cfg.Validate(false))
}

func TestValidate_CaseInsensitiveEnums(t *testing.T) {
	cfg := Default()
	cfg.Group.OutputFormat = " Excel "
	cfg.Upload.Backend = "SQLite"
	require.NoError(t, cfg.Validate(false))
	require.Equal(t, "sqlite", cfg.Upload.Backend)
}

func TestValidate_BackendAliases(t *testing.T) {
	for in, want := range map[string]string{
		"postgresql":  "postgres",
		" SQLServer ": "mssql",
		"mssql":       "mssql",
	} {
		cfg := Default()
		cfg.Upload.Backend = in
		require.NoError(t, cfg.Validate(false), in)
		require.Equal(t, want, cfg.Upload.Backend)
	}
}

func TestUsage(t *testing.T) {
	u := Usage()
	require.Contains(t, u, "SCHEMAGROUP_INPUT_DIR")
	require.Contains(t, u, "METRICS_TAGS")
}
