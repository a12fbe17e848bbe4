// Package config loads the exporter settings from a YAML file, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FormatXML  = "xml"
	FormatCSV  = "csv"
	FormatBoth = "both"
)

const (
	DirName  = ".testrail_exporter"
	FileName = "config.yaml"

	EnvURL         = "TESTRAIL_URL"
	EnvUser        = "TESTRAIL_USER"
	EnvKey         = "TESTRAIL_KEY"
	EnvExportDir   = "TESTRAIL_EXPORT_DIR"
	EnvEndpoint    = "TESTRAIL_ENDPOINT"
	EnvConcurrency = "TESTRAIL_CONCURRENCY"

	defaultConcurrency = 4
)

var (
	ErrInvalidFormat      = errors.New("invalid export format")
	ErrMissingCredentials = errors.New("testrail url, username and api key are required")
)

type Config struct {
	TestRail TestRail `yaml:"testrail"`
	Export   Export   `yaml:"export"`
}

type TestRail struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	APIKey   string `yaml:"api_key"`
}

type Export struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"`

	// Columns of the Xray CSV. Empty means all columns.
	Columns []string `yaml:"columns,omitempty"`

	// Endpoint is prepended to rewritten attachment links. Defaults to the TestRail URL.
	Endpoint string `yaml:"endpoint,omitempty"`

	Concurrency int `yaml:"concurrency,omitempty"`
}

// DefaultPath returns ~/.testrail_exporter/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("os.UserHomeDir: %w", err)
	}

	return filepath.Join(home, DirName, FileName), nil
}

// Load reads the config file at path, then the given .env files (./.env when none are
// given), then the process environment. A missing config or .env file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	return load(path, envFiles, os.LookupEnv)
}

func load(path string, envFiles []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	dotenv, err := readDotenv(envFiles...)
	if err != nil {
		return nil, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}

		v, ok := dotenv[key]

		return v, ok
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, cfg.Validate()
}

// LoadFile loads and parses a YAML config file. A missing file yields an empty config.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}

		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a Config without applying defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}

func readDotenv(files ...string) (map[string]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	out := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("godotenv.Read %s: %w", file, err)
		}

		for k, v := range values {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}

	return out, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvURL, &cfg.TestRail.URL)
	set(EnvUser, &cfg.TestRail.Username)
	set(EnvKey, &cfg.TestRail.APIKey)
	set(EnvExportDir, &cfg.Export.Directory)
	set(EnvEndpoint, &cfg.Export.Endpoint)

	if v, ok := lookup(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
		cfg.Export.Concurrency = n
	}

	return nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(cfg *Config) {
	cfg.TestRail.URL = strings.TrimSpace(cfg.TestRail.URL)

	if cfg.Export.Directory == "" {
		cfg.Export.Directory = filepath.Join(homeDir(), "Documents")
	}
	cfg.Export.Directory = expandHome(cfg.Export.Directory)

	if cfg.Export.Format == "" {
		cfg.Export.Format = FormatBoth
	}
	cfg.Export.Format = strings.ToLower(cfg.Export.Format)

	if cfg.Export.Endpoint == "" && cfg.TestRail.URL != "" {
		cfg.Export.Endpoint = strings.TrimRight(cfg.TestRail.URL, "/") + "/"
	}

	if cfg.Export.Concurrency <= 0 {
		cfg.Export.Concurrency = defaultConcurrency
	}
}

// Validate checks the export settings.
func (c *Config) Validate() error {
	switch c.Export.Format {
	case FormatXML, FormatCSV, FormatBoth:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Export.Format)
	}
}

// RequireCredentials reports whether the settings for the REST API are complete.
func (c *Config) RequireCredentials() error {
	if c.TestRail.URL == "" || c.TestRail.Username == "" || c.TestRail.APIKey == "" {
		return ErrMissingCredentials
	}

	return nil
}

// WantsXML reports whether the export format includes the XML document.
func (e Export) WantsXML() bool {
	return e.Format == FormatXML || e.Format == FormatBoth
}

// WantsCSV reports whether the export format includes the Xray CSV.
func (e Export) WantsCSV() bool {
	return e.Format == FormatCSV || e.Format == FormatBoth
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return home
}

func expandHome(pth string) string {
	if pth == "~" {
		return homeDir()
	}

	if strings.HasPrefix(pth, "~/") {
		return filepath.Join(homeDir(), pth[2:])
	}

	return pth
}
