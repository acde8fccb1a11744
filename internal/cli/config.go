package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelConfig names one model family and the URL its basis archive is
// downloaded from.
type ModelConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Config is the in-memory representation of gosky.yaml. Every field has
// a default; the file and the GOSKY_* environment variables override.
type Config struct {
	HTTP struct {
		Addr       string `yaml:"addr"`
		TrustProxy bool   `yaml:"trust_proxy"`
	} `yaml:"http"`

	Cache struct {
		Dir         string `yaml:"dir"`
		MaxFiles    int    `yaml:"max_files"`
		MaxAgeHours int    `yaml:"max_age_hours"`
	} `yaml:"cache"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Models []ModelConfig `yaml:"models,omitempty"`
}

const archiveBaseURL = "https://data.gosky.dev/archives"

// DefaultConfig returns the built-in configuration: all four model
// families, a per-user cache directory and a monthly refresh window.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.Cache.Dir = defaultCacheDir()
	cfg.Cache.MaxFiles = 3
	cfg.Cache.MaxAgeHours = 24 * 30
	cfg.Log.Level = "info"
	for _, name := range []string{"gsm08", "gsm16", "lfsm", "haslam"} {
		cfg.Models = append(cfg.Models, ModelConfig{
			Name: name,
			URL:  archiveBaseURL + "/" + name + ".skb",
		})
	}
	return cfg
}

func defaultCacheDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".gosky", "cache")
	}
	return filepath.Join(os.TempDir(), "gosky", "cache")
}

// LoadConfig builds the effective configuration: defaults, then the
// YAML file (the given path, or ~/.gosky/gosky.yaml when present), then
// environment overrides. A missing default-location file is not an
// error; an explicitly named file must exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".gosky", "gosky.yaml")
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case explicit:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GOSKY_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("GOSKY_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GOSKY_TRUST_PROXY must be a boolean, got %q", v)
		}
		c.HTTP.TrustProxy = b
	}
	if v := os.Getenv("GOSKY_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("GOSKY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GOSKY_ARCHIVE_MAX_AGE_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("GOSKY_ARCHIVE_MAX_AGE_HOURS must be a non-negative integer, got %q", v)
		}
		c.Cache.MaxAgeHours = n
	}
	return nil
}

// ModelURL returns the archive URL for a model name, or empty when the
// model is not configured.
func (c *Config) ModelURL(name string) string {
	for _, m := range c.Models {
		if m.Name == name {
			return m.URL
		}
	}
	return ""
}

// MaxAge returns the archive refresh window as a duration.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Cache.MaxAgeHours) * time.Hour
}
