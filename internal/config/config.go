// Package config resolves settings from built-in defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	OutputDir string         `yaml:"output_dir"`
	LogLevel  string         `yaml:"log_level"`
	Solver    SolverConfig   `yaml:"solver"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
	Render    RenderConfig   `yaml:"render"`
	Database  DatabaseConfig `yaml:"database"`
}

type SolverConfig struct {
	Backend   string `yaml:"backend"` // python or gonum
	Python    string `yaml:"python"`  // interpreter
	Script    string `yaml:"script"`
	Timeout   string `yaml:"timeout"`    // Go duration, e.g. 5m
	MaxOutput int    `yaml:"max_output"` // bytes of solver stdout kept
}

type PipelineConfig struct {
	Form string `yaml:"form"` // auto, direct or snapshot
	Sort bool   `yaml:"sort"`
}

type RenderConfig struct {
	Size    int `yaml:"size"`    // canvas edge in pixels
	Count   int `yaml:"count"`   // eigenfaces rendered, 0 for all
	Engines int `yaml:"engines"` // concurrent encoders
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // PostgreSQL connection URL
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		OutputDir: "out",
		LogLevel:  "info",
		Solver: SolverConfig{
			Backend:   "python",
			Python:    "python3",
			Script:    "python/eigvals.py",
			Timeout:   "5m",
			MaxOutput: 256 * 1024 * 1024,
		},
		Pipeline: PipelineConfig{Form: "auto"},
		Render:   RenderConfig{Size: 256, Engines: 4},
		Database: DatabaseConfig{URL: "postgres://localhost:5432/eigenfaces"},
	}
}

// Load builds the effective configuration. path may be empty; a missing .env
// is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString("EIGENFACES_OUTPUT", &c.OutputDir)
	envString("EIGENFACES_LOG_LEVEL", &c.LogLevel)
	envString("EIGENFACES_SOLVER", &c.Solver.Backend)
	envString("EIGENFACES_PYTHON", &c.Solver.Python)
	envString("EIGENFACES_SCRIPT", &c.Solver.Script)
	envString("EIGENFACES_SOLVER_TIMEOUT", &c.Solver.Timeout)
	c.Solver.MaxOutput = envInt("EIGENFACES_SOLVER_MAX_OUTPUT", c.Solver.MaxOutput)
	envString("EIGENFACES_FORM", &c.Pipeline.Form)
	if s := os.Getenv("EIGENFACES_SORT"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			c.Pipeline.Sort = b
		}
	}
	c.Render.Size = envInt("EIGENFACES_RENDER_SIZE", c.Render.Size)
	c.Render.Engines = envInt("EIGENFACES_ENGINES", c.Render.Engines)
	c.Render.Count = envCount("EIGENFACES_RENDER_COUNT", c.Render.Count)

	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	} else if host := os.Getenv("POSTGRES_HOST"); host != "" {
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		c.Database.URL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"), host, port, os.Getenv("POSTGRES_DB"))
	}
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Solver.Backend) {
	case "python", "gonum":
	default:
		return fmt.Errorf("config: unknown solver backend %q", c.Solver.Backend)
	}
	if _, err := c.SolverTimeout(); err != nil {
		return err
	}
	if c.Render.Size <= 0 {
		return fmt.Errorf("config: render size must be positive, got %d", c.Render.Size)
	}
	if c.Render.Engines <= 0 {
		return fmt.Errorf("config: engines must be positive, got %d", c.Render.Engines)
	}
	if c.Render.Count < 0 {
		return fmt.Errorf("config: render count must not be negative, got %d", c.Render.Count)
	}
	return nil
}

// SolverTimeout parses Solver.Timeout; an empty value means no override.
func (c *Config) SolverTimeout() (time.Duration, error) {
	if c.Solver.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Solver.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config: invalid solver timeout %q", c.Solver.Timeout)
	}
	return d, nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// envInt reads a positive integer, keeping def when unset or invalid.
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}

// envCount is envInt for counts where 0 is meaningful.
func envCount(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return def
}
