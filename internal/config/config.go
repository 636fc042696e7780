// Package config loads docgraph configuration from a .env file, an
// optional YAML settings file and DOCGRAPH_* environment variables, in
// that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the settings file looked up in the working directory.
const DefaultFile = "docgraph.yaml"

// Environment variable names.
const (
	EnvDataDir        = "DOCGRAPH_DATA_DIR"
	EnvLogLevel       = "DOCGRAPH_LOG_LEVEL"
	EnvOllamaURL      = "DOCGRAPH_OLLAMA_URL"
	EnvEmbedModel     = "DOCGRAPH_EMBED_MODEL"
	EnvEmbedTimeout   = "DOCGRAPH_EMBED_TIMEOUT"
	EnvAutoVisualize  = "DOCGRAPH_AUTO_VISUALIZE"
	EnvIncludeGraph   = "DOCGRAPH_INCLUDE_GRAPH"
	EnvComplexity     = "DOCGRAPH_COMPLEXITY"
	EnvVisualizations = "DOCGRAPH_VISUALIZATIONS"
	EnvMaxConcurrency = "DOCGRAPH_MAX_CONCURRENCY"
	EnvFetchTimeout   = "DOCGRAPH_FETCH_TIMEOUT"
)

// Config is the resolved docgraph configuration.
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Session  SessionDefault `yaml:"session"`
}

// EncoderConfig selects the sentence encoder. An empty URL disables it
// and every embedding uses the deterministic hash fallback.
type EncoderConfig struct {
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionDefault holds the settings applied to new analysis sessions.
type SessionDefault struct {
	AutoVisualize            bool          `yaml:"auto_visualize"`
	IncludeKnowledgeGraph    bool          `yaml:"include_knowledge_graph"`
	ComplexityPreference     string        `yaml:"complexity_preference"`
	VisualizationPreferences []string      `yaml:"visualization_preferences"`
	MaxConcurrency           int           `yaml:"max_concurrency"`
	FetchTimeout             time.Duration `yaml:"fetch_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:  ".docgraph",
		LogLevel: "info",
		Encoder: EncoderConfig{
			Model:   "nomic-embed-text",
			Timeout: 30 * time.Second,
		},
		Session: SessionDefault{
			AutoVisualize:         true,
			IncludeKnowledgeGraph: true,
			ComplexityPreference:  "intermediate",
		},
	}
}

// Load resolves the configuration. path names the YAML settings file;
// when empty, DefaultFile is used if it exists. A missing file is not an
// error, a malformed one is.
func Load(path string) (*Config, error) {
	LoadEnv()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataDir = GetEnvString(EnvDataDir, c.DataDir)
	c.LogLevel = GetEnvString(EnvLogLevel, c.LogLevel)
	c.Encoder.URL = GetEnvString(EnvOllamaURL, c.Encoder.URL)
	c.Encoder.Model = GetEnvString(EnvEmbedModel, c.Encoder.Model)
	c.Encoder.Timeout = GetEnvDuration(EnvEmbedTimeout, c.Encoder.Timeout)
	c.Session.AutoVisualize = GetEnvBool(EnvAutoVisualize, c.Session.AutoVisualize)
	c.Session.IncludeKnowledgeGraph = GetEnvBool(EnvIncludeGraph, c.Session.IncludeKnowledgeGraph)
	c.Session.ComplexityPreference = GetEnvString(EnvComplexity, c.Session.ComplexityPreference)
	c.Session.VisualizationPreferences = GetEnvList(EnvVisualizations, c.Session.VisualizationPreferences)
	c.Session.MaxConcurrency = GetEnvInt(EnvMaxConcurrency, c.Session.MaxConcurrency)
	c.Session.FetchTimeout = GetEnvDuration(EnvFetchTimeout, c.Session.FetchTimeout)
}
