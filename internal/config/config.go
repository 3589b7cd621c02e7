package config

import "time"

// Config holds all application configuration.
type Config struct {
	Reader    Reader    `mapstructure:"reader"`
	Segmenter Segmenter `mapstructure:"segmenter"`
	Embedder  Embedder  `mapstructure:"embedder"`
	Generator Generator `mapstructure:"generator"`
	Mongo     Mongo     `mapstructure:"mongo"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
}

// Reader holds content-extraction proxy configuration.
type Reader struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Segmenter holds segmentation service configuration.
type Segmenter struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Embedder holds embedding service configuration.
type Embedder struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Generator holds generative-language service configuration.
type Generator struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Mongo holds the embeddings collection configuration.
// An empty URI disables persistence.
type Mongo struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Pipeline holds orchestrator configuration.
type Pipeline struct {
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Reader: Reader{
			Endpoint: "https://r.jina.ai",
			Timeout:  60 * time.Second,
		},
		Segmenter: Segmenter{
			Endpoint: "https://api.jina.ai/v1/segment",
			Timeout:  30 * time.Second,
		},
		Embedder: Embedder{
			Endpoint: "https://api.jina.ai/v1/embeddings",
			Model:    "jina-embeddings-v3",
			Timeout:  60 * time.Second,
		},
		Generator: Generator{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-1.5-flash",
			Timeout: 120 * time.Second,
		},
		Mongo: Mongo{
			URI:        "", // persistence disabled unless configured
			Database:   "askpage",
			Collection: "embeddings",
			Timeout:    10 * time.Second,
		},
		Pipeline: Pipeline{
			StageTimeout: 60 * time.Second,
		},
	}
}
