package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/floatchat/floatchat/internal/handlers"
	"github.com/floatchat/floatchat/internal/services"
	"gopkg.in/yaml.v3"
)

type responderConfig interface {
	responder(systemPrompt string, logger *slog.Logger) (handlers.Responder, error)
}

// BaseResponderConfig contains the common fields for all responder
// configurations.
type BaseResponderConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type storageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type config struct {
	Port           string          `yaml:"port"`
	Greeting       string          `yaml:"greeting"`
	SystemPrompt   string          `yaml:"systemPrompt"`
	HistoryLimit   int             `yaml:"historyLimit"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	Storage        storageConfig   `yaml:"storage"`
	Responder      responderConfig `yaml:"responder"`
}

type echoConfig struct {
	BaseResponderConfig `yaml:",inline"`
}

type openAIConfig struct {
	BaseResponderConfig `yaml:",inline"`
	APIKey              string `yaml:"apiKey"`
	BaseURL             string `yaml:"baseURL"`
}

type ollamaConfig struct {
	BaseResponderConfig `yaml:",inline"`
	Host                string `yaml:"host"`
}

type anthropicConfig struct {
	BaseResponderConfig `yaml:",inline"`
	APIKey              string `yaml:"apiKey"`
	MaxTokens           int    `yaml:"maxTokens"`
}

func defaultConfig() config {
	return config{
		Port:         "8000",
		HistoryLimit: handlers.DefaultHistoryLimit,
		Storage:      storageConfig{Backend: "memory"},
		Responder:    echoConfig{},
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		if err == io.EOF {
			return cfg, nil
		}
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port           string         `yaml:"port"`
		Greeting       string         `yaml:"greeting"`
		SystemPrompt   string         `yaml:"systemPrompt"`
		HistoryLimit   int            `yaml:"historyLimit"`
		AllowedOrigins []string       `yaml:"allowedOrigins"`
		Storage        storageConfig  `yaml:"storage"`
		Responder      map[string]any `yaml:"responder"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	if rawConfig.Port != "" {
		c.Port = rawConfig.Port
	}
	if rawConfig.Greeting != "" {
		c.Greeting = rawConfig.Greeting
	}
	c.SystemPrompt = rawConfig.SystemPrompt
	if rawConfig.HistoryLimit > 0 {
		c.HistoryLimit = rawConfig.HistoryLimit
	}
	c.AllowedOrigins = rawConfig.AllowedOrigins
	if rawConfig.Storage.Backend != "" {
		c.Storage = rawConfig.Storage
	}

	if rawConfig.Responder == nil {
		return nil
	}

	provider, ok := rawConfig.Responder["provider"].(string)
	if !ok {
		return fmt.Errorf("responder provider is required")
	}

	responderRawYAML, err := yaml.Marshal(rawConfig.Responder)
	if err != nil {
		return err
	}

	var responder responderConfig
	switch provider {
	case "echo":
		responder = &echoConfig{}
	case "openai":
		responder = &openAIConfig{}
	case "ollama":
		responder = &ollamaConfig{}
	case "anthropic":
		responder = &anthropicConfig{}
	default:
		return fmt.Errorf("unknown responder provider: %s", provider)
	}

	if err := yaml.Unmarshal(responderRawYAML, responder); err != nil {
		return err
	}

	c.Responder = responder

	return nil
}

func (echoConfig) responder(string, *slog.Logger) (handlers.Responder, error) {
	return services.NewEcho(), nil
}

func (o openAIConfig) responder(systemPrompt string, logger *slog.Logger) (handlers.Responder, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return services.NewOpenAI(apiKey, o.BaseURL, o.Model, systemPrompt, logger), nil
}

func (o ollamaConfig) responder(systemPrompt string, _ *slog.Logger) (handlers.Responder, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	return services.NewOllama(host, o.Model, systemPrompt), nil
}

func (a anthropicConfig) responder(systemPrompt string, _ *slog.Logger) (handlers.Responder, error) {
	if a.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if a.MaxTokens == 0 {
		return nil, fmt.Errorf("maxTokens is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return services.NewAnthropic(apiKey, a.Model, systemPrompt, a.MaxTokens), nil
}
