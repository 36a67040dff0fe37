package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/taskwire/internal/anthropic"
	"github.com/MikeSquared-Agency/taskwire/internal/gemini"
	"github.com/MikeSquared-Agency/taskwire/internal/llm"
	"github.com/MikeSquared-Agency/taskwire/internal/openai"
)

var ErrUnknownProvider = errors.New("unknown llm provider")

type ProviderConfig struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// NewProvider builds the provider named by cfg.Name (anthropic, openai or gemini).
func NewProvider(cfg ProviderConfig) (llm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", "anthropic":
		c, err := anthropic.NewClient(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		c.SetBaseURL(cfg.BaseURL)
		return c, nil
	case "openai":
		c, err := openai.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		c, err := gemini.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
	}
}
