package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultProjectName = "WhatsApp Tasks"
	DefaultSectionName = "WhatsApp Tasks"
)

type Config struct {
	Port           int    `toml:"port"`
	NatsURL        string `toml:"nats_url"`
	NatsToken      string `toml:"nats_token"`
	DatabaseURL    string `toml:"database_url"`
	LocalDBPath    string `toml:"local_db"`
	CheckpointFile string `toml:"checkpoint_file"`
	BackfillState  string `toml:"backfill_state"`
	ImportDir      string `toml:"import_dir"`
	LogLevel       string `toml:"log_level"`

	LLMProvider string `toml:"llm_provider"`
	LLMModel    string `toml:"llm_model"`
	LLMAPIKey   string `toml:"llm_api_key"`
	LLMBaseURL  string `toml:"llm_base_url"`

	LookbackDays       int    `toml:"lookback_days"`
	MaxTranscriptLines int    `toml:"max_transcript_lines"`
	CompanyID          string `toml:"company_id"`
	CompanyName        string `toml:"company_name"`
	ProjectName        string `toml:"project_name"`
	SectionName        string `toml:"section_name"`
	Timezone           string `toml:"timezone"`

	SlackBotToken string `toml:"slack_bot_token"`
	SlackChannel  string `toml:"slack_channel"`
	APIToken      string `toml:"api_token"`
}

func defaults() Config {
	return Config{
		Port:               8760,
		LocalDBPath:        "~/.taskwire/workspace.db",
		BackfillState:      "~/.taskwire/backfill-state.json",
		ImportDir:          "~/.taskwire/imports",
		LogLevel:           "info",
		LLMProvider:        "anthropic",
		LookbackDays:       30,
		MaxTranscriptLines: 2000,
		ProjectName:        DefaultProjectName,
		SectionName:        DefaultSectionName,
		Timezone:           "UTC",
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order of precedence.
func Load() (Config, error) {
	cfg := defaults()

	if path := configFilePath(); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = envInt("TASKWIRE_PORT", cfg.Port)
	cfg.NatsURL = envStr("NATS_URL", cfg.NatsURL)
	cfg.NatsToken = envStr("NATS_TOKEN", cfg.NatsToken)
	cfg.DatabaseURL = envStr("DATABASE_URL", cfg.DatabaseURL)
	cfg.LocalDBPath = expandHome(envStr("TASKWIRE_DB", cfg.LocalDBPath))
	cfg.CheckpointFile = expandHome(envStr("TASKWIRE_CHECKPOINT_FILE", cfg.CheckpointFile))
	cfg.BackfillState = expandHome(envStr("TASKWIRE_BACKFILL_STATE", cfg.BackfillState))
	cfg.ImportDir = expandHome(envStr("TASKWIRE_IMPORT_DIR", cfg.ImportDir))
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)

	cfg.LLMProvider = strings.ToLower(envStr("TASKWIRE_LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = envStr("TASKWIRE_MODEL", cfg.LLMModel)
	cfg.LLMAPIKey = envStr("TASKWIRE_LLM_API_KEY", cfg.LLMAPIKey)
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = envStr(providerKeyVar(cfg.LLMProvider), "")
	}
	cfg.LLMBaseURL = envStr("TASKWIRE_LLM_BASE_URL", cfg.LLMBaseURL)

	cfg.LookbackDays = envInt("TASKWIRE_LOOKBACK_DAYS", cfg.LookbackDays)
	cfg.MaxTranscriptLines = envInt("TASKWIRE_MAX_LINES", cfg.MaxTranscriptLines)
	cfg.CompanyID = envStr("TASKWIRE_COMPANY_ID", cfg.CompanyID)
	cfg.CompanyName = envStr("TASKWIRE_COMPANY_NAME", cfg.CompanyName)
	cfg.ProjectName = envStr("TASKWIRE_PROJECT_NAME", cfg.ProjectName)
	cfg.SectionName = envStr("TASKWIRE_SECTION_NAME", cfg.SectionName)
	cfg.Timezone = envStr("TASKWIRE_TIMEZONE", cfg.Timezone)

	cfg.SlackBotToken = envStr("SLACK_BOT_TOKEN", cfg.SlackBotToken)
	cfg.SlackChannel = envStr("SLACK_IMPORT_CHANNEL", cfg.SlackChannel)
	cfg.APIToken = envStr("TASKWIRE_API_TOKEN", cfg.APIToken)

	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 30
	}
	if cfg.MaxTranscriptLines <= 0 {
		cfg.MaxTranscriptLines = 2000
	}

	return cfg, nil
}

// LoadDotEnv loads .env.local and .env from the working directory. Variables
// already present in the environment are left alone.
func LoadDotEnv() error {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("TASKWIRE_DOTENV"))); v == "0" || v == "false" || v == "off" {
		return nil
	}
	for _, p := range []string{".env.local", ".env"} {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func configFilePath() string {
	if p := os.Getenv("TASKWIRE_CONFIG"); p != "" {
		return expandHome(p)
	}
	p := expandHome("~/.config/taskwire/config.toml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func providerKeyVar(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
