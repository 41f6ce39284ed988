package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/caarlos0/env/v11"
)

const (
	NamingBasename = "basename"
	NamingContent  = "content"
	NamingSession  = "session"

	defaultConfigPath    = "config.json"
	defaultServerAddress = ":8090"
	defaultSaveDir       = "saved_images"
	defaultMaxImageSide  = 1024
	defaultLockTTL       = 30

	envPrefix = "IMAGEQA_"
)

// DefaultSystemPrompt steers chat backends towards short VQA-style answers.
const DefaultSystemPrompt = "You answer questions about the attached image. " +
	"Reply with a short answer of a few words, no explanation."

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config" envPrefix:"BASIC_"`
	Model       ModelConfig               `json:"model" envPrefix:"MODEL_"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Redis       RedisConfig               `json:"redis" envPrefix:"REDIS_"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address" env:"SERVER_ADDRESS"`
	SaveDir       string `json:"save_dir" env:"SAVE_DIR"`
	Naming        string `json:"naming" env:"NAMING"`
}

// ModelConfig selects the pretrained model loaded once at startup.
type ModelConfig struct {
	Provider          string   `json:"provider" env:"PROVIDER"`
	Name              string   `json:"model" env:"NAME"`
	BaseURL           string   `json:"base_url" env:"BASE_URL"`
	APIKey            string   `json:"api_key" env:"API_KEY"`
	SystemPrompt      string   `json:"system_prompt" env:"SYSTEM_PROMPT"`
	MaxImageSide      int      `json:"max_image_side" env:"MAX_IMAGE_SIDE"`
	SkipSpecialTokens *bool    `json:"skip_special_tokens" env:"SKIP_SPECIAL_TOKENS"`
	Temperature       *float32 `json:"temperature" env:"TEMPERATURE"`
	MaxTokens         int      `json:"max_tokens" env:"MAX_TOKENS"`
}

type RedisConfig struct {
	Enabled        bool   `json:"enabled" env:"ENABLED"`
	Host           string `json:"host" env:"HOST"`
	Port           int    `json:"port" env:"PORT"`
	Username       string `json:"username" env:"USERNAME"`
	Password       string `json:"password" env:"PASSWORD"`
	DB             int    `json:"db" env:"DB"`
	LockTTLSeconds int    `json:"lock_ttl_seconds" env:"LOCK_TTL_SECONDS"`
}

// Load reads configuration from the provided path (defaults to config.json),
// then applies IMAGEQA_* environment overrides.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve config path")
	}

	var cfg Config
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, errors.Wrap(err, "decode config")
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "open config %s", absPath)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	if err := cfg.normalize(filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize(baseDir string) error {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = defaultServerAddress
	}
	if c.BasicConfig.SaveDir == "" {
		c.BasicConfig.SaveDir = defaultSaveDir
	}
	if !filepath.IsAbs(c.BasicConfig.SaveDir) {
		c.BasicConfig.SaveDir = filepath.Join(baseDir, c.BasicConfig.SaveDir)
	}
	c.BasicConfig.Naming = strings.ToLower(strings.TrimSpace(c.BasicConfig.Naming))
	switch c.BasicConfig.Naming {
	case "":
		c.BasicConfig.Naming = NamingBasename
	case NamingBasename, NamingContent, NamingSession:
	default:
		return errors.Errorf("unknown naming policy %q", c.BasicConfig.Naming)
	}

	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))
	if c.Model.Provider == "" {
		return errors.New("model provider must be configured")
	}
	// provider entries fill whatever the model section leaves out
	if prov, ok := c.Providers[c.Model.Provider]; ok {
		if c.Model.Name == "" {
			c.Model.Name = prov.Model
		}
		if c.Model.BaseURL == "" {
			c.Model.BaseURL = prov.BaseURL
		}
		if c.Model.APIKey == "" {
			c.Model.APIKey = prov.APIKey
		}
	}
	if c.Model.SystemPrompt == "" {
		c.Model.SystemPrompt = DefaultSystemPrompt
	}
	if c.Model.MaxImageSide == 0 {
		c.Model.MaxImageSide = defaultMaxImageSide
	}
	if c.Model.SkipSpecialTokens == nil {
		skip := true
		c.Model.SkipSpecialTokens = &skip
	}
	if c.Model.Temperature == nil {
		var zero float32
		c.Model.Temperature = &zero
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "127.0.0.1"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.LockTTLSeconds <= 0 {
		c.Redis.LockTTLSeconds = defaultLockTTL
	}
	return nil
}
