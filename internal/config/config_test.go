package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndProviderFallback(t *testing.T) {
	path := writeConfig(t, `{
		"model": {"provider": "OpenAI"},
		"providers": {"openai": {"base_url": "http://llm.local/v1", "model": "gpt-4o-mini", "api_key": "k"}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":8090" {
		t.Fatalf("unexpected server address %q", cfg.BasicConfig.ServerAddress)
	}
	wantDir := filepath.Join(filepath.Dir(path), "saved_images")
	if cfg.BasicConfig.SaveDir != wantDir {
		t.Fatalf("save dir: want %s got %s", wantDir, cfg.BasicConfig.SaveDir)
	}
	if cfg.BasicConfig.Naming != NamingBasename {
		t.Fatalf("naming: want basename got %s", cfg.BasicConfig.Naming)
	}
	if cfg.Model.Provider != "openai" || cfg.Model.Name != "gpt-4o-mini" || cfg.Model.APIKey != "k" {
		t.Fatalf("provider fallback not applied: %+v", cfg.Model)
	}
	if cfg.Model.BaseURL != "http://llm.local/v1" {
		t.Fatalf("base url fallback not applied: %s", cfg.Model.BaseURL)
	}
	if cfg.Model.SkipSpecialTokens == nil || !*cfg.Model.SkipSpecialTokens {
		t.Fatalf("skip special tokens should default to true")
	}
	if cfg.Model.Temperature == nil || *cfg.Model.Temperature != 0 {
		t.Fatalf("temperature should default to 0")
	}
	if cfg.Model.MaxImageSide != 1024 {
		t.Fatalf("max image side default: got %d", cfg.Model.MaxImageSide)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"basic_config": {"server_address": ":9000", "naming": "basename"},
		"model": {"provider": "ollama", "model": "llava"}
	}`)
	t.Setenv("IMAGEQA_BASIC_SERVER_ADDRESS", ":7000")
	t.Setenv("IMAGEQA_BASIC_NAMING", "session")
	t.Setenv("IMAGEQA_MODEL_NAME", "llava:13b")
	t.Setenv("IMAGEQA_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":7000" {
		t.Fatalf("server address override missing: %s", cfg.BasicConfig.ServerAddress)
	}
	if cfg.BasicConfig.Naming != NamingSession {
		t.Fatalf("naming override missing: %s", cfg.BasicConfig.Naming)
	}
	if cfg.Model.Name != "llava:13b" {
		t.Fatalf("model override missing: %s", cfg.Model.Name)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Port != 6379 || cfg.Redis.LockTTLSeconds != 30 {
		t.Fatalf("redis defaults wrong: %+v", cfg.Redis)
	}
}

func TestLoadRejectsUnknownNaming(t *testing.T) {
	path := writeConfig(t, `{"basic_config": {"naming": "random"}, "model": {"provider": "ollama"}}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown naming policy")
	}
}

func TestLoadRequiresProvider(t *testing.T) {
	path := writeConfig(t, `{}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when provider missing")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}
