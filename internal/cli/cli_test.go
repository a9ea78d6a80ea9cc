package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/policyscout/internal/model"
)

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Stanford University":        "stanford-university",
		"Texas A&M: College Station": "texas-a&m_-college-station",
		"../etc/passwd":              "_etc_passwd",
		"   ":                        "institution",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := sanitizeFilename(strings.Repeat("a", 150)); len(got) != 100 {
		t.Errorf("long name not truncated: %d", len(got))
	}
}

func TestLoadConfig_LayersFileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".policyscout")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	file := "llm:\n  provider: anthropic\n  timeout: 30s\ncrawl:\n  max_pages: 4\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(file), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("POLICYSCOUT_LLM_MODEL", "claude-test")
	t.Setenv("POLICYSCOUT_SEARCH_COUNT", "12")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("BRAVE_API_KEY", "brave-test")

	cfgFile = ""
	initConfig()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.LLM.Provider != "anthropic" || cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("file values not applied: %+v", cfg.LLM)
	}
	if cfg.Crawl.MaxPages != 4 {
		t.Errorf("MaxPages = %d", cfg.Crawl.MaxPages)
	}
	if cfg.LLM.Model != "claude-test" || cfg.Search.Count != 12 {
		t.Errorf("env overrides not applied: model=%q count=%d", cfg.LLM.Model, cfg.Search.Count)
	}
	if cfg.LLM.APIKey != "sk-ant-test" || cfg.Search.APIKey != "brave-test" {
		t.Error("provider keys not read from environment")
	}
	if cfg.Analysis.MaxContentChars != 3000 || cfg.Scoring.ConfidenceWeight != 0.7 {
		t.Errorf("defaults lost: %+v %+v", cfg.Analysis, cfg.Scoring)
	}
	if len(cfg.Scoring.Reputation) != 3 {
		t.Errorf("reputation rules = %+v", cfg.Scoring.Reputation)
	}
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "api_key:") {
		t.Error("config file contains an api_key field")
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid yaml: %v", err)
	}
	if cfg.Schedule.Cron != "0 2 * * *" || cfg.LLM.ResolveMaxTokens != 100 {
		t.Errorf("round trip = %+v", cfg)
	}
}
