package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/policyscout/internal/cache"
	"github.com/ppiankov/policyscout/internal/crawl"
	"github.com/ppiankov/policyscout/internal/llm"
	"github.com/ppiankov/policyscout/internal/model"
	"github.com/ppiankov/policyscout/internal/research"
	"github.com/ppiankov/policyscout/internal/search"
	"github.com/ppiankov/policyscout/internal/store/sqlite"
)

// loadConfig layers the config file and POLICYSCOUT_* variables over the
// defaults, then fills secrets from the conventional provider variables
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := registerDefaults(cfg); err != nil {
		return nil, err
	}
	// keys omitted from the yaml form
	for _, key := range []string{
		"llm.api_key", "llm.base_url",
		"search.api_key", "search.base_url",
		"http.http_proxy", "http.https_proxy", "http.no_proxy",
	} {
		_ = viper.BindEnv(key)
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai", "":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = os.Getenv("BRAVE_API_KEY")
	}
	if cfg.HTTP.HTTPProxy == "" {
		cfg.HTTP.HTTPProxy = os.Getenv("HTTP_PROXY")
	}
	if cfg.HTTP.HTTPSProxy == "" {
		cfg.HTTP.HTTPSProxy = os.Getenv("HTTPS_PROXY")
	}
	if cfg.HTTP.NoProxy == "" {
		cfg.HTTP.NoProxy = os.Getenv("NO_PROXY")
	}

	return cfg, nil
}

// registerDefaults makes every config key known to viper so that
// AutomaticEnv can override keys absent from the config file
func registerDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults("", tree)
	return nil
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// newProvider builds the configured model provider, wrapped in the
// completion cache when caching is enabled
func newProvider(cfg *model.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, err
	}
	if c := cache.FromConfig(cfg.Cache); c != nil {
		return llm.NewCachedProvider(provider, c, cfg.Cache.DiskTTL), nil
	}
	return provider, nil
}

// newOrchestrator wires the full research pipeline from cfg
func newOrchestrator(cfg *model.Config) (*research.Orchestrator, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	client, err := search.NewBraveClient(cfg.Search, cfg.HTTP)
	if err != nil {
		return nil, fmt.Errorf("search client: %w (set BRAVE_API_KEY)", err)
	}

	fetcher := crawl.NewFetcherFromConfig(cfg, logger)
	return research.NewFromConfig(cfg, provider, client, fetcher, logger), nil
}

func openStore(cfg *model.Config) (*sqlite.Store, error) {
	s, err := sqlite.NewStore(cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}
