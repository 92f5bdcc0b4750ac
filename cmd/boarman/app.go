package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/michaelbrown/boarman/internal/character"
	"github.com/michaelbrown/boarman/internal/config"
	"github.com/michaelbrown/boarman/internal/langflow"
	"github.com/michaelbrown/boarman/internal/llm"
	"github.com/michaelbrown/boarman/internal/plugin/boarman"
	"github.com/michaelbrown/boarman/internal/runtime"
	"github.com/michaelbrown/boarman/internal/storage"
	"github.com/michaelbrown/boarman/internal/storage/sqlite"
	"github.com/michaelbrown/boarman/internal/tools"
	"github.com/michaelbrown/boarman/internal/twitter"
)

// app holds everything a command needs to process messages.
type app struct {
	cfg      *config.Config
	store    storage.Store
	registry *tools.Registry
	rt       *runtime.Runtime
	provider string
	variant  boarman.Variant
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	char, err := loadCharacter(cfg)
	if err != nil {
		return nil, err
	}

	providerName := resolveProvider(providerFlag, char, cfg)
	provider, err := cfg.Provider(providerName)
	if err != nil {
		return nil, err
	}

	models := make(map[llm.ModelClass]llm.Client)
	for _, class := range []llm.ModelClass{llm.ModelClassSmall, llm.ModelClassMedium, llm.ModelClassLarge} {
		model := modelFlag
		if model == "" {
			model = provider.Model(class)
		}
		if model == "" {
			continue
		}
		models[class] = llm.NewClient(provider.BaseURL, provider.APIKey, model)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("provider %s has no models configured", providerName)
	}

	variantName := variantFlag
	if variantName == "" {
		variantName = cfg.Agent.Variant
	}
	variant, ok := boarman.VariantByName(variantName)
	if !ok {
		return nil, fmt.Errorf("unknown variant: %s", variantName)
	}

	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	registry := tools.NewRegistry()
	for name, toolCfg := range cfg.Tools {
		if err := registry.Register(ctx, name, toolCfg); err != nil {
			slog.Warn("failed to start tool server", "server", name, "error", err)
		}
	}

	rt, err := runtime.New(runtime.Options{
		Character:      char,
		Store:          store,
		Models:         models,
		Tools:          registry,
		MaxIterations:  cfg.Agent.MaxIterations,
		RecentMessages: cfg.Agent.RecentMessages,
	})
	if err != nil {
		registry.Close()
		store.Close()
		return nil, err
	}

	profiles := twitter.NewClient(cfg.Twitter.BearerToken)
	if cfg.Twitter.BaseURL != "" {
		profiles = twitter.NewClientWithBaseURL(cfg.Twitter.BearerToken, cfg.Twitter.BaseURL)
	}

	err = rt.RegisterPlugin(boarman.Plugin(boarman.Config{
		Variant:   variant,
		Profiles:  profiles,
		Summaries: langflow.NewClient(cfg.Langflow.URL, cfg.Langflow.APIToken),
		Recorder:  store,
	}))
	if err != nil {
		registry.Close()
		store.Close()
		return nil, fmt.Errorf("registering plugin: %w", err)
	}

	return &app{
		cfg:      cfg,
		store:    store,
		registry: registry,
		rt:       rt,
		provider: providerName,
		variant:  variant,
	}, nil
}

func (a *app) Close() {
	a.registry.Close()
	a.store.Close()
}

// resolveProvider picks the model provider: the --provider flag, then the
// character's model_provider, then the configured default.
func resolveProvider(flag string, char *character.Character, cfg *config.Config) string {
	switch {
	case flag != "":
		return flag
	case char != nil && char.ModelProvider != "":
		return char.ModelProvider
	default:
		return cfg.DefaultProvider
	}
}

func loadCharacter(cfg *config.Config) (*character.Character, error) {
	path := characterFlag
	if path == "" {
		path = cfg.Agent.Character
	}
	if path == "" {
		return character.Default(), nil
	}
	c, err := character.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading character: %w", err)
	}
	return c, nil
}

// openStore opens storage without starting models or tools.
func openStore() (storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return sqlite.Open(cfg.Storage.DBPath)
}
