package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/appconfig"
	"pkt.systems/loopster/internal/llm"
)

// newLLMClient is replaced in tests.
var newLLMClient = func(cfg appconfig.Config, provider, model string) (llm.Client, error) {
	llmCfg := llm.Config{
		Provider: provider,
		Model:    model,
		Timeout:  time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second,
	}
	switch llm.NormalizeProvider(provider) {
	case llm.ProviderOpenAI:
		llmCfg.BaseURL = cfg.LLM.OpenAI.BaseURL
		llmCfg.APIKeyEnv = cfg.LLM.OpenAI.APIKeyEnv
	case llm.ProviderGoogle:
		llmCfg.BaseURL = cfg.LLM.Google.BaseURL
		llmCfg.APIKeyEnv = cfg.LLM.Google.APIKeyEnv
	}
	return llm.New(llmCfg)
}

type modelFlags struct {
	model    string
	provider string
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.model, "model", "", "model name, e.g. gpt-4o-mini, gemini-2.5-pro or fake:test")
	cmd.Flags().StringVar(&f.provider, "provider", "", "provider: openai, google or fake (inferred from --model when omitted)")
}

// resolve picks the model and provider. An explicit provider wins, then one
// inferred from the model, then the configured provider, then openai.
func (f *modelFlags) resolve(cfg appconfig.Config) (provider, model string) {
	model = strings.TrimSpace(f.model)
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = llm.DefaultModel
	}
	provider = strings.TrimSpace(f.provider)
	if provider == "" {
		provider = llm.InferProvider(model)
	}
	if provider == "" {
		provider = cfg.Provider
	}
	if provider == "" {
		provider = llm.ProviderOpenAI
	}
	return provider, model
}

func (f *modelFlags) client(cfg appconfig.Config) (llm.Client, string, error) {
	provider, model := f.resolve(cfg)
	client, err := newLLMClient(cfg, provider, model)
	if err != nil {
		return nil, "", err
	}
	return client, model, nil
}
