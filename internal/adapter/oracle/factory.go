package oracle

import (
	"fmt"

	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"
)

// New builds the oracle selected by cfg.Provider.
func New(cfg config.LLMConfig) (domain.Oracle, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaOracle(cfg)
	case "openai":
		return NewOpenAIOracle(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
