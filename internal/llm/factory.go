package llm

import (
	"fmt"
)

// NewProvider creates the provider variant for config.Kind
func NewProvider(config Config) (Provider, error) {
	switch config.Kind {
	case KindMistral, KindLlama, KindTitan:
		return NewInvokeProvider(config)

	case KindOpenAI:
		return NewOpenAIProvider(config)

	case KindAnthropic:
		return NewAnthropicProvider(config)

	case KindOllama:
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider kind: %q (supported: %s)", config.Kind, kindList())
	}
}
