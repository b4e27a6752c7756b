package llm

import (
	"fmt"
	"strings"
)

// ProviderKind enumerates the supported inference provider families
type ProviderKind string

const (
	KindMistral   ProviderKind = "mistral"   // Invoke API, {prompt,max_tokens,temperature}
	KindLlama     ProviderKind = "llama"     // Invoke API, {prompt,max_gen_len,temperature}
	KindTitan     ProviderKind = "titan"     // Invoke API, {inputText,textGenerationConfig}
	KindOpenAI    ProviderKind = "openai"    // Chat Completions
	KindAnthropic ProviderKind = "anthropic" // Messages API
	KindOllama    ProviderKind = "ollama"    // Local /api/generate
)

// Kinds lists every supported kind in a stable order
var Kinds = []ProviderKind{KindMistral, KindLlama, KindTitan, KindOpenAI, KindAnthropic, KindOllama}

// modelPrefixes maps model identifier prefixes to kinds; first match wins
var modelPrefixes = []struct {
	prefix string
	kind   ProviderKind
}{
	{"mistral.", KindMistral},
	{"meta.llama", KindLlama},
	{"amazon.titan", KindTitan},
	{"anthropic.", KindAnthropic},
	{"claude", KindAnthropic},
	{"gpt-", KindOpenAI},
	{"o1", KindOpenAI},
	{"o3", KindOpenAI},
	{"o4", KindOpenAI},
	{"ollama/", KindOllama},
}

// Invoke reports whether the kind uses the invoke-style endpoint
func (k ProviderKind) Invoke() bool {
	_, ok := invokeSchemas[k]
	return ok
}

// ParseKind validates an explicit provider name
func ParseKind(name string) (ProviderKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "claude" {
		n = string(KindAnthropic)
	}
	for _, k := range Kinds {
		if string(k) == n {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown LLM provider: %s (supported: %s)", name, kindList())
}

// ResolveKind picks the provider kind from an explicit provider name or,
// when that is empty, from the model identifier prefix.
func ResolveKind(provider, modelID string) (ProviderKind, error) {
	if strings.TrimSpace(provider) != "" {
		return ParseKind(provider)
	}

	id := strings.ToLower(strings.TrimSpace(modelID))
	// Regional inference profiles prefix the identifier, e.g. "us.meta.llama3..."
	if i := strings.IndexByte(id, '.'); i == 2 || i == 4 {
		switch id[:i] {
		case "us", "eu", "apac":
			id = id[i+1:]
		}
	}

	for _, p := range modelPrefixes {
		if strings.HasPrefix(id, p.prefix) {
			return p.kind, nil
		}
	}
	return "", fmt.Errorf("cannot derive LLM provider from model %q: set llm.provider (supported: %s)", modelID, kindList())
}

func kindList() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
