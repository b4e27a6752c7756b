package llm

import (
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestResolveKind(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     ProviderKind
		wantErr  bool
	}{
		{"", "mistral.mistral-large-2402-v1:0", KindMistral, false},
		{"", "meta.llama3-1-70b-instruct-v1:0", KindLlama, false},
		{"", "us.meta.llama3-2-90b-instruct-v1:0", KindLlama, false},
		{"", "amazon.titan-text-premier-v1:0", KindTitan, false},
		{"", "gpt-4o-mini", KindOpenAI, false},
		{"", "o3-mini", KindOpenAI, false},
		{"", "claude-3-5-haiku-20241022", KindAnthropic, false},
		{"", "anthropic.claude-3-haiku-20240307-v1:0", KindAnthropic, false},
		{"", "ollama/llama3.1:8b", KindOllama, false},
		{"", "cohere.command-r-v1:0", "", true},
		{"", "", "", true},
		{"OpenAI", "anything", KindOpenAI, false},
		{"claude", "x", KindAnthropic, false},
		{"bogus", "mistral.x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.model, func(t *testing.T) {
			got, err := ResolveKind(tt.provider, tt.model)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got kind %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProviderKind_Invoke(t *testing.T) {
	for _, k := range []ProviderKind{KindMistral, KindLlama, KindTitan} {
		if !k.Invoke() {
			t.Errorf("%s should use the invoke API", k)
		}
	}
	for _, k := range []ProviderKind{KindOpenAI, KindAnthropic, KindOllama} {
		if k.Invoke() {
			t.Errorf("%s should not use the invoke API", k)
		}
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.BaseURL = "http://localhost:9000/"
	cfg.HTTP.HTTPSProxy = "http://proxy:3128"

	got, err := ConfigFromModel(cfg.LLM, cfg.HTTP)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Kind != KindMistral {
		t.Errorf("Expected mistral kind, got %s", got.Kind)
	}
	if got.BaseURL != "http://localhost:9000" {
		t.Errorf("Expected trailing slash trimmed, got %s", got.BaseURL)
	}
	if got.MaxTokens != 400 || got.Temperature != 0.2 || got.Timeout != 60*time.Second {
		t.Errorf("Unexpected generation settings: %+v", got)
	}
	if got.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("Expected proxy carried over, got %q", got.HTTPSProxy)
	}

	cfg.LLM.Model = "unknown-model"
	if _, err := ConfigFromModel(cfg.LLM, cfg.HTTP); err == nil {
		t.Error("Expected error for unresolvable model")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		config   Config
		wantName string
		wantErr  bool
	}{
		{Config{Kind: KindMistral, Model: "mistral.x", Region: "us-east-1"}, "mistral", false},
		{Config{Kind: KindTitan, Model: "amazon.titan-text-express-v1", BaseURL: "http://localhost:1"}, "titan", false},
		{Config{Kind: KindOpenAI, APIKey: "k"}, "openai", false},
		{Config{Kind: KindOpenAI}, "", true},
		{Config{Kind: KindAnthropic, APIKey: "k"}, "anthropic", false},
		{Config{Kind: KindOllama, Model: "ollama/llama3"}, "ollama", false},
		{Config{Kind: "bogus"}, "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.config.Kind), func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}
