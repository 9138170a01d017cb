package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// Completer sends one system/user prompt pair to a text-generation service
// and returns the text of the reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// anthropicCompleter calls the Anthropic Messages API through llmkit
type anthropicCompleter struct {
	apiKey   string
	settings types.RequestSettings
}

func newAnthropicCompleter(apiKey string, agent AgentSettings) *anthropicCompleter {
	return &anthropicCompleter{
		apiKey: apiKey,
		settings: types.RequestSettings{
			Model:       agent.Model,
			MaxTokens:   agent.MaxTokens,
			Temperature: agent.Temperature,
		},
	}
}

func (a *anthropicCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// llmkit has no context support; honour cancellation before the call at least.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", a.apiKey, a.settings)
	if err != nil {
		return "", fmt.Errorf("digest agent failed: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return response.Content[0].Text, nil
}

// ParseKind tells whether a reply was decoded as JSON or kept as raw text
type ParseKind int

const (
	ParseStructured ParseKind = iota
	ParseFallback
)

func (k ParseKind) String() string {
	switch k {
	case ParseStructured:
		return "structured"
	case ParseFallback:
		return "fallback"
	}
	return fmt.Sprintf("ParseKind(%d)", int(k))
}

// ParsedDigest is the tagged result of decoding a generation reply
type ParsedDigest struct {
	Kind   ParseKind
	Digest Digest
	Raw    string
}

// ParseDigestResponse decodes a reply into the five digest sections. Keys
// that are missing stay empty. A reply that is not a JSON object with string
// values is kept whole as the breaking news section.
func ParseDigestResponse(text string) ParsedDigest {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var digest Digest
		err := json.Unmarshal(trimmed, &digest)
		if err == nil {
			return ParsedDigest{Kind: ParseStructured, Digest: digest, Raw: text}
		}
		debugLog("digest response is not valid JSON: %v", err)
	}

	return ParsedDigest{
		Kind:   ParseFallback,
		Digest: Digest{BreakingNews: text},
		Raw:    text,
	}
}

// DigestGenerator writes the digest from the formatted post list
type DigestGenerator struct {
	completer Completer
	config    *Config
}

// NewDigestGenerator creates a generator backed by the Anthropic API
func NewDigestGenerator(config *Config) (*DigestGenerator, error) {
	if config.Credentials == nil || config.Credentials.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	completer := newAnthropicCompleter(config.Credentials.AnthropicAPIKey, config.Settings.Agents.Digest)
	return &DigestGenerator{completer: completer, config: config}, nil
}

// Generate asks the model for a digest of postsText. Transport failures are
// returned as errors; an unparseable reply degrades to a fallback digest.
func (g *DigestGenerator) Generate(ctx context.Context, postsText string) (*ParsedDigest, error) {
	log.Printf("→ Summarizing with %s...", g.config.Settings.Agents.Digest.Model)

	systemPrompt, err := g.config.GetSystemPrompt()
	if err != nil {
		return nil, fmt.Errorf("loading system prompt: %w", err)
	}
	userTemplate, err := g.config.GetUserPrompt()
	if err != nil {
		return nil, fmt.Errorf("loading user prompt: %w", err)
	}
	userPrompt := renderUserPrompt(userTemplate, postsText, g.config.Settings.WindowHours)

	text, err := g.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	parsed := ParseDigestResponse(text)
	if parsed.Kind == ParseFallback {
		log.Printf("Warning: response was not valid JSON, sending it as %s", SectionBreakingNews)
	}
	log.Printf("✓ Summary generated (%s)", parsed.Kind)
	return &parsed, nil
}
