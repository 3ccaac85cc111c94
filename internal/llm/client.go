package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model tiers personas bind to. The tier-to-model mapping lives in Config so
// personas stay independent of which completion provider is wired in.
const (
	TierStandard = "standard"
	TierPremium  = "premium"
)

// Turn is a single message in a conversation history.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Options control a single completion call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completer generates text from a prompt with optional system framing and
// conversation history.
type Completer interface {
	Complete(ctx context.Context, prompt, systemPrompt string, history []Turn, opts Options) (string, error)
}

// Config selects the completion provider and its models.
type Config struct {
	Provider       string // "openai" or "ollama"
	BaseURL        string
	APIKey         string
	StandardModel  string
	PremiumModel   string
	EmbeddingModel string
}

// Client is a Completer backed by langchaingo.
type Client struct {
	config Config
	model  llms.Model
	embed  embeddings.Embedder
}

// NewClient creates a Client for the configured provider. For openai a
// non-empty API key is required by the provider constructor.
func NewClient(config Config) (*Client, error) {
	if config.StandardModel == "" {
		config.StandardModel = "gpt-4o-mini"
	}
	if config.PremiumModel == "" {
		config.PremiumModel = config.StandardModel
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "text-embedding-3-small"
	}

	var (
		model       llms.Model
		embedClient embeddings.EmbedderClient
		err         error
	)

	switch config.Provider {
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		var llm *ollama.LLM
		llm, err = ollama.New(
			ollama.WithModel(config.StandardModel),
			ollama.WithServerURL(config.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
		}
		model = llm

		var embLLM *ollama.LLM
		embLLM, err = ollama.New(
			ollama.WithModel(config.EmbeddingModel),
			ollama.WithServerURL(config.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		embedClient = embLLM

	default: // openai
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.StandardModel),
			openai.WithEmbeddingModel(config.EmbeddingModel),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		var llm *openai.LLM
		llm, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		model = llm
		embedClient = llm
	}

	embedder, err := embeddings.NewEmbedder(embedClient)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Client{config: config, model: model, embed: embedder}, nil
}

// ModelForTier resolves a persona model tier to a concrete model name.
func (c *Client) ModelForTier(tier string) string {
	if tier == TierPremium {
		return c.config.PremiumModel
	}
	return c.config.StandardModel
}

// Embedder exposes the embedding side of the provider.
func (c *Client) Embedder() embeddings.Embedder {
	return c.embed
}

// Complete runs a single completion request.
func (c *Client) Complete(ctx context.Context, prompt, systemPrompt string, history []Turn, opts Options) (string, error) {
	var content []llms.MessageContent
	if systemPrompt != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, turn.Content))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	var callOpts []llms.CallOption
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Content, nil
}
