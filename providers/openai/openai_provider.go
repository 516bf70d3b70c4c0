package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/providers/contracts"
	provider_models "github.com/weavecode/weave/providers/models"
	contracts2 "github.com/weavecode/weave/token_management/contracts"
)

const (
	requestTimeout      = 30 * time.Second
	defaultLocalBaseURL = "http://localhost:11434/v1"
)

// ErrUnsupportedProvider is returned when the direct transport cannot reach the configured provider.
var ErrUnsupportedProvider = errors.New("provider is not reachable through the direct transport")

// OpenAIConfig implements IAssistantProvider with an OpenAI-compatible chat completion call.
type OpenAIConfig struct {
	HTTPClient      *http.Client
	TokenManagement contracts2.ITokenManagement
}

// NewOpenAIProvider initializes a direct provider for openai and local OpenAI-compatible servers.
func NewOpenAIProvider(config *OpenAIConfig) contracts.IAssistantProvider {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &OpenAIConfig{
		HTTPClient:      httpClient,
		TokenManagement: config.TokenManagement,
	}
}

func (openAIProvider *OpenAIConfig) client(settings *config.Settings) (*goopenai.Client, error) {
	clientConfig := goopenai.DefaultConfig(settings.APIKey)
	switch settings.Provider {
	case config.ProviderOpenAI:
		if settings.BaseURL != "" {
			clientConfig.BaseURL = settings.BaseURL
		}
	case config.ProviderLocal:
		clientConfig.BaseURL = defaultLocalBaseURL
		if settings.BaseURL != "" {
			clientConfig.BaseURL = settings.BaseURL
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, settings.Provider)
	}
	clientConfig.HTTPClient = openAIProvider.HTTPClient
	return goopenai.NewClientWithConfig(clientConfig), nil
}

func (openAIProvider *OpenAIConfig) Send(ctx context.Context, request *contracts.Request, settings *config.Settings) (*models.OperationResult, error) {
	op := string(request.Operation)

	client, err := openAIProvider.client(settings)
	if err != nil {
		return nil, openAIProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "unsupported provider", Err: err})
	}

	req := goopenai.ChatCompletionRequest{
		Model: settings.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: request.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: request.UserPrompt},
		},
		Temperature: float32(settings.Temperature),
		MaxTokens:   settings.MaxTokens,
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		transportErr := &provider_models.TransportError{Operation: op, Message: "chat completion failed", Err: err}
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			transportErr.StatusCode = apiErr.HTTPStatusCode
			transportErr.Message = apiErr.Message
			transportErr.Err = nil
		}
		var reqErr *goopenai.RequestError
		if errors.As(err, &reqErr) {
			transportErr.StatusCode = reqErr.HTTPStatusCode
		}
		return nil, openAIProvider.fail(op, transportErr)
	}

	if len(resp.Choices) == 0 {
		return nil, openAIProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "response has no choices"})
	}

	result := &models.OperationResult{
		Kind:      request.Operation.ResultKind(),
		Content:   resp.Choices[0].Message.Content,
		Language:  request.CodeContext.Language,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			models.MetaProvider:   settings.Provider,
			models.MetaModel:      resp.Model,
			models.MetaTokensUsed: resp.Usage.TotalTokens,
		},
	}

	cost := 0.0
	if openAIProvider.TokenManagement != nil {
		cost = openAIProvider.TokenManagement.UsedTokens(settings.Provider, settings.Model, resp.Usage.TotalTokens, nil)
		result.Metadata[models.MetaCost] = cost
	}
	slog.Info("request completed", "operation", op, "provider", settings.Provider, "model", resp.Model,
		"tokens", resp.Usage.TotalTokens, "cost", fmt.Sprintf("%.6f", cost), "finish_reason", resp.Choices[0].FinishReason)

	return result, nil
}

func (openAIProvider *OpenAIConfig) fail(op string, err *provider_models.TransportError) error {
	slog.Error("request failed", "operation", op, "error", err)
	return err
}
