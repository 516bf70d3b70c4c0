package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/providers/contracts"
	provider_models "github.com/weavecode/weave/providers/models"
	contracts2 "github.com/weavecode/weave/token_management/contracts"
)

const requestTimeout = 30 * time.Second

// GatewayConfig implements IAssistantProvider against the weave HTTP endpoint.
type GatewayConfig struct {
	Client          *http.Client
	TokenManagement contracts2.ITokenManagement
}

// NewGatewayProvider initializes a provider that POSTs to settings.Endpoint.
func NewGatewayProvider(config *GatewayConfig) contracts.IAssistantProvider {
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &GatewayConfig{
		Client:          client,
		TokenManagement: config.TokenManagement,
	}
}

func (gatewayProvider *GatewayConfig) Send(ctx context.Context, request *contracts.Request, settings *config.Settings) (*models.OperationResult, error) {
	op := string(request.Operation)

	reqBody := provider_models.GatewayRequest{
		Prompt:       request.UserPrompt,
		SystemPrompt: request.SystemPrompt,
		Provider:     settings.Provider,
		Model:        settings.Model,
		Temperature:  settings.Temperature,
		MaxTokens:    settings.MaxTokens,
		CodeContext: provider_models.GatewayCodeContext{
			Language: request.CodeContext.Language,
			FileName: request.CodeContext.FileIdentity,
			Line:     request.CodeContext.Line,
			Column:   request.CodeContext.Column,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, gatewayProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "error marshalling request body", Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, gatewayProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "error creating request", Err: err})
	}

	req.Header.Set("Content-Type", "application/json")
	if settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+settings.APIKey)
	}

	resp, err := gatewayProvider.Client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, gatewayProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "request canceled", Err: err})
		}
		return nil, gatewayProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "error sending request", Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gatewayProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "error reading response", Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		var apiError provider_models.AIError
		if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error.Message != "" {
			message = apiError.Error.Message
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, gatewayProvider.fail(op, &provider_models.TransportError{Operation: op, StatusCode: resp.StatusCode, Message: message})
	}

	var response provider_models.GatewayResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, gatewayProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "error parsing response", Err: err})
	}
	if response.Content == nil {
		return nil, gatewayProvider.fail(op, &provider_models.TransportError{Operation: op, Message: "response has no content"})
	}

	result := &models.OperationResult{
		Kind:      request.Operation.ResultKind(),
		Content:   *response.Content,
		Language:  request.CodeContext.Language,
		Timestamp: time.Now(),
		Metadata:  map[string]any{},
	}
	if response.Provider != "" {
		result.Metadata[models.MetaProvider] = response.Provider
	}
	if response.Model != "" {
		result.Metadata[models.MetaModel] = response.Model
	}
	if response.TokensUsed != nil {
		result.Metadata[models.MetaTokensUsed] = *response.TokensUsed
	}
	if response.Cost != nil {
		result.Metadata[models.MetaCost] = *response.Cost
	}

	// Count total tokens usage
	if response.TokensUsed != nil && gatewayProvider.TokenManagement != nil {
		cost := gatewayProvider.TokenManagement.UsedTokens(settings.Provider, settings.Model, *response.TokensUsed, response.Cost)
		slog.Info("request completed", "operation", op, "provider", settings.Provider, "model", settings.Model,
			"tokens", *response.TokensUsed, "cost", fmt.Sprintf("%.6f", cost))
	} else {
		slog.Info("request completed", "operation", op, "provider", settings.Provider, "model", settings.Model)
	}

	return result, nil
}

func (gatewayProvider *GatewayConfig) fail(op string, err *provider_models.TransportError) error {
	slog.Error("request failed", "operation", op, "error", err)
	return err
}
