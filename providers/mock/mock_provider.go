package mock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/providers/contracts"
)

// DefaultDelay is how long the mock pretends to think.
const DefaultDelay = time.Second

// MockConfig implements IAssistantProvider without any network access.
type MockConfig struct {
	Delay time.Duration
	// Content overrides the placeholder answer when non-empty.
	Content string
}

// NewMockProvider returns a provider that answers after a fixed delay.
func NewMockProvider(config *MockConfig) contracts.IAssistantProvider {
	return &MockConfig{Delay: config.Delay, Content: config.Content}
}

func (mockProvider *MockConfig) Send(ctx context.Context, request *contracts.Request, settings *config.Settings) (*models.OperationResult, error) {
	timer := time.NewTimer(mockProvider.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	content := mockProvider.Content
	if content == "" {
		content = placeholder(request)
	}

	slog.Info("mock request completed", "operation", request.Operation, "model", settings.Model)

	return &models.OperationResult{
		Kind:      request.Operation.ResultKind(),
		Content:   content,
		Language:  request.CodeContext.Language,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			models.MetaProvider: "mock",
			models.MetaModel:    settings.Model,
		},
	}, nil
}

func placeholder(request *contracts.Request) string {
	switch request.Operation {
	case models.OperationComplete:
		return "// mock completion"
	case models.OperationAnalyze:
		return fmt.Sprintf("Mock analysis of %d characters of %s code.", len(request.CodeContext.Code), request.CodeContext.Language)
	case models.OperationSuggestOptimization:
		return fmt.Sprintf("Mock optimization suggestions for %s code.", request.CodeContext.Language)
	default:
		return fmt.Sprintf("Mock prompt describing the selected %s code.", request.CodeContext.Language)
	}
}
