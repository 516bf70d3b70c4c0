package contracts

import (
	"context"

	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/models"
)

// IAssistantProvider sends one composed prompt and returns the parsed result.
// Implementations perform exactly one request per call and never retry.
type IAssistantProvider interface {
	Send(ctx context.Context, request *Request, settings *config.Settings) (*models.OperationResult, error)
}

// Request is everything a provider needs for a single call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Operation    models.Operation
	CodeContext  models.CodeContext
}
