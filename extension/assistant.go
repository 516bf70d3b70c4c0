package extension

import (
	"context"

	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/prompt_composer"
	"github.com/weavecode/weave/providers/contracts"
)

// Assistant composes prompts and sends them through the active transport.
type Assistant struct {
	composer *prompt_composer.Composer
	provider contracts.IAssistantProvider
}

// NewAssistant pairs a composer with a transport.
func NewAssistant(composer *prompt_composer.Composer, provider contracts.IAssistantProvider) *Assistant {
	return &Assistant{composer: composer, provider: provider}
}

// Request builds the transport request for one operation.
func (a *Assistant) Request(op models.Operation, codeContext models.CodeContext) (*contracts.Request, error) {
	a.mustBeInitialized()
	systemPrompt, userPrompt, err := a.composer.Compose(op, codeContext)
	if err != nil {
		return nil, err
	}
	return &contracts.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Operation:    op,
		CodeContext:  codeContext,
	}, nil
}

// Send performs exactly one transport call.
func (a *Assistant) Send(ctx context.Context, request *contracts.Request, settings *config.Settings) (*models.OperationResult, error) {
	a.mustBeInitialized()
	return a.provider.Send(ctx, request, settings)
}

// Run composes and sends in one step.
func (a *Assistant) Run(ctx context.Context, op models.Operation, codeContext models.CodeContext, settings *config.Settings) (*models.OperationResult, error) {
	request, err := a.Request(op, codeContext)
	if err != nil {
		return nil, err
	}
	return a.Send(ctx, request, settings)
}

func (a *Assistant) mustBeInitialized() {
	if a == nil || a.composer == nil || a.provider == nil {
		panic("weave: assistant used before activation")
	}
}
