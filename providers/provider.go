package providers

import (
	"fmt"

	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/providers/contracts"
	"github.com/weavecode/weave/providers/gateway"
	"github.com/weavecode/weave/providers/mock"
	"github.com/weavecode/weave/providers/openai"
	contracts2 "github.com/weavecode/weave/token_management/contracts"
)

// ProviderFactory builds the transport selected by weave.transport.
func ProviderFactory(settings *config.Settings, tokenManagement contracts2.ITokenManagement) (contracts.IAssistantProvider, error) {
	switch settings.Transport {
	case config.TransportGateway, "":
		return gateway.NewGatewayProvider(&gateway.GatewayConfig{
			TokenManagement: tokenManagement,
		}), nil
	case config.TransportDirect:
		if settings.Provider == config.ProviderAnthropic {
			return nil, fmt.Errorf("%w: %s", openai.ErrUnsupportedProvider, settings.Provider)
		}
		return openai.NewOpenAIProvider(&openai.OpenAIConfig{
			TokenManagement: tokenManagement,
		}), nil
	case config.TransportMock:
		return mock.NewMockProvider(&mock.MockConfig{
			Delay: mock.DefaultDelay,
		}), nil
	default:
		return nil, fmt.Errorf("transport '%s' not supported", settings.Transport)
	}
}
