package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/providers/contracts"
)

func TestMockProvider_Placeholder(t *testing.T) {
	provider := NewMockProvider(&MockConfig{Delay: time.Millisecond})
	request := &contracts.Request{Operation: models.OperationAnalyze, CodeContext: models.CodeContext{Code: "x = 1", Language: "python"}}

	result, err := provider.Send(context.Background(), request, config.Defaults())
	require.NoError(t, err)

	assert.Equal(t, models.KindAnalysis, result.Kind)
	assert.Contains(t, result.Content, "Mock analysis")
	assert.Equal(t, "python", result.Language)
}

func TestMockProvider_FixedContent(t *testing.T) {
	provider := NewMockProvider(&MockConfig{Content: "looks fine"})

	result, err := provider.Send(context.Background(), &contracts.Request{Operation: models.OperationComplete}, config.Defaults())
	require.NoError(t, err)

	assert.Equal(t, models.KindCompletion, result.Kind)
	assert.Equal(t, "looks fine", result.Content)
}

func TestMockProvider_HonoursCancellation(t *testing.T) {
	provider := NewMockProvider(&MockConfig{Delay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Send(ctx, &contracts.Request{Operation: models.OperationAnalyze}, config.Defaults())
	assert.ErrorIs(t, err, context.Canceled)
}
