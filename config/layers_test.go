package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayers_EditSurvivesEditorChange(t *testing.T) {
	store := NewStore(Defaults())
	layers := NewLayers(store)

	_, err := layers.Edit(func(s *Settings) { s.APIKey = "sk-session" })
	require.NoError(t, err)

	err = layers.SetOverlay(map[string]any{"weave": map[string]any{"temperature": 0.5}})
	require.NoError(t, err)

	current := store.Current()
	assert.Equal(t, "sk-session", current.APIKey)
	assert.InDelta(t, 0.5, current.Temperature, 1e-9)
}

func TestLayers_FileReloadKeepsEditorPayload(t *testing.T) {
	store := NewStore(Defaults())
	layers := NewLayers(store)

	require.NoError(t, layers.SetOverlay(map[string]any{"languageScope": []any{"go"}}))

	file := Defaults()
	file.Model = "gpt-4.1"
	require.NoError(t, layers.SetBase(file))

	current := store.Current()
	assert.Equal(t, "gpt-4.1", current.Model)
	assert.Equal(t, []string{"go"}, current.LanguageScope)
}

func TestLayers_EmptyEditorKeyKeepsConfiguredKey(t *testing.T) {
	file := Defaults()
	file.APIKey = "sk-file"
	store := NewStore(file)
	layers := NewLayers(store)

	require.NoError(t, layers.SetOverlay(map[string]any{"apiKey": ""}))
	assert.Equal(t, "sk-file", store.Current().APIKey)

	require.NoError(t, layers.SetOverlay(map[string]any{"apiKey": "sk-editor"}))
	assert.Equal(t, "sk-editor", store.Current().APIKey)
}

func TestLayers_BadPayloadLeavesStoreUntouched(t *testing.T) {
	store := NewStore(Defaults())
	layers := NewLayers(store)
	require.NoError(t, layers.SetOverlay(map[string]any{"temperature": 0.3}))
	before := store.Current()

	err := layers.SetOverlay(map[string]any{"temperature": map[string]any{"value": "hot"}})

	require.Error(t, err)
	assert.Same(t, before, store.Current())

	require.NoError(t, layers.SetBase(Defaults()))
	assert.InDelta(t, 0.3, store.Current().Temperature, 1e-9, "previous payload is still applied")
}
