package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Provider names accepted by weave.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
)

// Transport names accepted by weave.transport.
const (
	TransportGateway = "gateway"
	TransportDirect  = "direct"
	TransportMock    = "mock"
)

// Scanner names accepted by weave.codeLensScanner.
const (
	ScannerRegex  = "regex"
	ScannerSyntax = "syntax"
)

var (
	// ErrMissingAPIKey is returned when a remote provider is configured without a key.
	ErrMissingAPIKey = errors.New("weave.apiKey is not set")
	// ErrInvalidSettings wraps constraint violations found by Validate.
	ErrInvalidSettings = errors.New("invalid weave settings")
)

// Settings is one complete snapshot of the weave.* configuration namespace.
type Settings struct {
	Enabled              bool     `mapstructure:"enabled" json:"enabled"`
	APIKey               string   `mapstructure:"apiKey" json:"apiKey"`
	Provider             string   `mapstructure:"provider" json:"provider" validate:"oneof=openai anthropic local"`
	Model                string   `mapstructure:"model" json:"model" validate:"required"`
	Temperature          float64  `mapstructure:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens            int      `mapstructure:"maxTokens" json:"maxTokens" validate:"gt=0"`
	InlineHints          bool     `mapstructure:"inlineHints" json:"inlineHints"`
	EnableCodeCompletion bool     `mapstructure:"enableCodeCompletion" json:"enableCodeCompletion"`
	EnableCodeLens       bool     `mapstructure:"enableCodeLens" json:"enableCodeLens"`
	LanguageScope        []string `mapstructure:"languageScope" json:"languageScope"`

	Endpoint           string `mapstructure:"endpoint" json:"endpoint" validate:"omitempty,url"`
	Transport          string `mapstructure:"transport" json:"transport" validate:"oneof=gateway direct mock"`
	BaseURL            string `mapstructure:"baseUrl" json:"baseUrl" validate:"omitempty,url"`
	CodeLensScanner    string `mapstructure:"codeLensScanner" json:"codeLensScanner" validate:"oneof=regex syntax"`
	CompletionCacheTTL int    `mapstructure:"completionCacheTTL" json:"completionCacheTTL" validate:"gte=0"`
}

// DefaultSettings values
var DefaultSettings = Settings{
	Enabled:              true,
	Provider:             ProviderOpenAI,
	Model:                "gpt-4o-mini",
	Temperature:          0.2,
	MaxTokens:            1024,
	InlineHints:          true,
	EnableCodeCompletion: true,
	EnableCodeLens:       true,
	LanguageScope:        []string{"javascript", "typescript", "python", "go", "java", "csharp"},
	Endpoint:             "https://api.weave.dev/v1/generate",
	Transport:            TransportGateway,
	CodeLensScanner:      ScannerRegex,
}

// Defaults returns a fresh copy of DefaultSettings.
func Defaults() *Settings {
	return DefaultSettings.Clone()
}

// Clone returns a deep copy of the snapshot.
func (s *Settings) Clone() *Settings {
	c := *s
	c.LanguageScope = slices.Clone(s.LanguageScope)
	return &c
}

// InScope reports whether the language is covered by weave.languageScope.
// "*" matches every language and an empty scope matches none.
func (s *Settings) InScope(language string) bool {
	for _, l := range s.LanguageScope {
		if l == "*" || strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}

// RequiresAPIKey reports whether the configured provider and transport authenticate with a key.
func (s *Settings) RequiresAPIKey() bool {
	return s.Provider != ProviderLocal && s.Transport != TransportMock
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the presence of the API key.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			names := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				names = append(names, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(names, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.RequiresAPIKey() && strings.TrimSpace(s.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// DecodeSettings overlays a host-provided settings payload on the defaults.
// The payload may be the weave object itself or a map holding it under "weave".
func DecodeSettings(raw any) (*Settings, error) {
	return DecodeSettingsOnto(Defaults(), raw)
}

// DecodeSettingsOnto overlays a host-provided settings payload on a copy of base.
// Keys missing from the payload keep their base value; a present languageScope replaces the base list.
func DecodeSettingsOnto(base *Settings, raw any) (*Settings, error) {
	settings := base.Clone()
	if raw == nil {
		return settings, nil
	}

	payload := raw
	if m, ok := raw.(map[string]any); ok {
		if nested, ok := m["weave"]; ok {
			payload = nested
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           settings,
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("failed to decode weave settings: %w", err)
	}
	return settings, nil
}
