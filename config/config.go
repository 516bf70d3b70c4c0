package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigName is the base name of the configuration file looked up in the working directory.
const ConfigName = "weave-config"

// Loader layers defaults, the config file, .env, environment variables and CLI flags into Settings.
type Loader struct {
	v       *viper.Viper
	cwd     string
	cfgFile string
}

// NewLoader creates a loader rooted at cwd. cfgFile overrides the config file lookup when non-empty.
func NewLoader(cwd string, cfgFile string) *Loader {
	v := viper.New()
	// the file may hold the API key
	v.SetConfigPermissions(os.FileMode(0o600))
	return &Loader{
		v:       v,
		cwd:     cwd,
		cfgFile: cfgFile,
	}
}

// Load initializes the configuration from file, .env, environment and flags, and returns the final settings.
// rootCmd may be nil when no flags should be bound.
func (l *Loader) Load(rootCmd *cobra.Command) (*Settings, error) {
	// .env values only fill variables that are not already set
	_ = godotenv.Load(filepath.Join(l.cwd, ".env"))

	setDefaults(l.v)
	bindEnv(l.v)

	if l.cfgFile != "" {
		l.v.SetConfigFile(l.cfgFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		l.v.SetConfigName(ConfigName)
		l.v.AddConfigPath(l.cwd)
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			slog.Debug("no configuration file found, using defaults", "dir", l.cwd)
		}
	}

	if rootCmd != nil {
		bindFlags(l.v, rootCmd)
	}

	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Settings, error) {
	settings := Defaults()
	// start from an empty scope so the configured list replaces the default one
	settings.LanguageScope = nil
	if err := l.v.UnmarshalKey("weave", settings); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return settings, nil
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with a fresh file/env snapshot every time the config file changes.
func (l *Loader) Watch(onChange func(*Settings)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		settings, err := l.unmarshal()
		if err != nil {
			slog.Error("failed to reload configuration", "file", e.Name, "error", err)
			return
		}
		slog.Info("configuration reloaded", "file", e.Name, "op", e.Op.String())
		onChange(settings)
	})
	l.v.WatchConfig()
}

// SaveAPIKey persists the API key into the config file, creating weave-config.yaml when none exists.
func (l *Loader) SaveAPIKey(key string) (string, error) {
	l.v.Set("weave.apiKey", key)

	if path := l.v.ConfigFileUsed(); path != "" {
		if err := l.v.WriteConfigAs(path); err != nil {
			return "", fmt.Errorf("failed to write config file: %w", err)
		}
		return path, nil
	}

	path := filepath.Join(l.cwd, ConfigName+".yaml")
	if err := l.v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("weave.enabled", DefaultSettings.Enabled)
	v.SetDefault("weave.apiKey", DefaultSettings.APIKey)
	v.SetDefault("weave.provider", DefaultSettings.Provider)
	v.SetDefault("weave.model", DefaultSettings.Model)
	v.SetDefault("weave.temperature", DefaultSettings.Temperature)
	v.SetDefault("weave.maxTokens", DefaultSettings.MaxTokens)
	v.SetDefault("weave.inlineHints", DefaultSettings.InlineHints)
	v.SetDefault("weave.enableCodeCompletion", DefaultSettings.EnableCodeCompletion)
	v.SetDefault("weave.enableCodeLens", DefaultSettings.EnableCodeLens)
	v.SetDefault("weave.languageScope", DefaultSettings.LanguageScope)
	v.SetDefault("weave.endpoint", DefaultSettings.Endpoint)
	v.SetDefault("weave.transport", DefaultSettings.Transport)
	v.SetDefault("weave.baseUrl", DefaultSettings.BaseURL)
	v.SetDefault("weave.codeLensScanner", DefaultSettings.CodeLensScanner)
	v.SetDefault("weave.completionCacheTTL", DefaultSettings.CompletionCacheTTL)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("weave.enabled", "WEAVE_ENABLED")
	_ = v.BindEnv("weave.apiKey", "WEAVE_API_KEY")
	_ = v.BindEnv("weave.provider", "WEAVE_PROVIDER")
	_ = v.BindEnv("weave.model", "WEAVE_MODEL")
	_ = v.BindEnv("weave.temperature", "WEAVE_TEMPERATURE")
	_ = v.BindEnv("weave.maxTokens", "WEAVE_MAX_TOKENS")
	_ = v.BindEnv("weave.endpoint", "WEAVE_ENDPOINT")
	_ = v.BindEnv("weave.transport", "WEAVE_TRANSPORT")
	_ = v.BindEnv("weave.baseUrl", "WEAVE_BASE_URL")
	_ = v.BindEnv("weave.codeLensScanner", "WEAVE_CODE_LENS_SCANNER")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("weave.provider", flags.Lookup("provider"))
	_ = v.BindPFlag("weave.model", flags.Lookup("model"))
	_ = v.BindPFlag("weave.temperature", flags.Lookup("temperature"))
	_ = v.BindPFlag("weave.maxTokens", flags.Lookup("max_tokens"))
	_ = v.BindPFlag("weave.apiKey", flags.Lookup("api_key"))
	_ = v.BindPFlag("weave.endpoint", flags.Lookup("endpoint"))
	_ = v.BindPFlag("weave.transport", flags.Lookup("transport"))
	_ = v.BindPFlag("weave.baseUrl", flags.Lookup("base_url"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command, cfgFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains the weave settings.")

	flags.String("provider", DefaultSettings.Provider, "The AI provider forwarded to the endpoint ('openai', 'anthropic' or 'local').")
	flags.String("model", DefaultSettings.Model, "The model used for requests, such as 'gpt-4o-mini'.")
	flags.Float64("temperature", DefaultSettings.Temperature, "Sampling temperature between 0 and 2.")
	flags.Int("max_tokens", DefaultSettings.MaxTokens, "Upper bound on generated tokens.")
	flags.String("api_key", "", "The API key sent as a bearer token.")
	flags.String("endpoint", DefaultSettings.Endpoint, "The gateway endpoint receiving requests.")
	flags.String("transport", DefaultSettings.Transport, "How requests are sent: 'gateway', 'direct' or 'mock'.")
	flags.String("base_url", DefaultSettings.BaseURL, "Base URL of an OpenAI-compatible API for the direct transport.")
	flags.String("log_level", "info", "Log level written to stderr ('debug', 'info', 'warn', 'error').")
}

// ParseLogLevel maps a flag value onto a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

