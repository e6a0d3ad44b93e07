package mirror

import (
	"strings"
	"time"

	"github.com/temirov/repomirror/internal/destination"
	"github.com/temirov/repomirror/internal/source"
)

const (
	configurationVisibilityKeyConstant       = "visibility"
	configurationForksKeyConstant            = "forks"
	configurationMirrorKeyConstant           = "mirror"
	configurationDestinationURLKeyConstant   = "destination_url"
	configurationDestinationOwnerKeyConstant = "destination_owner"
	configurationCredentialsKeyConstant      = "credentials"
	configurationSourceAPIURLKeyConstant     = "source_api_url"
	configurationSourceWebURLKeyConstant     = "source_web_url"
	configurationPageSizeKeyConstant         = "page_size"
	configurationConcurrencyKeyConstant      = "concurrency"
	configurationTimeoutKeyConstant          = "timeout"
	configurationDryRunKeyConstant           = "dry_run"
	configurationOutputKeyConstant           = "output"
	configurationKeySeparatorConstant        = "."
)

// CommandConfiguration captures configuration values for the migrate command.
type CommandConfiguration struct {
	Visibility       string        `mapstructure:"visibility"`
	IncludeForks     bool          `mapstructure:"forks"`
	Mirror           bool          `mapstructure:"mirror"`
	DestinationURL   string        `mapstructure:"destination_url"`
	DestinationOwner string        `mapstructure:"destination_owner"`
	CredentialsPath  string        `mapstructure:"credentials"`
	SourceAPIURL     string        `mapstructure:"source_api_url"`
	SourceWebURL     string        `mapstructure:"source_web_url"`
	PageSize         int           `mapstructure:"page_size"`
	Concurrency      int           `mapstructure:"concurrency"`
	Timeout          time.Duration `mapstructure:"timeout"`
	DryRun           bool          `mapstructure:"dry_run"`
	Output           string        `mapstructure:"output"`
}

// DefaultCommandConfiguration provides baseline configuration values for the migrate command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Visibility:   string(source.VisibilityModePublic),
		Mirror:       true,
		SourceAPIURL: source.DefaultBaseURL,
		SourceWebURL: destination.DefaultSourceWebBaseURL,
		PageSize:     source.DefaultPageSize,
		Concurrency:  destination.DefaultConcurrency,
		Timeout:      source.DefaultRequestTimeout,
		Output:       string(OutputFormatTable),
	}
}

// DefaultConfigurationValues produces Viper defaults for the migrate command rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + configurationVisibilityKeyConstant:       defaults.Visibility,
		prefix + configurationForksKeyConstant:            defaults.IncludeForks,
		prefix + configurationMirrorKeyConstant:           defaults.Mirror,
		prefix + configurationDestinationURLKeyConstant:   defaults.DestinationURL,
		prefix + configurationDestinationOwnerKeyConstant: defaults.DestinationOwner,
		prefix + configurationCredentialsKeyConstant:      defaults.CredentialsPath,
		prefix + configurationSourceAPIURLKeyConstant:     defaults.SourceAPIURL,
		prefix + configurationSourceWebURLKeyConstant:     defaults.SourceWebURL,
		prefix + configurationPageSizeKeyConstant:         defaults.PageSize,
		prefix + configurationConcurrencyKeyConstant:      defaults.Concurrency,
		prefix + configurationTimeoutKeyConstant:          defaults.Timeout.String(),
		prefix + configurationDryRunKeyConstant:           defaults.DryRun,
		prefix + configurationOutputKeyConstant:           defaults.Output,
	}
}

// sanitize trims textual configuration values and restores defaults for unset numeric values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Visibility = strings.TrimSpace(configuration.Visibility)
	sanitized.DestinationURL = strings.TrimSpace(configuration.DestinationURL)
	sanitized.DestinationOwner = strings.TrimSpace(configuration.DestinationOwner)
	sanitized.CredentialsPath = strings.TrimSpace(configuration.CredentialsPath)
	sanitized.SourceAPIURL = strings.TrimSpace(configuration.SourceAPIURL)
	if len(sanitized.SourceAPIURL) == 0 {
		sanitized.SourceAPIURL = defaults.SourceAPIURL
	}
	sanitized.SourceWebURL = strings.TrimSpace(configuration.SourceWebURL)
	if len(sanitized.SourceWebURL) == 0 {
		sanitized.SourceWebURL = defaults.SourceWebURL
	}
	if sanitized.PageSize <= 0 {
		sanitized.PageSize = defaults.PageSize
	}
	if sanitized.Concurrency <= 0 {
		sanitized.Concurrency = defaults.Concurrency
	}
	if sanitized.Timeout <= 0 {
		sanitized.Timeout = defaults.Timeout
	}
	sanitized.Output = strings.TrimSpace(configuration.Output)

	return sanitized
}
