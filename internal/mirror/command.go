package mirror

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/credentials"
	"github.com/temirov/repomirror/internal/destination"
	"github.com/temirov/repomirror/internal/source"
	"github.com/temirov/repomirror/internal/utils/flags"
)

const (
	commandUseConstant                     = "migrate"
	commandShortDescriptionConstant        = "Mirror source repositories into a destination Gitea instance"
	commandLongDescriptionConstant         = "migrate enumerates the source account's repositories, filters them by visibility, ownership and fork status, and asks the destination to mirror or import each match."
	commandExecutionErrorTemplateConstant  = "migration failed: %w"
	flagPublicNameConstant                 = "public"
	flagPublicDescriptionConstant          = "Migrate public repositories owned by the source user (default)"
	flagPrivateNameConstant                = "private"
	flagPrivateDescriptionConstant         = "Migrate private repositories owned by the source user"
	flagBothNameConstant                   = "both"
	flagBothDescriptionConstant            = "Migrate public and private repositories owned by the source user"
	flagAllNameConstant                    = "all"
	flagAllDescriptionConstant             = "Migrate every repository visible to the source user, including other owners"
	flagForkNameConstant                   = "fork"
	flagForkDescriptionConstant            = "Include forked repositories"
	flagNoMirrorNameConstant               = "no-mirror"
	flagNoMirrorDescriptionConstant        = "Import repositories once instead of creating pull mirrors"
	flagDestinationURLNameConstant         = "destination-url"
	flagDestinationURLDescriptionConstant  = "Base URL of the destination Gitea instance"
	flagDestinationOwnerNameConstant       = "destination-owner"
	flagDestinationOwnerDescription        = "Destination user or organization owning the migrated repositories (defaults to the destination user)"
	flagCredentialsNameConstant            = "credentials"
	flagCredentialsDescriptionConstant     = "Path to a two-line credentials file; prompts interactively when omitted"
	flagSourceAPIURLNameConstant           = "source-api-url"
	flagSourceAPIURLDescriptionConstant    = "Base URL of the source REST API"
	flagSourceWebURLNameConstant           = "source-web-url"
	flagSourceWebURLDescriptionConstant    = "Web origin repositories are cloned from"
	flagPageSizeNameConstant               = "page-size"
	flagPageSizeDescriptionConstant        = "Repositories requested per source page"
	flagConcurrencyNameConstant            = "concurrency"
	flagConcurrencyDescriptionConstant     = "Maximum number of migration requests in flight"
	flagTimeoutNameConstant                = "timeout"
	flagTimeoutDescriptionConstant         = "Timeout applied to every HTTP request"
	flagDryRunNameConstant                 = "dry-run"
	flagDryRunDescriptionConstant          = "List matching repositories without migrating them"
	flagOutputNameConstant                 = "output"
	flagOutputDescriptionConstant          = "Summary format"
	destinationURLMissingMessageConstant   = "destination URL is required (--destination-url or tools.migrate.destination_url)"
	concurrencyNegativeTemplateConstant    = "--concurrency must be positive, got %d"
	pageSizeNegativeTemplateConstant       = "--page-size must be positive, got %d"
	timeoutNegativeTemplateConstant        = "--timeout must be positive, got %s"
	enumeratorConstructionTemplateConstant = "unable to configure source API: %w"
	dispatcherConstructionTemplateConstant = "unable to configure destination API: %w"
)

var errDestinationURLMissing = errors.New(destinationURLMissingMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current migrate command configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the migrate cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	HTTPClient            *http.Client
	Prompter              credentials.Prompter
	EnvironmentLookup     credentials.EnvironmentLookup
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()

	command.Flags().Bool(flagPublicNameConstant, false, flagPublicDescriptionConstant)
	command.Flags().Bool(flagPrivateNameConstant, false, flagPrivateDescriptionConstant)
	command.Flags().Bool(flagBothNameConstant, false, flagBothDescriptionConstant)
	command.Flags().Bool(flagAllNameConstant, false, flagAllDescriptionConstant)
	command.MarkFlagsMutuallyExclusive(flagPublicNameConstant, flagPrivateNameConstant, flagBothNameConstant, flagAllNameConstant)
	command.Flags().Bool(flagForkNameConstant, false, flagForkDescriptionConstant)
	command.Flags().Bool(flagNoMirrorNameConstant, false, flagNoMirrorDescriptionConstant)
	command.Flags().String(flagDestinationURLNameConstant, "", flagDestinationURLDescriptionConstant)
	command.Flags().String(flagDestinationOwnerNameConstant, "", flagDestinationOwnerDescription)
	command.Flags().String(flagCredentialsNameConstant, "", flagCredentialsDescriptionConstant)
	command.Flags().String(flagSourceAPIURLNameConstant, defaults.SourceAPIURL, flagSourceAPIURLDescriptionConstant)
	command.Flags().String(flagSourceWebURLNameConstant, defaults.SourceWebURL, flagSourceWebURLDescriptionConstant)
	command.Flags().Int(flagPageSizeNameConstant, defaults.PageSize, flagPageSizeDescriptionConstant)
	command.Flags().Int(flagConcurrencyNameConstant, defaults.Concurrency, flagConcurrencyDescriptionConstant)
	command.Flags().Duration(flagTimeoutNameConstant, defaults.Timeout, flagTimeoutDescriptionConstant)
	command.Flags().Bool(flagDryRunNameConstant, false, flagDryRunDescriptionConstant)
	command.Flags().String(flagOutputNameConstant, defaults.Output, flags.FormatChoiceUsage(defaults.Output, OutputFormatChoices(), flagOutputDescriptionConstant))

	return command, nil
}

// commandSettings is the merged view of configuration and flags for one invocation.
type commandSettings struct {
	configuration  CommandConfiguration
	visibilityMode source.VisibilityMode
	outputFormat   OutputFormat
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	settings, settingsError := builder.resolveSettings(command)
	if settingsError != nil {
		return settingsError
	}

	logger := builder.resolveLogger()
	httpClient := builder.resolveHTTPClient(settings.configuration.Timeout)

	enumerator, enumeratorError := source.NewEnumerator(logger, httpClient, source.EnumeratorConfiguration{
		BaseURL:  settings.configuration.SourceAPIURL,
		PageSize: settings.configuration.PageSize,
	})
	if enumeratorError != nil {
		return fmt.Errorf(enumeratorConstructionTemplateConstant, enumeratorError)
	}

	dispatcher, dispatcherError := destination.NewDispatcher(logger, httpClient, destination.DispatcherConfiguration{
		BaseURL:     settings.configuration.DestinationURL,
		Concurrency: settings.configuration.Concurrency,
	})
	if dispatcherError != nil {
		return fmt.Errorf(dispatcherConstructionTemplateConstant, dispatcherError)
	}

	renderer, rendererError := NewSummaryRenderer(settings.outputFormat, command.OutOrStdout())
	if rendererError != nil {
		return rendererError
	}

	prompter := builder.Prompter
	if prompter == nil {
		prompter = credentials.NewIOPrompter(command.InOrStdin(), command.ErrOrStderr())
	}

	resolver := credentials.NewResolver(credentials.ResolverDependencies{
		Logger:            logger,
		Prompter:          prompter,
		EnvironmentLookup: builder.EnvironmentLookup,
	})

	service, serviceError := NewService(ServiceDependencies{
		Logger:     logger,
		Resolver:   resolver,
		Enumerator: enumerator,
		Dispatcher: dispatcher,
		Renderer:   renderer,
	})
	if serviceError != nil {
		return serviceError
	}

	_, executionError := service.Execute(command.Context(), RunOptions{
		CredentialsSource: credentials.FileSource(settings.configuration.CredentialsPath),
		Filter:            source.NewRunFilter(settings.visibilityMode, settings.configuration.IncludeForks),
		RequestOptions: destination.RequestOptions{
			SourceWebBaseURL: settings.configuration.SourceWebURL,
			DestinationOwner: settings.configuration.DestinationOwner,
			Mirror:           settings.configuration.Mirror,
		},
		DryRun: settings.configuration.DryRun,
	})
	if executionError != nil {
		var partialFailureError PartialFailureError
		if errors.As(executionError, &partialFailureError) {
			return partialFailureError
		}
		return fmt.Errorf(commandExecutionErrorTemplateConstant, executionError)
	}

	return nil
}

func (builder *CommandBuilder) resolveSettings(command *cobra.Command) (commandSettings, error) {
	configuration := builder.resolveConfiguration()
	commandFlags := command.Flags()

	if commandFlags.Changed(flagForkNameConstant) {
		configuration.IncludeForks, _ = commandFlags.GetBool(flagForkNameConstant)
	}
	if commandFlags.Changed(flagNoMirrorNameConstant) {
		noMirror, _ := commandFlags.GetBool(flagNoMirrorNameConstant)
		configuration.Mirror = !noMirror
	}
	if commandFlags.Changed(flagDestinationURLNameConstant) {
		configuration.DestinationURL, _ = commandFlags.GetString(flagDestinationURLNameConstant)
	}
	if commandFlags.Changed(flagDestinationOwnerNameConstant) {
		configuration.DestinationOwner, _ = commandFlags.GetString(flagDestinationOwnerNameConstant)
	}
	if commandFlags.Changed(flagCredentialsNameConstant) {
		configuration.CredentialsPath, _ = commandFlags.GetString(flagCredentialsNameConstant)
	}
	if commandFlags.Changed(flagSourceAPIURLNameConstant) {
		configuration.SourceAPIURL, _ = commandFlags.GetString(flagSourceAPIURLNameConstant)
	}
	if commandFlags.Changed(flagSourceWebURLNameConstant) {
		configuration.SourceWebURL, _ = commandFlags.GetString(flagSourceWebURLNameConstant)
	}
	if commandFlags.Changed(flagPageSizeNameConstant) {
		pageSize, _ := commandFlags.GetInt(flagPageSizeNameConstant)
		if pageSize <= 0 {
			return commandSettings{}, fmt.Errorf(pageSizeNegativeTemplateConstant, pageSize)
		}
		configuration.PageSize = pageSize
	}
	if commandFlags.Changed(flagConcurrencyNameConstant) {
		concurrency, _ := commandFlags.GetInt(flagConcurrencyNameConstant)
		if concurrency <= 0 {
			return commandSettings{}, fmt.Errorf(concurrencyNegativeTemplateConstant, concurrency)
		}
		configuration.Concurrency = concurrency
	}
	if commandFlags.Changed(flagTimeoutNameConstant) {
		timeout, _ := commandFlags.GetDuration(flagTimeoutNameConstant)
		if timeout <= 0 {
			return commandSettings{}, fmt.Errorf(timeoutNegativeTemplateConstant, timeout)
		}
		configuration.Timeout = timeout
	}
	if commandFlags.Changed(flagDryRunNameConstant) {
		configuration.DryRun, _ = commandFlags.GetBool(flagDryRunNameConstant)
	}
	if commandFlags.Changed(flagOutputNameConstant) {
		configuration.Output, _ = commandFlags.GetString(flagOutputNameConstant)
	}
	configuration = configuration.sanitize()

	if len(configuration.DestinationURL) == 0 {
		return commandSettings{}, errDestinationURLMissing
	}

	visibilityValue := configuration.Visibility
	for _, visibilityFlagName := range []string{flagPublicNameConstant, flagPrivateNameConstant, flagBothNameConstant, flagAllNameConstant} {
		if selected, _ := commandFlags.GetBool(visibilityFlagName); selected {
			visibilityValue = visibilityFlagName
		}
	}
	visibilityMode, visibilityError := source.ParseVisibilityMode(visibilityValue)
	if visibilityError != nil {
		return commandSettings{}, visibilityError
	}

	outputValue, outputError := flags.NormalizeChoice(configuration.Output, string(OutputFormatTable), OutputFormatChoices())
	if outputError != nil {
		return commandSettings{}, outputError
	}

	return commandSettings{
		configuration:  configuration,
		visibilityMode: visibilityMode,
		outputFormat:   OutputFormat(outputValue),
	}, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveHTTPClient(timeout time.Duration) *http.Client {
	if builder.HTTPClient != nil {
		return builder.HTTPClient
	}
	return &http.Client{Timeout: timeout}
}
