package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	pathutils "github.com/temirov/repomirror/internal/utils/path"
)

const (
	sourceUserPromptLabelConstant             = "Source username: "
	sourceSecretPromptLabelConstant           = "Source token: "
	destinationUserPromptLabelConstant        = "Destination username: "
	destinationSecretPromptLabelConstant      = "Destination password or token: "
	sourceUserFieldNameConstant               = "source username"
	sourceSecretFieldNameConstant             = "source token"
	destinationUserFieldNameConstant          = "destination username"
	destinationSecretFieldNameConstant        = "destination secret"
	logMessageCredentialsResolvedConstant     = "credentials resolved"
	logMessageEnvironmentTokenAppliedConstant = "secret taken from environment"
	logFieldCredentialsConstant               = "credentials"
	logFieldCredentialsOriginConstant         = "origin"
	logFieldSecretRoleConstant                = "role"
	credentialsOriginFileConstant             = "file"
	credentialsOriginInteractiveConstant      = "interactive"
	secretRoleSourceConstant                  = "source"
	secretRoleDestinationConstant             = "destination"
)

// Source selects where credentials are read from. An empty FilePath selects interactive prompts.
type Source struct {
	FilePath string
}

// FileSource reads credentials from the two-line file at path.
func FileSource(path string) Source {
	return Source{FilePath: path}
}

// InteractiveSource prompts for every credential field.
func InteractiveSource() Source {
	return Source{}
}

// IsInteractive reports whether the source prompts for input.
func (source Source) IsInteractive() bool {
	return len(strings.TrimSpace(source.FilePath)) == 0
}

// ResolverDependencies describes the collaborators used by Resolver; nil fields fall back to process defaults.
type ResolverDependencies struct {
	Logger            *zap.Logger
	Prompter          Prompter
	FileReader        FileReader
	EnvironmentLookup EnvironmentLookup
	HomeExpander      *pathutils.HomeExpander
}

// Resolver produces Credentials from a file or interactive input.
type Resolver struct {
	logger            *zap.Logger
	prompter          Prompter
	fileReader        FileReader
	environmentLookup EnvironmentLookup
	homeExpander      *pathutils.HomeExpander
}

// NewResolver constructs a Resolver. The default prompter reads standard input and prompts on standard error.
func NewResolver(dependencies ResolverDependencies) *Resolver {
	resolver := &Resolver{
		logger:            dependencies.Logger,
		prompter:          dependencies.Prompter,
		fileReader:        dependencies.FileReader,
		environmentLookup: dependencies.EnvironmentLookup,
		homeExpander:      dependencies.HomeExpander,
	}
	if resolver.logger == nil {
		resolver.logger = zap.NewNop()
	}
	if resolver.prompter == nil {
		resolver.prompter = NewIOPrompter(os.Stdin, os.Stderr)
	}
	if resolver.fileReader == nil {
		resolver.fileReader = os.ReadFile
	}
	if resolver.environmentLookup == nil {
		resolver.environmentLookup = os.LookupEnv
	}
	if resolver.homeExpander == nil {
		resolver.homeExpander = pathutils.NewHomeExpander()
	}
	return resolver
}

// Resolve reads credentials from source. requiresSourceSecret controls whether a source secret is expected.
// Empty secrets are completed from the environment (GH_TOKEN, GITHUB_TOKEN, GITHUB_API_TOKEN for the
// source when required, GITEA_TOKEN for the destination).
func (resolver *Resolver) Resolve(resolutionContext context.Context, source Source, requiresSourceSecret bool) (Credentials, error) {
	var (
		resolvedCredentials Credentials
		resolutionError     error
		origin              string
	)

	if source.IsInteractive() {
		origin = credentialsOriginInteractiveConstant
		resolvedCredentials, resolutionError = resolver.resolveInteractive(resolutionContext, requiresSourceSecret)
	} else {
		origin = credentialsOriginFileConstant
		resolvedCredentials, resolutionError = resolver.resolveFile(source.FilePath, requiresSourceSecret)
	}
	if resolutionError != nil {
		return Credentials{}, resolutionError
	}

	resolvedCredentials = resolver.applyEnvironmentFallback(resolvedCredentials, requiresSourceSecret)

	resolver.logger.Debug(
		logMessageCredentialsResolvedConstant,
		zap.String(logFieldCredentialsOriginConstant, origin),
		zap.Object(logFieldCredentialsConstant, resolvedCredentials),
	)

	return resolvedCredentials, nil
}

func (resolver *Resolver) resolveFile(filePath string, requiresSourceSecret bool) (Credentials, error) {
	expandedPath := resolver.homeExpander.Expand(strings.TrimSpace(filePath))
	contents, readError := resolver.fileReader(expandedPath)
	if readError != nil {
		return Credentials{}, CredentialsError{Message: fmt.Sprintf(credentialsFileReadMessageTemplate, expandedPath), Cause: readError}
	}
	return ParseCredentialsFile(contents, requiresSourceSecret)
}

func (resolver *Resolver) resolveInteractive(resolutionContext context.Context, requiresSourceSecret bool) (Credentials, error) {
	var resolvedCredentials Credentials

	fields := []struct {
		label     string
		fieldName string
		masked    bool
		target    *string
		enabled   bool
	}{
		{label: sourceUserPromptLabelConstant, fieldName: sourceUserFieldNameConstant, target: &resolvedCredentials.SourceUser, enabled: true},
		{label: sourceSecretPromptLabelConstant, fieldName: sourceSecretFieldNameConstant, masked: true, target: &resolvedCredentials.SourceSecret, enabled: requiresSourceSecret},
		{label: destinationUserPromptLabelConstant, fieldName: destinationUserFieldNameConstant, target: &resolvedCredentials.DestinationUser, enabled: true},
		{label: destinationSecretPromptLabelConstant, fieldName: destinationSecretFieldNameConstant, masked: true, target: &resolvedCredentials.DestinationSecret, enabled: true},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		if contextError := resolutionContext.Err(); contextError != nil {
			return Credentials{}, contextError
		}

		value, promptError := resolver.prompter.PromptField(field.label, field.masked)
		if promptError != nil {
			if errors.Is(promptError, io.EOF) {
				promptError = io.ErrUnexpectedEOF
			}
			return Credentials{}, CredentialsError{Message: fmt.Sprintf(credentialsPromptMessageTemplateConstant, field.fieldName), Cause: promptError}
		}
		*field.target = value
	}

	return resolvedCredentials, nil
}

func (resolver *Resolver) applyEnvironmentFallback(resolvedCredentials Credentials, requiresSourceSecret bool) Credentials {
	if requiresSourceSecret && len(resolvedCredentials.SourceSecret) == 0 {
		if token, found := resolveEnvironmentToken(resolver.environmentLookup, sourceTokenPreference); found {
			resolvedCredentials.SourceSecret = token
			resolver.logger.Debug(logMessageEnvironmentTokenAppliedConstant, zap.String(logFieldSecretRoleConstant, secretRoleSourceConstant))
		}
	}
	if len(resolvedCredentials.DestinationSecret) == 0 {
		if token, found := resolveEnvironmentToken(resolver.environmentLookup, destinationTokenPreference); found {
			resolvedCredentials.DestinationSecret = token
			resolver.logger.Debug(logMessageEnvironmentTokenAppliedConstant, zap.String(logFieldSecretRoleConstant, secretRoleDestinationConstant))
		}
	}
	return resolvedCredentials
}
