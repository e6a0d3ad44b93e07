package mirror

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/credentials"
	"github.com/temirov/repomirror/internal/destination"
	"github.com/temirov/repomirror/internal/source"
)

const (
	resolverMissingMessageConstant   = "credential resolver not configured"
	enumeratorMissingMessageConstant = "repository enumerator not configured"
	dispatcherMissingMessageConstant = "migration dispatcher not configured"
	logMessageRunStarted             = "migration run started"
	logMessageCredentialsResolved    = "credentials resolved"
	logMessageRepositoriesMatched    = "repositories matched"
	logMessageDryRunFinished         = "dry run finished without dispatching migrations"
	logMessageRunFinished            = "migration run finished"
	logFieldCredentialsConstant      = "credentials"
	logFieldInteractiveConstant      = "interactive"
	logFieldIncludePublicConstant    = "include_public"
	logFieldIncludePrivateConstant   = "include_private"
	logFieldAnyOwnerConstant         = "any_owner"
	logFieldIncludeForksConstant     = "include_forks"
	logFieldMatchedConstant          = "matched"
	logFieldSucceededConstant        = "succeeded"
	logFieldFailedConstant           = "failed"
)

// CredentialResolver obtains the run credentials.
type CredentialResolver interface {
	Resolve(resolutionContext context.Context, credentialsSource credentials.Source, requiresSourceSecret bool) (credentials.Credentials, error)
}

// RepositoryEnumerator lists the source repositories accepted by a filter.
type RepositoryEnumerator interface {
	Enumerate(enumerationContext context.Context, runCredentials credentials.Credentials, filter source.RunFilter) ([]source.RepositoryDescriptor, error)
}

// MigrationDispatcher submits migration requests to the destination.
type MigrationDispatcher interface {
	Dispatch(dispatchContext context.Context, requests []destination.MigrationRequest, runCredentials credentials.Credentials) []destination.MigrationOutcome
}

// ServiceDependencies enumerates collaborators required by Service.
type ServiceDependencies struct {
	Logger     *zap.Logger
	Resolver   CredentialResolver
	Enumerator RepositoryEnumerator
	Dispatcher MigrationDispatcher
	Renderer   SummaryRenderer
}

// RunOptions configures a single migration run.
type RunOptions struct {
	CredentialsSource credentials.Source
	Filter            source.RunFilter
	RequestOptions    destination.RequestOptions
	DryRun            bool
}

// RunSummary captures the result of a migration run.
type RunSummary struct {
	DryRun       bool
	Matched      int
	Succeeded    int
	Failed       int
	Repositories []source.RepositoryDescriptor
	Outcomes     []destination.MigrationOutcome
}

// Err reports a PartialFailureError when any migration failed.
func (summary RunSummary) Err() error {
	if summary.Failed == 0 {
		return nil
	}
	return PartialFailureError{Succeeded: summary.Succeeded, Failed: summary.Failed}
}

// Service coordinates a migration run.
type Service struct {
	logger     *zap.Logger
	resolver   CredentialResolver
	enumerator RepositoryEnumerator
	dispatcher MigrationDispatcher
	renderer   SummaryRenderer
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Resolver == nil {
		return nil, errors.New(resolverMissingMessageConstant)
	}
	if dependencies.Enumerator == nil {
		return nil, errors.New(enumeratorMissingMessageConstant)
	}
	if dependencies.Dispatcher == nil {
		return nil, errors.New(dispatcherMissingMessageConstant)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		logger:     logger,
		resolver:   dependencies.Resolver,
		enumerator: dependencies.Enumerator,
		dispatcher: dependencies.Dispatcher,
		renderer:   dependencies.Renderer,
	}, nil
}

// Execute resolves credentials, enumerates matching repositories, builds one
// migration request per repository and dispatches them. Credential, enumeration
// and request construction failures abort the run with a StageError before any
// migration is sent. When a renderer is configured the summary is rendered
// before Execute returns; failed migrations surface as a PartialFailureError.
func (service *Service) Execute(executionContext context.Context, options RunOptions) (RunSummary, error) {
	if filterError := options.Filter.Validate(); filterError != nil {
		return RunSummary{}, filterError
	}

	service.logger.Info(
		logMessageRunStarted,
		zap.Bool(logFieldInteractiveConstant, options.CredentialsSource.IsInteractive()),
		zap.Bool(logFieldIncludePublicConstant, options.Filter.IncludePublic),
		zap.Bool(logFieldIncludePrivateConstant, options.Filter.IncludePrivate),
		zap.Bool(logFieldAnyOwnerConstant, options.Filter.AnyOwner),
		zap.Bool(logFieldIncludeForksConstant, options.Filter.IncludeForks),
	)

	runCredentials, resolveError := service.resolver.Resolve(executionContext, options.CredentialsSource, options.Filter.RequiresSourceSecret())
	if resolveError != nil {
		return RunSummary{}, StageError{Stage: StageCredentials, Cause: resolveError}
	}
	service.logger.Debug(logMessageCredentialsResolved, zap.Object(logFieldCredentialsConstant, runCredentials))

	repositories, enumerateError := service.enumerator.Enumerate(executionContext, runCredentials, options.Filter)
	if enumerateError != nil {
		return RunSummary{}, StageError{Stage: StageEnumeration, Cause: enumerateError}
	}
	service.logger.Info(logMessageRepositoriesMatched, zap.Int(logFieldMatchedConstant, len(repositories)))

	requests := make([]destination.MigrationRequest, 0, len(repositories))
	for _, repository := range repositories {
		request, buildError := destination.BuildMigrationRequest(repository, runCredentials, options.RequestOptions)
		if buildError != nil {
			return RunSummary{}, StageError{Stage: StageRequests, Cause: buildError}
		}
		requests = append(requests, request)
	}

	summary := RunSummary{
		DryRun:       options.DryRun,
		Matched:      len(repositories),
		Repositories: repositories,
	}

	if options.DryRun {
		service.logger.Info(logMessageDryRunFinished, zap.Int(logFieldMatchedConstant, summary.Matched))
		return summary, service.render(summary)
	}

	summary.Outcomes = service.dispatcher.Dispatch(executionContext, requests, runCredentials)
	for _, outcome := range summary.Outcomes {
		if outcome.Success {
			summary.Succeeded++
			continue
		}
		summary.Failed++
	}

	service.logger.Info(
		logMessageRunFinished,
		zap.Int(logFieldMatchedConstant, summary.Matched),
		zap.Int(logFieldSucceededConstant, summary.Succeeded),
		zap.Int(logFieldFailedConstant, summary.Failed),
	)

	if renderError := service.render(summary); renderError != nil {
		return summary, renderError
	}

	return summary, summary.Err()
}

func (service *Service) render(summary RunSummary) error {
	if service.renderer == nil {
		return nil
	}
	return service.renderer.Render(summary)
}
