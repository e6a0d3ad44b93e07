package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repomirror/internal/credentials"
	"github.com/temirov/repomirror/internal/utils"
)

const (
	// DefaultRequestTimeout bounds every migration request when no HTTP client is supplied.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultConcurrency dispatches one request at a time.
	DefaultConcurrency = 1

	migrateEndpointPathConstant      = "api/v1/repos/migrate"
	migrationServiceGitConstant      = "git"
	contentTypeHeaderNameConstant    = "Content-Type"
	acceptHeaderNameConstant         = "Accept"
	jsonMediaTypeConstant            = "application/json"
	maximumResponseExcerptBytes      = 512
	successDetailTemplateConstant    = "%d %s"
	baseURLMissingMessageConstant    = "destination base URL must be provided"
	baseURLParseErrorTemplate        = "invalid destination base URL %q: %w"
	baseURLSchemeMissingTemplate     = "destination base URL %q must include a scheme and host"
	concurrencyInvalidTemplate       = "concurrency must be positive, got %d"
	payloadEncodingErrorTemplate     = "unable to encode migration payload: %w"
	requestConstructionErrorTemplate = "unable to build migration request: %w"
	logMessageMigrationRequested     = "migration requested"
	logMessageMigrationFailed        = "migration failed"
	logMessageDispatchFinished       = "migration dispatch finished"
	logFieldRepositoryNameConstant   = "repository"
	logFieldDestinationOwnerConstant = "destination_owner"
	logFieldCloneURLConstant         = "clone_url"
	logFieldMirrorConstant           = "mirror"
	logFieldPrivateConstant          = "private"
	logFieldStatusCodeConstant       = "status_code"
	logFieldSucceededCountConstant   = "succeeded"
	logFieldFailedCountConstant      = "failed"
	logFieldConcurrencyConstant      = "concurrency"
)

// HTTPClient executes HTTP requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// MigrationOutcome records the result of one migration request.
type MigrationOutcome struct {
	RepositoryName string
	Success        bool
	StatusCode     int
	Detail         string
	Err            error
}

// DispatcherConfiguration configures the destination endpoint and parallelism.
type DispatcherConfiguration struct {
	BaseURL     string
	Concurrency int
}

// Dispatcher sends migration requests to the destination API.
type Dispatcher struct {
	logger      *zap.Logger
	httpClient  HTTPClient
	migrateURL  string
	concurrency int
}

type migrationPayload struct {
	CloneAddress string `json:"clone_addr"`
	RepoName     string `json:"repo_name"`
	RepoOwner    string `json:"repo_owner"`
	AuthUsername string `json:"auth_username,omitempty"`
	AuthPassword string `json:"auth_password,omitempty"`
	Mirror       bool   `json:"mirror"`
	Private      bool   `json:"private"`
	Service      string `json:"service"`
	Wiki         bool   `json:"wiki"`
}

// NewDispatcher validates configuration and constructs a Dispatcher.
func NewDispatcher(logger *zap.Logger, httpClient HTTPClient, configuration DispatcherConfiguration) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	rawBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(rawBaseURL) == 0 {
		return nil, errors.New(baseURLMissingMessageConstant)
	}
	parsedBaseURL, parseError := url.Parse(strings.TrimRight(rawBaseURL, "/"))
	if parseError != nil {
		return nil, fmt.Errorf(baseURLParseErrorTemplate, rawBaseURL, parseError)
	}
	if len(parsedBaseURL.Scheme) == 0 || len(parsedBaseURL.Host) == 0 {
		return nil, fmt.Errorf(baseURLSchemeMissingTemplate, rawBaseURL)
	}

	concurrency := configuration.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency < 0 {
		return nil, fmt.Errorf(concurrencyInvalidTemplate, concurrency)
	}

	return &Dispatcher{
		logger:      logger,
		httpClient:  httpClient,
		migrateURL:  parsedBaseURL.JoinPath(migrateEndpointPathConstant).String(),
		concurrency: concurrency,
	}, nil
}

// Dispatch sends every request and returns one outcome per request, in request order.
// With a concurrency of one the requests are sent strictly sequentially. Failures are
// recorded in the outcome and never interrupt other requests.
func (dispatcher *Dispatcher) Dispatch(dispatchContext context.Context, requests []MigrationRequest, runCredentials credentials.Credentials) []MigrationOutcome {
	outcomes := make([]MigrationOutcome, len(requests))

	var group errgroup.Group
	group.SetLimit(dispatcher.concurrency)
	for requestIndex := range requests {
		group.Go(func() error {
			outcomes[requestIndex] = dispatcher.dispatchOne(dispatchContext, requests[requestIndex], runCredentials)
			return nil
		})
	}
	_ = group.Wait()

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
		}
	}
	dispatcher.logger.Info(
		logMessageDispatchFinished,
		zap.Int(logFieldSucceededCountConstant, succeeded),
		zap.Int(logFieldFailedCountConstant, len(outcomes)-succeeded),
		zap.Int(logFieldConcurrencyConstant, dispatcher.concurrency),
	)

	return outcomes
}

func (dispatcher *Dispatcher) dispatchOne(dispatchContext context.Context, migrationRequest MigrationRequest, runCredentials credentials.Credentials) MigrationOutcome {
	dispatcher.logger.Info(
		logMessageMigrationRequested,
		zap.String(logFieldRepositoryNameConstant, migrationRequest.RepositoryName),
		zap.String(logFieldDestinationOwnerConstant, migrationRequest.DestinationOwner),
		zap.String(logFieldCloneURLConstant, migrationRequest.CloneURL),
		zap.Bool(logFieldMirrorConstant, migrationRequest.Mirror),
		zap.Bool(logFieldPrivateConstant, migrationRequest.Private),
	)

	statusCode, body, sendError := dispatcher.send(dispatchContext, migrationRequest, runCredentials)
	if sendError != nil {
		return dispatcher.failedOutcome(RequestError{RepositoryName: migrationRequest.RepositoryName, StatusCode: statusCode, Cause: sendError})
	}

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return dispatcher.failedOutcome(RequestError{RepositoryName: migrationRequest.RepositoryName, StatusCode: statusCode, BodyExcerpt: utils.TruncateText(string(body), maximumResponseExcerptBytes)})
	}

	return MigrationOutcome{
		RepositoryName: migrationRequest.RepositoryName,
		Success:        true,
		StatusCode:     statusCode,
		Detail:         fmt.Sprintf(successDetailTemplateConstant, statusCode, http.StatusText(statusCode)),
	}
}

func (dispatcher *Dispatcher) send(requestContext context.Context, migrationRequest MigrationRequest, runCredentials credentials.Credentials) (int, []byte, error) {
	payload, encodingError := json.Marshal(migrationPayload{
		CloneAddress: migrationRequest.CloneURL,
		RepoName:     migrationRequest.RepositoryName,
		RepoOwner:    migrationRequest.DestinationOwner,
		AuthUsername: migrationRequest.AuthUser,
		AuthPassword: migrationRequest.AuthSecret,
		Mirror:       migrationRequest.Mirror,
		Private:      migrationRequest.Private,
		Service:      migrationServiceGitConstant,
		Wiki:         true,
	})
	if encodingError != nil {
		return 0, nil, fmt.Errorf(payloadEncodingErrorTemplate, encodingError)
	}

	httpRequest, requestError := http.NewRequestWithContext(requestContext, http.MethodPost, dispatcher.migrateURL, bytes.NewReader(payload))
	if requestError != nil {
		return 0, nil, fmt.Errorf(requestConstructionErrorTemplate, requestError)
	}
	httpRequest.Header.Set(contentTypeHeaderNameConstant, jsonMediaTypeConstant)
	httpRequest.Header.Set(acceptHeaderNameConstant, jsonMediaTypeConstant)
	httpRequest.SetBasicAuth(runCredentials.DestinationUser, runCredentials.DestinationSecret)

	response, responseError := dispatcher.httpClient.Do(httpRequest)
	if responseError != nil {
		return 0, nil, responseError
	}
	defer response.Body.Close()

	body, readError := io.ReadAll(io.LimitReader(response.Body, maximumResponseExcerptBytes))
	if readError != nil {
		return response.StatusCode, nil, readError
	}
	_, _ = io.Copy(io.Discard, response.Body)

	return response.StatusCode, body, nil
}

func (dispatcher *Dispatcher) failedOutcome(requestError RequestError) MigrationOutcome {
	dispatcher.logger.Warn(
		logMessageMigrationFailed,
		zap.String(logFieldRepositoryNameConstant, requestError.RepositoryName),
		zap.Int(logFieldStatusCodeConstant, requestError.StatusCode),
		zap.Error(requestError),
	)
	return MigrationOutcome{
		RepositoryName: requestError.RepositoryName,
		StatusCode:     requestError.StatusCode,
		Detail:         requestError.Error(),
		Err:            requestError,
	}
}
