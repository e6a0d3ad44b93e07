package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/credentials"
	"github.com/temirov/repomirror/internal/utils"
)

const (
	// DefaultBaseURL is the public GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultPageSize is the largest page GitHub serves.
	DefaultPageSize = 100
	// DefaultUserAgent identifies repomirror to the source API.
	DefaultUserAgent = "repomirror"
	// DefaultRequestTimeout bounds every source request when no HTTP client is supplied.
	DefaultRequestTimeout = 30 * time.Second

	authenticatedListingPathTemplate   = "user/repos?page=%d&per_page=%d"
	unauthenticatedListingPathTemplate = "users/%s/repos?page=%d&per_page=%d"
	firstPageIndexConstant             = 1
	maximumErrorBodyExcerptBytes       = 512
	pageSizeMinimumValueConstant       = 1
	baseURLPathSeparatorConstant       = "/"
	baseURLParseErrorTemplate          = "invalid source base URL %q: %w"
	baseURLSchemeMissingTemplate       = "source base URL %q must include a scheme and host"
	pageSizeInvalidTemplateConstant    = "page size must be positive, got %d"
	logMessagePageFetchedConstant      = "source page fetched"
	logMessageRepositoryAccepted       = "repository accepted"
	logMessageRepositoryRejected       = "repository rejected by filter"
	logMessageEnumerationFinished      = "source enumeration finished"
	logFieldPageConstant               = "page"
	logFieldRecordCountConstant        = "records"
	logFieldRepositoryConstant         = "repository"
	logFieldMatchedCountConstant       = "matched"
	logFieldPagesFetchedConstant       = "pages_fetched"
	logFieldAuthenticatedConstant      = "authenticated"
)

// EnumeratorConfiguration tunes the source endpoint and paging.
type EnumeratorConfiguration struct {
	BaseURL   string
	PageSize  int
	UserAgent string
}

// Enumerator lists and filters repositories from the source API.
type Enumerator struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    *url.URL
	pageSize   int
	userAgent  string
}

// NewEnumerator validates configuration and constructs an Enumerator.
// Empty configuration values fall back to the public GitHub defaults.
func NewEnumerator(logger *zap.Logger, httpClient *http.Client, configuration EnumeratorConfiguration) (*Enumerator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	rawBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(rawBaseURL) == 0 {
		rawBaseURL = DefaultBaseURL
	}
	parsedBaseURL, parseError := url.Parse(rawBaseURL)
	if parseError != nil {
		return nil, fmt.Errorf(baseURLParseErrorTemplate, rawBaseURL, parseError)
	}
	if len(parsedBaseURL.Scheme) == 0 || len(parsedBaseURL.Host) == 0 {
		return nil, fmt.Errorf(baseURLSchemeMissingTemplate, rawBaseURL)
	}
	parsedBaseURL.Path = strings.TrimRight(parsedBaseURL.Path, baseURLPathSeparatorConstant) + baseURLPathSeparatorConstant

	pageSize := configuration.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < pageSizeMinimumValueConstant {
		return nil, fmt.Errorf(pageSizeInvalidTemplateConstant, pageSize)
	}

	userAgent := strings.TrimSpace(configuration.UserAgent)
	if len(userAgent) == 0 {
		userAgent = DefaultUserAgent
	}

	return &Enumerator{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    parsedBaseURL,
		pageSize:   pageSize,
		userAgent:  userAgent,
	}, nil
}

// Enumerate fetches every page and returns the descriptors accepted by filter, in API order.
// The loop ends at the first empty page. Any transport or decoding failure aborts with no results.
//
// With a source secret the authenticated listing is used with Basic credentials;
// without one the public per-user listing is requested anonymously.
func (enumerator *Enumerator) Enumerate(enumerationContext context.Context, sourceCredentials credentials.Credentials, filter RunFilter) ([]RepositoryDescriptor, error) {
	accepted := make([]RepositoryDescriptor, 0)
	authenticated := sourceCredentials.HasSourceSecret()
	client := enumerator.newClient(sourceCredentials)

	pageIndex := firstPageIndexConstant
	for ; ; pageIndex++ {
		if contextError := enumerationContext.Err(); contextError != nil {
			return nil, contextError
		}

		repositories, fetchError := enumerator.fetchPage(enumerationContext, client, sourceCredentials, pageIndex)
		if fetchError != nil {
			return nil, fetchError
		}

		enumerator.logger.Debug(
			logMessagePageFetchedConstant,
			zap.Int(logFieldPageConstant, pageIndex),
			zap.Int(logFieldRecordCountConstant, len(repositories)),
		)

		if len(repositories) == 0 {
			break
		}

		for recordIndex, repository := range repositories {
			descriptor, describeError := describeRepository(repository)
			if describeError != nil {
				return nil, DecodeError{Page: pageIndex, RecordIndex: recordIndex, Cause: describeError}
			}

			if !filter.Accepts(descriptor, sourceCredentials.SourceUser) {
				enumerator.logger.Debug(logMessageRepositoryRejected, zap.String(logFieldRepositoryConstant, descriptor.FullName()))
				continue
			}

			enumerator.logger.Debug(logMessageRepositoryAccepted, zap.String(logFieldRepositoryConstant, descriptor.FullName()))
			accepted = append(accepted, descriptor)
		}
	}

	enumerator.logger.Info(
		logMessageEnumerationFinished,
		zap.Int(logFieldPagesFetchedConstant, pageIndex),
		zap.Int(logFieldMatchedCountConstant, len(accepted)),
		zap.Bool(logFieldAuthenticatedConstant, authenticated),
	)

	return accepted, nil
}

func (enumerator *Enumerator) newClient(sourceCredentials credentials.Credentials) *github.Client {
	httpClient := enumerator.httpClient
	if sourceCredentials.HasSourceSecret() {
		basicAuthTransport := &github.BasicAuthTransport{
			Username:  sourceCredentials.SourceUser,
			Password:  sourceCredentials.SourceSecret,
			Transport: enumerator.httpClient.Transport,
		}
		httpClient = &http.Client{
			Transport:     basicAuthTransport,
			Timeout:       enumerator.httpClient.Timeout,
			CheckRedirect: enumerator.httpClient.CheckRedirect,
			Jar:           enumerator.httpClient.Jar,
		}
	}

	client := github.NewClient(httpClient)
	baseURL := *enumerator.baseURL
	client.BaseURL = &baseURL
	client.UserAgent = enumerator.userAgent
	return client
}

func (enumerator *Enumerator) fetchPage(requestContext context.Context, client *github.Client, sourceCredentials credentials.Credentials, pageIndex int) ([]*github.Repository, error) {
	listOptions := github.ListOptions{Page: pageIndex, PerPage: enumerator.pageSize}

	var (
		repositories []*github.Repository
		response     *github.Response
		listingError error
	)
	if sourceCredentials.HasSourceSecret() {
		repositories, response, listingError = client.Repositories.ListByAuthenticatedUser(requestContext, &github.RepositoryListByAuthenticatedUserOptions{ListOptions: listOptions})
	} else {
		repositories, response, listingError = client.Repositories.ListByUser(requestContext, sourceCredentials.SourceUser, &github.RepositoryListByUserOptions{ListOptions: listOptions})
	}
	if listingError != nil {
		return nil, enumerator.classifyPageError(requestContext, sourceCredentials, pageIndex, response, listingError)
	}

	return repositories, nil
}

// classifyPageError maps a failed listing call onto the enumeration error types.
// A 2xx response whose body could not be decoded is a DecodeError; everything else is a TransportError.
func (enumerator *Enumerator) classifyPageError(requestContext context.Context, sourceCredentials credentials.Credentials, pageIndex int, response *github.Response, listingError error) error {
	if errors.Is(listingError, context.Canceled) || errors.Is(listingError, context.DeadlineExceeded) {
		if contextError := requestContext.Err(); contextError != nil {
			return contextError
		}
	}

	pageURL := enumerator.pageURL(sourceCredentials, pageIndex)

	var errorResponse *github.ErrorResponse
	if errors.As(listingError, &errorResponse) && errorResponse.Response != nil {
		return TransportError{Page: pageIndex, URL: pageURL, StatusCode: errorResponse.Response.StatusCode, BodyExcerpt: utils.TruncateText(errorResponse.Message, maximumErrorBodyExcerptBytes)}
	}

	var rateLimitError *github.RateLimitError
	if errors.As(listingError, &rateLimitError) && rateLimitError.Response != nil {
		return TransportError{Page: pageIndex, URL: pageURL, StatusCode: rateLimitError.Response.StatusCode, BodyExcerpt: utils.TruncateText(rateLimitError.Message, maximumErrorBodyExcerptBytes)}
	}

	var acceptedError *github.AcceptedError
	if response != nil && isSuccessStatus(response.StatusCode) && !errors.As(listingError, &acceptedError) {
		return DecodeError{Page: pageIndex, RecordIndex: -1, Cause: listingError}
	}

	statusCode := 0
	if response != nil {
		statusCode = response.StatusCode
	}
	return TransportError{Page: pageIndex, URL: pageURL, StatusCode: statusCode, Cause: listingError}
}

func (enumerator *Enumerator) pageURL(sourceCredentials credentials.Credentials, pageIndex int) string {
	listingPath := fmt.Sprintf(authenticatedListingPathTemplate, pageIndex, enumerator.pageSize)
	if !sourceCredentials.HasSourceSecret() {
		listingPath = fmt.Sprintf(unauthenticatedListingPathTemplate, url.PathEscape(sourceCredentials.SourceUser), pageIndex, enumerator.pageSize)
	}
	return enumerator.baseURL.String() + listingPath
}

func isSuccessStatus(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}
