package destination

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/temirov/repomirror/internal/credentials"
	"github.com/temirov/repomirror/internal/source"
)

const (
	// DefaultSourceWebBaseURL is the web origin repositories are cloned from.
	DefaultSourceWebBaseURL = "https://github.com"

	cloneURLPathSeparatorConstant = "/"
	httpsProtocolConstant         = "https"
	httpProtocolConstant          = "http"
	cloneURLParseErrorTemplate    = "invalid clone URL for %s: %w"
	cloneURLProtocolErrorTemplate = "clone URL for %s must use http or https, got %q"
	cloneURLHostMissingTemplate   = "clone URL for %s has no host"
)

// MigrationRequest describes one repository the destination should import.
type MigrationRequest struct {
	CloneURL         string
	RepositoryName   string
	DestinationOwner string
	Mirror           bool
	Private          bool
	AuthUser         string
	AuthSecret       string
}

// RequestOptions carries the run-level settings shared by every request.
type RequestOptions struct {
	SourceWebBaseURL string
	DestinationOwner string
	Mirror           bool
}

// BuildMigrationRequest maps a repository descriptor to the destination request.
// The clone URL is <sourceWebBase>/<owner>/<name>; the source credentials let the
// destination clone private repositories. DestinationOwner defaults to the destination user.
func BuildMigrationRequest(descriptor source.RepositoryDescriptor, runCredentials credentials.Credentials, options RequestOptions) (MigrationRequest, error) {
	cloneURL, cloneURLError := buildCloneURL(options.SourceWebBaseURL, descriptor)
	if cloneURLError != nil {
		return MigrationRequest{}, cloneURLError
	}

	destinationOwner := strings.TrimSpace(options.DestinationOwner)
	if len(destinationOwner) == 0 {
		destinationOwner = runCredentials.DestinationUser
	}

	return MigrationRequest{
		CloneURL:         cloneURL,
		RepositoryName:   descriptor.Name,
		DestinationOwner: destinationOwner,
		Mirror:           options.Mirror,
		Private:          descriptor.Visibility == source.VisibilityPrivate,
		AuthUser:         runCredentials.SourceUser,
		AuthSecret:       runCredentials.SourceSecret,
	}, nil
}

func buildCloneURL(sourceWebBaseURL string, descriptor source.RepositoryDescriptor) (string, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(sourceWebBaseURL), cloneURLPathSeparatorConstant)
	if len(baseURL) == 0 {
		baseURL = DefaultSourceWebBaseURL
	}

	rawCloneURL := strings.Join([]string{baseURL, descriptor.Owner, descriptor.Name}, cloneURLPathSeparatorConstant)
	endpoint, endpointError := transport.NewEndpoint(rawCloneURL)
	if endpointError != nil {
		return "", fmt.Errorf(cloneURLParseErrorTemplate, descriptor.FullName(), endpointError)
	}

	switch strings.ToLower(endpoint.Protocol) {
	case httpsProtocolConstant, httpProtocolConstant:
	default:
		return "", fmt.Errorf(cloneURLProtocolErrorTemplate, descriptor.FullName(), endpoint.Protocol)
	}
	if len(endpoint.Host) == 0 {
		return "", fmt.Errorf(cloneURLHostMissingTemplate, descriptor.FullName())
	}

	return strings.TrimRight(endpoint.String(), cloneURLPathSeparatorConstant), nil
}
