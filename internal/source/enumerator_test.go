package source_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/credentials"
	"github.com/temirov/repomirror/internal/source"
)

const (
	testSourceSecretConstant     = "tok123"
	repositoryRecordTemplate     = `{"name":%q,"visibility":%q,"fork":%t,"owner":{"login":%q}}`
	expectedAcceptHeaderConstant = "application/vnd.github.v3+json"
	expectedUserAgentConstant    = "repomirror-test"
	testPageSizeConstant         = 2
)

type recordedPageRequest struct {
	path          string
	page          string
	perPage       string
	authorization string
	accept        string
	userAgent     string
}

type pagedSourceServer struct {
	mutex          sync.Mutex
	pages          map[int]string
	status         map[int]int
	failureMessage string
	requests       []recordedPageRequest
}

func (server *pagedSourceServer) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	server.requests = append(server.requests, recordedPageRequest{
		path:          request.URL.Path,
		page:          request.URL.Query().Get("page"),
		perPage:       request.URL.Query().Get("per_page"),
		authorization: request.Header.Get("Authorization"),
		accept:        request.Header.Get("Accept"),
		userAgent:     request.Header.Get("User-Agent"),
	})

	pageIndex, _ := strconv.Atoi(request.URL.Query().Get("page"))
	if statusCode, exists := server.status[pageIndex]; exists {
		failureMessage := server.failureMessage
		if len(failureMessage) == 0 {
			failureMessage = "upstream failure"
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(statusCode)
		_ = json.NewEncoder(writer).Encode(map[string]string{"message": failureMessage})
		return
	}

	body, exists := server.pages[pageIndex]
	if !exists {
		body = "[]"
	}
	writer.Header().Set("Content-Type", "application/json")
	_, _ = writer.Write([]byte(body))
}

func repositoryRecord(name string, visibility string, fork bool, owner string) string {
	return fmt.Sprintf(repositoryRecordTemplate, name, visibility, fork, owner)
}

func newTestEnumerator(testInstance *testing.T, baseURL string) *source.Enumerator {
	enumerator, enumeratorError := source.NewEnumerator(zap.NewNop(), http.DefaultClient, source.EnumeratorConfiguration{
		BaseURL:   baseURL,
		PageSize:  testPageSizeConstant,
		UserAgent: expectedUserAgentConstant,
	})
	require.NoError(testInstance, enumeratorError)
	return enumerator
}

func authenticatedCredentials() credentials.Credentials {
	return credentials.Credentials{SourceUser: testSourceUserConstant, SourceSecret: testSourceSecretConstant, DestinationUser: "bob", DestinationSecret: "pw456"}
}

func TestEnumeratorPaginatesUntilEmptyPage(testInstance *testing.T) {
	server := &pagedSourceServer{pages: map[int]string{
		1: "[" + repositoryRecord("one", "public", false, testSourceUserConstant) + "," + repositoryRecord("secret", "private", false, testSourceUserConstant) + "]",
		2: "[" + repositoryRecord("two", "public", false, testSourceUserConstant) + "," + repositoryRecord("fork", "public", true, testSourceUserConstant) + "]",
		3: "[]",
	}}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	enumerator := newTestEnumerator(testInstance, httpServer.URL)
	descriptors, enumerateError := enumerator.Enumerate(context.Background(), authenticatedCredentials(), source.NewRunFilter(source.VisibilityModePublic, false))
	require.NoError(testInstance, enumerateError)

	require.Equal(testInstance, []source.RepositoryDescriptor{
		{Name: "one", Owner: testSourceUserConstant, Visibility: source.VisibilityPublic},
		{Name: "two", Owner: testSourceUserConstant, Visibility: source.VisibilityPublic},
	}, descriptors)

	require.Len(testInstance, server.requests, 3)
	expectedAuthorization := "Basic " + base64.StdEncoding.EncodeToString([]byte(testSourceUserConstant+":"+testSourceSecretConstant))
	for requestIndex, recordedRequest := range server.requests {
		require.Equal(testInstance, "/user/repos", recordedRequest.path)
		require.Equal(testInstance, strconv.Itoa(requestIndex+1), recordedRequest.page)
		require.Equal(testInstance, strconv.Itoa(testPageSizeConstant), recordedRequest.perPage)
		require.Equal(testInstance, expectedAuthorization, recordedRequest.authorization)
		require.Equal(testInstance, expectedAcceptHeaderConstant, recordedRequest.accept)
		require.Equal(testInstance, expectedUserAgentConstant, recordedRequest.userAgent)
	}
}

func TestEnumeratorPreservesApiOrderAcrossOwners(testInstance *testing.T) {
	server := &pagedSourceServer{pages: map[int]string{
		1: "[" + repositoryRecord("zeta", "private", false, testOtherOwnerConstant) + "," + repositoryRecord("alpha", "public", false, testSourceUserConstant) + "]",
		2: "[" + repositoryRecord("mid", "private", true, testSourceUserConstant) + "]",
	}}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	enumerator := newTestEnumerator(testInstance, httpServer.URL)
	descriptors, enumerateError := enumerator.Enumerate(context.Background(), authenticatedCredentials(), source.NewRunFilter(source.VisibilityModeAll, true))
	require.NoError(testInstance, enumerateError)

	names := make([]string, 0, len(descriptors))
	for _, descriptor := range descriptors {
		names = append(names, descriptor.Name)
	}
	require.Equal(testInstance, []string{"zeta", "alpha", "mid"}, names)
}

func TestEnumeratorUsesPublicListingWithoutSecret(testInstance *testing.T) {
	server := &pagedSourceServer{pages: map[int]string{
		1: "[" + repositoryRecord("site", "public", false, testSourceUserConstant) + "]",
	}}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	enumerator := newTestEnumerator(testInstance, httpServer.URL)
	unauthenticated := credentials.Credentials{SourceUser: testSourceUserConstant, DestinationUser: "bob", DestinationSecret: "pw456"}
	descriptors, enumerateError := enumerator.Enumerate(context.Background(), unauthenticated, source.NewRunFilter(source.VisibilityModePublic, false))
	require.NoError(testInstance, enumerateError)
	require.Len(testInstance, descriptors, 1)

	require.Len(testInstance, server.requests, 2)
	for _, recordedRequest := range server.requests {
		require.Equal(testInstance, "/users/"+testSourceUserConstant+"/repos", recordedRequest.path)
		require.Empty(testInstance, recordedRequest.authorization)
	}
}

func TestEnumeratorDecodeStrictness(testInstance *testing.T) {
	testCases := []struct {
		name                string
		pages               map[int]string
		expectedPage        int
		expectedRecordIndex int
	}{
		{
			name: "missing_owner_login",
			pages: map[int]string{
				1: "[" + repositoryRecord("one", "public", false, testSourceUserConstant) + "]",
				2: "[" + repositoryRecord("two", "public", false, testSourceUserConstant) + `,{"name":"orphan","visibility":"public","fork":false,"owner":{}}]`,
			},
			expectedPage:        2,
			expectedRecordIndex: 1,
		},
		{
			name: "missing_owner_object",
			pages: map[int]string{
				1: `[{"name":"orphan","visibility":"public","fork":false}]`,
			},
			expectedPage:        1,
			expectedRecordIndex: 0,
		},
		{
			name: "missing_name",
			pages: map[int]string{
				1: `[{"visibility":"public","fork":false,"owner":{"login":"alice"}}]`,
			},
			expectedPage:        1,
			expectedRecordIndex: 0,
		},
		{
			name: "non_array_body",
			pages: map[int]string{
				1: `{"message":"not a list"}`,
			},
			expectedPage:        1,
			expectedRecordIndex: -1,
		},
		{
			name: "malformed_json",
			pages: map[int]string{
				1: `[{"name":`,
			},
			expectedPage:        1,
			expectedRecordIndex: -1,
		},
		{
			name: "null_record",
			pages: map[int]string{
				1: `[null]`,
			},
			expectedPage:        1,
			expectedRecordIndex: 0,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			server := &pagedSourceServer{pages: testCase.pages}
			httpServer := httptest.NewServer(server)
			defer httpServer.Close()

			enumerator := newTestEnumerator(testInstance, httpServer.URL)
			descriptors, enumerateError := enumerator.Enumerate(context.Background(), authenticatedCredentials(), source.NewRunFilter(source.VisibilityModeAll, true))
			require.Error(testInstance, enumerateError)
			require.Nil(testInstance, descriptors)

			var decodeError source.DecodeError
			require.True(testInstance, errors.As(enumerateError, &decodeError))
			require.Equal(testInstance, testCase.expectedPage, decodeError.Page)
			require.Equal(testInstance, testCase.expectedRecordIndex, decodeError.RecordIndex)
			require.Len(testInstance, server.requests, testCase.expectedPage)
		})
	}
}

func TestEnumeratorTransportFailures(testInstance *testing.T) {
	server := &pagedSourceServer{
		pages:  map[int]string{1: "[" + repositoryRecord("one", "public", false, testSourceUserConstant) + "]"},
		status: map[int]int{2: http.StatusBadGateway},
	}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	enumerator := newTestEnumerator(testInstance, httpServer.URL)
	descriptors, enumerateError := enumerator.Enumerate(context.Background(), authenticatedCredentials(), source.NewRunFilter(source.VisibilityModePublic, false))
	require.Nil(testInstance, descriptors)

	var transportError source.TransportError
	require.True(testInstance, errors.As(enumerateError, &transportError))
	require.Equal(testInstance, 2, transportError.Page)
	require.Equal(testInstance, http.StatusBadGateway, transportError.StatusCode)
	require.Contains(testInstance, transportError.Error(), "upstream failure")
	require.NotContains(testInstance, transportError.Error(), testSourceSecretConstant)
}

func TestEnumeratorTruncatesFailureMessagesOnCharacterBoundaries(testInstance *testing.T) {
	failureMessage := "a" + strings.Repeat("é", 400)
	server := &pagedSourceServer{
		status:         map[int]int{1: http.StatusForbidden},
		failureMessage: failureMessage,
	}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	enumerator := newTestEnumerator(testInstance, httpServer.URL)
	_, enumerateError := enumerator.Enumerate(context.Background(), authenticatedCredentials(), source.NewRunFilter(source.VisibilityModeBoth, false))

	var transportError source.TransportError
	require.True(testInstance, errors.As(enumerateError, &transportError))
	require.Equal(testInstance, http.StatusForbidden, transportError.StatusCode)
	require.True(testInstance, utf8.ValidString(transportError.BodyExcerpt))
	require.True(testInstance, strings.HasPrefix(failureMessage, transportError.BodyExcerpt))
	require.Greater(testInstance, len(transportError.BodyExcerpt), 500)
	require.True(testInstance, utf8.ValidString(enumerateError.Error()))
}

func TestEnumeratorHonoursBaseURLPathPrefix(testInstance *testing.T) {
	server := &pagedSourceServer{}
	httpServer := httptest.NewServer(http.StripPrefix("/api/v3", server))
	defer httpServer.Close()

	enumerator := newTestEnumerator(testInstance, httpServer.URL+"/api/v3")
	descriptors, enumerateError := enumerator.Enumerate(context.Background(), authenticatedCredentials(), source.NewRunFilter(source.VisibilityModeBoth, false))
	require.NoError(testInstance, enumerateError)
	require.Empty(testInstance, descriptors)

	require.Len(testInstance, server.requests, 1)
	require.Equal(testInstance, "/user/repos", server.requests[0].path)
}

func TestEnumeratorConnectionRefused(testInstance *testing.T) {
	httpServer := httptest.NewServer(http.NotFoundHandler())
	closedURL := httpServer.URL
	httpServer.Close()

	enumerator := newTestEnumerator(testInstance, closedURL)
	_, enumerateError := enumerator.Enumerate(context.Background(), authenticatedCredentials(), source.NewRunFilter(source.VisibilityModePublic, false))

	var transportError source.TransportError
	require.True(testInstance, errors.As(enumerateError, &transportError))
	require.Equal(testInstance, 1, transportError.Page)
	require.NotNil(testInstance, transportError.Cause)
}

func TestEnumeratorStopsOnCancelledContext(testInstance *testing.T) {
	server := &pagedSourceServer{}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	enumerator := newTestEnumerator(testInstance, httpServer.URL)
	_, enumerateError := enumerator.Enumerate(cancelledContext, authenticatedCredentials(), source.NewRunFilter(source.VisibilityModePublic, false))
	require.ErrorIs(testInstance, enumerateError, context.Canceled)
	require.Empty(testInstance, server.requests)
}

func TestNewEnumeratorValidatesConfiguration(testInstance *testing.T) {
	_, missingSchemeError := source.NewEnumerator(nil, nil, source.EnumeratorConfiguration{BaseURL: "api.github.com"})
	require.Error(testInstance, missingSchemeError)

	_, negativePageError := source.NewEnumerator(nil, nil, source.EnumeratorConfiguration{PageSize: -1})
	require.Error(testInstance, negativePageError)

	enumerator, defaultError := source.NewEnumerator(nil, nil, source.EnumeratorConfiguration{})
	require.NoError(testInstance, defaultError)
	require.NotNil(testInstance, enumerator)
}
