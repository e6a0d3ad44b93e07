package credentials_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/repomirror/internal/credentials"
	pathutils "github.com/temirov/repomirror/internal/utils/path"
)

type scriptedPrompter struct {
	answers        []string
	err            error
	recordedLabels []string
	recordedMasks  []bool
}

func (prompter *scriptedPrompter) PromptField(label string, maskInput bool) (string, error) {
	prompter.recordedLabels = append(prompter.recordedLabels, label)
	prompter.recordedMasks = append(prompter.recordedMasks, maskInput)
	if len(prompter.answers) == 0 {
		if prompter.err != nil {
			return "", prompter.err
		}
		return "", io.EOF
	}
	answer := prompter.answers[0]
	prompter.answers = prompter.answers[1:]
	return answer, nil
}

func emptyEnvironment(string) (string, bool) {
	return "", false
}

func TestResolverInteractivePromptOrder(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		requiresSourceSecret bool
		answers              []string
		expectedLabels       []string
		expectedMasks        []bool
		expectedCredentials  credentials.Credentials
	}{
		{
			name:                 "source_secret_required",
			requiresSourceSecret: true,
			answers:              []string{"alice", "tok123", "bob", "pw456"},
			expectedLabels:       []string{"Source username: ", "Source token: ", "Destination username: ", "Destination password or token: "},
			expectedMasks:        []bool{false, true, false, true},
			expectedCredentials:  credentials.Credentials{SourceUser: "alice", SourceSecret: "tok123", DestinationUser: "bob", DestinationSecret: "pw456"},
		},
		{
			name:                 "source_secret_skipped",
			requiresSourceSecret: false,
			answers:              []string{"alice", "bob", "pw456"},
			expectedLabels:       []string{"Source username: ", "Destination username: ", "Destination password or token: "},
			expectedMasks:        []bool{false, false, true},
			expectedCredentials:  credentials.Credentials{SourceUser: "alice", DestinationUser: "bob", DestinationSecret: "pw456"},
		},
		{
			name:                 "empty_answers_accepted",
			requiresSourceSecret: true,
			answers:              []string{"alice", "", "bob", ""},
			expectedLabels:       []string{"Source username: ", "Source token: ", "Destination username: ", "Destination password or token: "},
			expectedMasks:        []bool{false, true, false, true},
			expectedCredentials:  credentials.Credentials{SourceUser: "alice", DestinationUser: "bob"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			prompter := &scriptedPrompter{answers: testCase.answers}
			resolver := credentials.NewResolver(credentials.ResolverDependencies{
				Prompter:          prompter,
				EnvironmentLookup: emptyEnvironment,
			})

			resolvedCredentials, resolveError := resolver.Resolve(context.Background(), credentials.InteractiveSource(), testCase.requiresSourceSecret)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedCredentials, resolvedCredentials)
			require.Equal(testInstance, testCase.expectedLabels, prompter.recordedLabels)
			require.Equal(testInstance, testCase.expectedMasks, prompter.recordedMasks)
		})
	}
}

func TestResolverInteractiveIncompleteInput(testInstance *testing.T) {
	prompter := &scriptedPrompter{answers: []string{"alice"}}
	resolver := credentials.NewResolver(credentials.ResolverDependencies{Prompter: prompter, EnvironmentLookup: emptyEnvironment})

	_, resolveError := resolver.Resolve(context.Background(), credentials.InteractiveSource(), true)
	require.Error(testInstance, resolveError)

	var credentialsError credentials.CredentialsError
	require.True(testInstance, errors.As(resolveError, &credentialsError))
	require.ErrorIs(testInstance, resolveError, io.ErrUnexpectedEOF)
	require.Contains(testInstance, resolveError.Error(), "source token")
}

func TestResolverInteractiveHonorsCancellation(testInstance *testing.T) {
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	prompter := &scriptedPrompter{answers: []string{"alice"}}
	resolver := credentials.NewResolver(credentials.ResolverDependencies{Prompter: prompter, EnvironmentLookup: emptyEnvironment})

	_, resolveError := resolver.Resolve(cancelledContext, credentials.InteractiveSource(), true)
	require.ErrorIs(testInstance, resolveError, context.Canceled)
	require.Empty(testInstance, prompter.recordedLabels)
}

func TestResolverReadsCredentialsFile(testInstance *testing.T) {
	homeDirectory := testInstance.TempDir()
	credentialsPath := filepath.Join(homeDirectory, "credentials")
	require.NoError(testInstance, os.WriteFile(credentialsPath, []byte("alice:tok123\nbob:pw456\n"), 0o600))

	resolver := credentials.NewResolver(credentials.ResolverDependencies{
		Prompter:          &scriptedPrompter{},
		EnvironmentLookup: emptyEnvironment,
		HomeExpander:      pathutils.NewHomeExpanderWithProvider(func() (string, error) { return homeDirectory, nil }),
	})

	resolvedCredentials, resolveError := resolver.Resolve(context.Background(), credentials.FileSource("~/credentials"), true)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, credentials.Credentials{SourceUser: "alice", SourceSecret: "tok123", DestinationUser: "bob", DestinationSecret: "pw456"}, resolvedCredentials)
}

func TestResolverMissingCredentialsFile(testInstance *testing.T) {
	resolver := credentials.NewResolver(credentials.ResolverDependencies{
		FileReader:        func(string) ([]byte, error) { return nil, os.ErrNotExist },
		EnvironmentLookup: emptyEnvironment,
	})

	_, resolveError := resolver.Resolve(context.Background(), credentials.FileSource("/missing"), true)
	require.ErrorIs(testInstance, resolveError, os.ErrNotExist)

	var credentialsError credentials.CredentialsError
	require.True(testInstance, errors.As(resolveError, &credentialsError))
}

func TestResolverEnvironmentFallback(testInstance *testing.T) {
	environment := map[string]string{
		credentials.EnvGitHubToken: " env-source-token ",
		credentials.EnvGiteaToken:  "env-destination-token",
	}
	environmentLookup := func(key string) (string, bool) {
		value, found := environment[key]
		return value, found
	}

	testCases := []struct {
		name                 string
		requiresSourceSecret bool
		answers              []string
		expectedCredentials  credentials.Credentials
	}{
		{
			name:                 "empty_secrets_completed",
			requiresSourceSecret: true,
			answers:              []string{"alice", "", "bob", ""},
			expectedCredentials:  credentials.Credentials{SourceUser: "alice", SourceSecret: "env-source-token", DestinationUser: "bob", DestinationSecret: "env-destination-token"},
		},
		{
			name:                 "explicit_secrets_win",
			requiresSourceSecret: true,
			answers:              []string{"alice", "tok123", "bob", "pw456"},
			expectedCredentials:  credentials.Credentials{SourceUser: "alice", SourceSecret: "tok123", DestinationUser: "bob", DestinationSecret: "pw456"},
		},
		{
			name:                 "source_secret_not_required_stays_empty",
			requiresSourceSecret: false,
			answers:              []string{"alice", "bob", "pw456"},
			expectedCredentials:  credentials.Credentials{SourceUser: "alice", DestinationUser: "bob", DestinationSecret: "pw456"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			resolver := credentials.NewResolver(credentials.ResolverDependencies{
				Prompter:          &scriptedPrompter{answers: testCase.answers},
				EnvironmentLookup: environmentLookup,
			})

			resolvedCredentials, resolveError := resolver.Resolve(context.Background(), credentials.InteractiveSource(), testCase.requiresSourceSecret)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedCredentials, resolvedCredentials)
		})
	}
}

func TestResolverNeverLogsSecrets(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	resolver := credentials.NewResolver(credentials.ResolverDependencies{
		Logger:            zap.New(observedCore),
		Prompter:          &scriptedPrompter{answers: []string{"alice", "tok123", "bob", "pw456"}},
		EnvironmentLookup: emptyEnvironment,
	})

	resolvedCredentials, resolveError := resolver.Resolve(context.Background(), credentials.InteractiveSource(), true)
	require.NoError(testInstance, resolveError)
	require.NotZero(testInstance, observedLogs.Len())

	for _, entry := range observedLogs.All() {
		for _, value := range entry.ContextMap() {
			require.NotContains(testInstance, toString(value), "tok123")
			require.NotContains(testInstance, toString(value), "pw456")
		}
	}

	require.NotContains(testInstance, resolvedCredentials.String(), "tok123")
	require.NotContains(testInstance, resolvedCredentials.String(), "pw456")
	require.Contains(testInstance, resolvedCredentials.String(), "alice")
}

func toString(value any) string {
	switch typedValue := value.(type) {
	case string:
		return typedValue
	case map[string]any:
		combined := ""
		for _, nestedValue := range typedValue {
			combined += toString(nestedValue) + " "
		}
		return combined
	default:
		return ""
	}
}
