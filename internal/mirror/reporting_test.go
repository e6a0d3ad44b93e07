package mirror_test

import (
	"bufio"
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/repomirror/internal/destination"
	"github.com/temirov/repomirror/internal/mirror"
	"github.com/temirov/repomirror/internal/source"
)

func completedSummary() mirror.RunSummary {
	return mirror.RunSummary{
		Matched:   3,
		Succeeded: 2,
		Failed:    1,
		Outcomes: []destination.MigrationOutcome{
			{RepositoryName: "repo1", Success: true, StatusCode: http.StatusCreated, Detail: "201 Created"},
			{RepositoryName: "repo2", StatusCode: http.StatusConflict, Detail: "migration of repo2 failed with status 409"},
			{RepositoryName: "repo3", Detail: "migration of repo3 failed: connection refused"},
		},
	}
}

func dryRunSummary() mirror.RunSummary {
	return mirror.RunSummary{
		DryRun:  true,
		Matched: 2,
		Repositories: []source.RepositoryDescriptor{
			{Name: "repo1", Owner: "alice", Visibility: source.VisibilityPrivate},
			{Name: "tools", Owner: "acme", Visibility: source.VisibilityPublic, IsFork: true},
		},
	}
}

func TestTableSummaryRendererListsOutcomes(testInstance *testing.T) {
	var output bytes.Buffer
	renderer, rendererError := mirror.NewSummaryRenderer(mirror.OutputFormatTable, &output)
	require.NoError(testInstance, rendererError)

	require.NoError(testInstance, renderer.Render(completedSummary()))

	rendered := output.String()
	require.Contains(testInstance, rendered, "REPOSITORY")
	require.Contains(testInstance, rendered, "repo1")
	require.Contains(testInstance, rendered, "succeeded")
	require.Contains(testInstance, rendered, "409")
	require.Contains(testInstance, rendered, "connection refused")
	require.Contains(testInstance, rendered, "3 matched, 2 succeeded, 1 failed\n")
}

func TestSummaryRenderersFlushBufferedOutput(testInstance *testing.T) {
	testCases := []struct {
		name           string
		format         mirror.OutputFormat
		expectedOutput string
	}{
		{name: "table", format: mirror.OutputFormatTable, expectedOutput: "3 matched, 2 succeeded, 1 failed\n"},
		{name: "yaml", format: mirror.OutputFormatYAML, expectedOutput: "failed: 1"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			var destinationOutput bytes.Buffer
			bufferedOutput := bufio.NewWriterSize(&destinationOutput, 64*1024)

			renderer, rendererError := mirror.NewSummaryRenderer(testCase.format, bufferedOutput)
			require.NoError(testInstance, rendererError)
			require.NoError(testInstance, renderer.Render(completedSummary()))

			require.Zero(testInstance, bufferedOutput.Buffered())
			require.Contains(testInstance, destinationOutput.String(), "repo2")
			require.Contains(testInstance, destinationOutput.String(), testCase.expectedOutput)
		})
	}
}

func TestTableSummaryRendererListsDryRunRepositories(testInstance *testing.T) {
	var output bytes.Buffer
	renderer, rendererError := mirror.NewSummaryRenderer("", &output)
	require.NoError(testInstance, rendererError)

	require.NoError(testInstance, renderer.Render(dryRunSummary()))

	rendered := output.String()
	require.Contains(testInstance, rendered, "alice/repo1")
	require.Contains(testInstance, rendered, "acme/tools")
	require.Contains(testInstance, rendered, "private")
	require.Contains(testInstance, rendered, "2 matched (dry run, nothing migrated)\n")
}

func TestYAMLSummaryRendererProducesDocument(testInstance *testing.T) {
	var output bytes.Buffer
	renderer, rendererError := mirror.NewSummaryRenderer("YAML", &output)
	require.NoError(testInstance, rendererError)

	require.NoError(testInstance, renderer.Render(completedSummary()))

	var document struct {
		DryRun    bool `yaml:"dry_run"`
		Matched   int  `yaml:"matched"`
		Succeeded int  `yaml:"succeeded"`
		Failed    int  `yaml:"failed"`
		Outcomes  []struct {
			Repository string `yaml:"repository"`
			Success    bool   `yaml:"success"`
			StatusCode int    `yaml:"status_code"`
			Detail     string `yaml:"detail"`
		} `yaml:"outcomes"`
	}
	require.NoError(testInstance, yaml.Unmarshal(output.Bytes(), &document))

	require.False(testInstance, document.DryRun)
	require.Equal(testInstance, 3, document.Matched)
	require.Equal(testInstance, 2, document.Succeeded)
	require.Equal(testInstance, 1, document.Failed)
	require.Len(testInstance, document.Outcomes, 3)
	require.Equal(testInstance, "repo2", document.Outcomes[1].Repository)
	require.Equal(testInstance, http.StatusConflict, document.Outcomes[1].StatusCode)
	require.False(testInstance, document.Outcomes[1].Success)
	require.Zero(testInstance, document.Outcomes[2].StatusCode)
}

func TestNewSummaryRendererRejectsUnknownFormat(testInstance *testing.T) {
	renderer, rendererError := mirror.NewSummaryRenderer("xml", &bytes.Buffer{})
	require.Error(testInstance, rendererError)
	require.Nil(testInstance, renderer)
	require.Contains(testInstance, rendererError.Error(), "table, yaml")
}
