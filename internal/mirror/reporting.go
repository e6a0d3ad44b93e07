package mirror

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/temirov/repomirror/internal/utils"
)

// OutputFormat selects how a run summary is rendered.
type OutputFormat string

// Supported summary formats.
const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatYAML  OutputFormat = "yaml"
)

const (
	unsupportedOutputFormatTemplate = "unsupported output format %q (expected %s)"
	outputFormatChoiceSeparator     = ", "
	summaryTotalsTemplateConstant   = "%d matched, %d succeeded, %d failed\n"
	dryRunTotalsTemplateConstant    = "%d matched (dry run, nothing migrated)\n"
	resultSucceededConstant         = "succeeded"
	resultFailedConstant            = "failed"
	forkMarkerConstant              = "yes"
	notForkMarkerConstant           = "no"
	missingStatusCodeConstant       = "-"
)

var (
	dryRunTableHeader   = []string{"Repository", "Visibility", "Fork"}
	outcomesTableHeader = []string{"Repository", "Result", "Status", "Detail"}
)

// OutputFormatChoices lists the supported summary formats.
func OutputFormatChoices() []string {
	return []string{string(OutputFormatTable), string(OutputFormatYAML)}
}

// SummaryRenderer writes a run summary.
type SummaryRenderer interface {
	Render(summary RunSummary) error
}

// NewSummaryRenderer builds a renderer for the requested format writing to writer.
func NewSummaryRenderer(format OutputFormat, writer io.Writer) (SummaryRenderer, error) {
	flushingWriter := utils.NewFlushingWriter(writer)
	if flushingWriter == nil {
		flushingWriter = io.Discard
	}

	switch OutputFormat(strings.ToLower(strings.TrimSpace(string(format)))) {
	case OutputFormatTable, "":
		return tableSummaryRenderer{writer: flushingWriter}, nil
	case OutputFormatYAML:
		return yamlSummaryRenderer{writer: flushingWriter}, nil
	default:
		return nil, fmt.Errorf(unsupportedOutputFormatTemplate, format, strings.Join(OutputFormatChoices(), outputFormatChoiceSeparator))
	}
}

type tableSummaryRenderer struct {
	writer io.Writer
}

func (renderer tableSummaryRenderer) Render(summary RunSummary) error {
	table := tablewriter.NewWriter(renderer.writer)
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	if summary.DryRun {
		table.SetHeader(dryRunTableHeader)
		for _, repository := range summary.Repositories {
			forkMarker := notForkMarkerConstant
			if repository.IsFork {
				forkMarker = forkMarkerConstant
			}
			table.Append([]string{repository.FullName(), string(repository.Visibility), forkMarker})
		}
		table.Render()
		_, writeError := fmt.Fprintf(renderer.writer, dryRunTotalsTemplateConstant, summary.Matched)
		return writeError
	}

	table.SetHeader(outcomesTableHeader)
	for _, outcome := range summary.Outcomes {
		result := resultFailedConstant
		if outcome.Success {
			result = resultSucceededConstant
		}
		statusCode := missingStatusCodeConstant
		if outcome.StatusCode != 0 {
			statusCode = strconv.Itoa(outcome.StatusCode)
		}
		table.Append([]string{outcome.RepositoryName, result, statusCode, outcome.Detail})
	}
	table.Render()

	_, writeError := fmt.Fprintf(renderer.writer, summaryTotalsTemplateConstant, summary.Matched, summary.Succeeded, summary.Failed)
	return writeError
}

type yamlSummaryRenderer struct {
	writer io.Writer
}

type yamlRepository struct {
	Name       string `yaml:"name"`
	Owner      string `yaml:"owner"`
	Visibility string `yaml:"visibility"`
	Fork       bool   `yaml:"fork"`
}

type yamlOutcome struct {
	Repository string `yaml:"repository"`
	Success    bool   `yaml:"success"`
	StatusCode int    `yaml:"status_code,omitempty"`
	Detail     string `yaml:"detail"`
}

type yamlSummary struct {
	DryRun       bool             `yaml:"dry_run"`
	Matched      int              `yaml:"matched"`
	Succeeded    int              `yaml:"succeeded"`
	Failed       int              `yaml:"failed"`
	Repositories []yamlRepository `yaml:"repositories,omitempty"`
	Outcomes     []yamlOutcome    `yaml:"outcomes,omitempty"`
}

func (renderer yamlSummaryRenderer) Render(summary RunSummary) error {
	document := yamlSummary{
		DryRun:    summary.DryRun,
		Matched:   summary.Matched,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
	}
	if summary.DryRun {
		for _, repository := range summary.Repositories {
			document.Repositories = append(document.Repositories, yamlRepository{
				Name:       repository.Name,
				Owner:      repository.Owner,
				Visibility: string(repository.Visibility),
				Fork:       repository.IsFork,
			})
		}
	}
	for _, outcome := range summary.Outcomes {
		document.Outcomes = append(document.Outcomes, yamlOutcome{
			Repository: outcome.RepositoryName,
			Success:    outcome.Success,
			StatusCode: outcome.StatusCode,
			Detail:     outcome.Detail,
		})
	}

	encoder := yaml.NewEncoder(renderer.writer)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}
