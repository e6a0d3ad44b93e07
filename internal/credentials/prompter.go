package credentials

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	lineTerminatorConstant  = '\n'
	lineTrimCutsetConstant  = "\r\n"
	maskedEchoNewlineString = "\n"
)

// Prompter reads one field of interactive input.
type Prompter interface {
	PromptField(label string, maskInput bool) (string, error)
}

// IOPrompter prompts on writer and reads newline-terminated answers from input.
// Masked fields are read without echo when input is a terminal.
type IOPrompter struct {
	input  io.Reader
	reader *bufio.Reader
	writer io.Writer
}

// NewIOPrompter constructs a prompter from the provided reader and writer.
func NewIOPrompter(input io.Reader, output io.Writer) *IOPrompter {
	return &IOPrompter{input: input, reader: bufio.NewReader(input), writer: output}
}

// PromptField writes label and returns the answer without its trailing newline.
// An empty answer is returned as is; io.EOF is reported only when no input at all was available.
func (prompter *IOPrompter) PromptField(label string, maskInput bool) (string, error) {
	if prompter.writer != nil {
		if _, writeError := io.WriteString(prompter.writer, label); writeError != nil {
			return "", writeError
		}
	}

	if maskInput {
		if terminalFile, isTerminal := prompter.terminalInput(); isTerminal {
			secretBytes, readError := term.ReadPassword(int(terminalFile.Fd()))
			if prompter.writer != nil {
				_, _ = io.WriteString(prompter.writer, maskedEchoNewlineString)
			}
			if readError != nil {
				return "", readError
			}
			return string(secretBytes), nil
		}
	}

	response, readError := prompter.reader.ReadString(lineTerminatorConstant)
	if readError != nil {
		if !errors.Is(readError, io.EOF) || len(response) == 0 {
			return "", readError
		}
	}

	return strings.TrimRight(response, lineTrimCutsetConstant), nil
}

func (prompter *IOPrompter) terminalInput() (*os.File, bool) {
	inputFile, isFile := prompter.input.(*os.File)
	if !isFile {
		return nil, false
	}
	return inputFile, term.IsTerminal(int(inputFile.Fd()))
}
