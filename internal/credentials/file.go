package credentials

import (
	"strings"
)

const (
	credentialsLineSeparatorConstant  = "\n"
	credentialsTokenSeparatorConstant = ":"
	carriageReturnCutsetConstant      = "\r"
	missingDestinationLineMessage     = "line is missing"
)

// ParseCredentialsFile decodes the two-line credentials file format.
//
// The first line holds the source user, followed by ":secret" when
// requiresSourceSecret is set; a secret supplied when it is not required is
// ignored. The second line must hold exactly destUser:destSecret.
func ParseCredentialsFile(contents []byte, requiresSourceSecret bool) (Credentials, error) {
	lines := splitCredentialLines(string(contents))
	switch {
	case len(lines) == 0:
		return Credentials{}, CredentialsError{Message: missingLinesMessageConstant}
	case len(lines) == 1:
		return Credentials{}, CredentialsError{Line: DestinationLine, Message: missingDestinationLineMessage}
	case len(lines) > 2:
		return Credentials{}, CredentialsError{Message: unexpectedExtraLinesMessageConstant}
	}

	sourceUser, sourceSecret, sourceError := parseSourceLine(lines[0], requiresSourceSecret)
	if sourceError != nil {
		return Credentials{}, sourceError
	}

	destinationUser, destinationSecret, destinationError := parseDestinationLine(lines[1])
	if destinationError != nil {
		return Credentials{}, destinationError
	}

	return Credentials{
		SourceUser:        sourceUser,
		SourceSecret:      sourceSecret,
		DestinationUser:   destinationUser,
		DestinationSecret: destinationSecret,
	}, nil
}

func splitCredentialLines(contents string) []string {
	rawLines := strings.Split(contents, credentialsLineSeparatorConstant)
	lines := make([]string, 0, len(rawLines))
	for _, rawLine := range rawLines {
		lines = append(lines, strings.TrimRight(rawLine, carriageReturnCutsetConstant))
	}

	for len(lines) > 0 && len(strings.TrimSpace(lines[len(lines)-1])) == 0 {
		lines = lines[:len(lines)-1]
	}

	return lines
}

func parseSourceLine(line string, requiresSourceSecret bool) (string, string, error) {
	tokens := splitTokens(line)
	if len(tokens) > 2 {
		return "", "", CredentialsError{Line: SourceLine, Message: malformedSourceTokenCountMessageConstant}
	}

	sourceUser := tokens[0]
	if len(sourceUser) == 0 {
		return "", "", CredentialsError{Line: SourceLine, Message: malformedSourceNameMessageConstant}
	}

	if !requiresSourceSecret {
		return sourceUser, "", nil
	}

	if len(tokens) != 2 || len(tokens[1]) == 0 {
		return "", "", CredentialsError{Line: SourceLine, Message: malformedSourceSecretMessageConstant}
	}

	return sourceUser, tokens[1], nil
}

func parseDestinationLine(line string) (string, string, error) {
	tokens := splitTokens(line)
	if len(tokens) != 2 || len(tokens[0]) == 0 || len(tokens[1]) == 0 {
		return "", "", CredentialsError{Line: DestinationLine, Message: malformedDestinationMessageConstant}
	}
	return tokens[0], tokens[1], nil
}

func splitTokens(line string) []string {
	tokens := strings.Split(line, credentialsTokenSeparatorConstant)
	for tokenIndex := range tokens {
		tokens[tokenIndex] = strings.TrimSpace(tokens[tokenIndex])
	}
	return tokens
}
