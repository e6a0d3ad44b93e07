package credentials

import "fmt"

const (
	credentialsErrorTemplateConstant         = "credentials: %s"
	credentialsLineErrorTemplateConstant     = "credentials: %s line: %s"
	credentialsErrorCauseTemplateConstant    = "%s: %v"
	sourceLineNameConstant                   = CredentialsLine("source")
	destinationLineNameConstant              = CredentialsLine("destination")
	malformedSourceNameMessageConstant       = "expected a non-empty user name"
	malformedSourceSecretMessageConstant     = "expected user:secret with a non-empty secret"
	malformedSourceTokenCountMessageConstant = "expected user or user:secret"
	malformedDestinationMessageConstant      = "expected user:secret with two non-empty tokens"
	missingLinesMessageConstant              = "expected two lines (source then destination)"
	unexpectedExtraLinesMessageConstant      = "unexpected content after the destination line"
	credentialsFileReadMessageTemplate       = "unable to read credentials file %s"
	credentialsPromptMessageTemplateConstant = "unable to read %s"
)

// CredentialsLine names the credentials file line an error refers to.
type CredentialsLine string

// Credentials file line identifiers.
const (
	SourceLine      = sourceLineNameConstant
	DestinationLine = destinationLineNameConstant
)

// CredentialsError reports malformed credential files or incomplete interactive input.
type CredentialsError struct {
	Line    CredentialsLine
	Message string
	Cause   error
}

// Error describes the credentials failure, naming the offending line when known.
func (credentialsError CredentialsError) Error() string {
	message := credentialsError.Message
	if credentialsError.Cause != nil {
		message = fmt.Sprintf(credentialsErrorCauseTemplateConstant, message, credentialsError.Cause)
	}
	if len(credentialsError.Line) == 0 {
		return fmt.Sprintf(credentialsErrorTemplateConstant, message)
	}
	return fmt.Sprintf(credentialsLineErrorTemplateConstant, credentialsError.Line, message)
}

// Unwrap exposes the underlying cause.
func (credentialsError CredentialsError) Unwrap() error {
	return credentialsError.Cause
}
