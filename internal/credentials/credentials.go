package credentials

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

const (
	redactedSecretPlaceholderConstant = "[redacted]"
	emptySecretPlaceholderConstant    = "[empty]"
	credentialsStringTemplateConstant = "source=%s:%s destination=%s:%s"
	sourceUserLogFieldConstant        = "source_user"
	sourceSecretLogFieldConstant      = "source_secret"
	destinationUserLogFieldConstant   = "destination_user"
	destinationSecretLogFieldConstant = "destination_secret"
)

// Credentials bundles the identity and secret for both hosting services.
type Credentials struct {
	SourceUser        string
	SourceSecret      string
	DestinationUser   string
	DestinationSecret string
}

// HasSourceSecret reports whether an authenticated source session is possible.
func (credentials Credentials) HasSourceSecret() bool {
	return len(credentials.SourceSecret) > 0
}

// String renders the credentials with secrets redacted.
func (credentials Credentials) String() string {
	return fmt.Sprintf(
		credentialsStringTemplateConstant,
		credentials.SourceUser,
		redactSecret(credentials.SourceSecret),
		credentials.DestinationUser,
		redactSecret(credentials.DestinationSecret),
	)
}

// MarshalLogObject implements zapcore.ObjectMarshaler without exposing secrets.
func (credentials Credentials) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString(sourceUserLogFieldConstant, credentials.SourceUser)
	encoder.AddString(sourceSecretLogFieldConstant, redactSecret(credentials.SourceSecret))
	encoder.AddString(destinationUserLogFieldConstant, credentials.DestinationUser)
	encoder.AddString(destinationSecretLogFieldConstant, redactSecret(credentials.DestinationSecret))
	return nil
}

func redactSecret(secret string) string {
	if len(secret) == 0 {
		return emptySecretPlaceholderConstant
	}
	return redactedSecretPlaceholderConstant
}
