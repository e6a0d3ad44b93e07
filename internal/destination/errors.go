package destination

import "fmt"

const (
	requestErrorStatusTemplateConstant = "migration of %s failed with status %d"
	requestErrorStatusBodyTemplate     = "migration of %s failed with status %d: %s"
	requestErrorCauseTemplateConstant  = "migration of %s failed: %v"
)

// RequestError reports a failed migration request for one repository.
type RequestError struct {
	RepositoryName string
	StatusCode     int
	BodyExcerpt    string
	Cause          error
}

// Error describes the failure.
func (requestError RequestError) Error() string {
	if requestError.Cause != nil {
		return fmt.Sprintf(requestErrorCauseTemplateConstant, requestError.RepositoryName, requestError.Cause)
	}
	if len(requestError.BodyExcerpt) > 0 {
		return fmt.Sprintf(requestErrorStatusBodyTemplate, requestError.RepositoryName, requestError.StatusCode, requestError.BodyExcerpt)
	}
	return fmt.Sprintf(requestErrorStatusTemplateConstant, requestError.RepositoryName, requestError.StatusCode)
}

// Unwrap exposes the underlying cause.
func (requestError RequestError) Unwrap() error {
	return requestError.Cause
}
