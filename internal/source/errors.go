package source

import "fmt"

const (
	transportErrorStatusTemplateConstant = "source page %d request to %s failed with status %d"
	transportErrorStatusBodyTemplate     = "source page %d request to %s failed with status %d: %s"
	transportErrorCauseTemplateConstant  = "source page %d request to %s failed: %v"
	decodeErrorPageTemplateConstant      = "source page %d decoding failed: %v"
	decodeErrorRecordTemplateConstant    = "source page %d record %d decoding failed: %v"
)

// TransportError reports connection failures and non-2xx responses during enumeration.
type TransportError struct {
	Page        int
	URL         string
	StatusCode  int
	BodyExcerpt string
	Cause       error
}

// Error describes the transport failure.
func (transportError TransportError) Error() string {
	if transportError.Cause != nil {
		return fmt.Sprintf(transportErrorCauseTemplateConstant, transportError.Page, transportError.URL, transportError.Cause)
	}
	if len(transportError.BodyExcerpt) > 0 {
		return fmt.Sprintf(transportErrorStatusBodyTemplate, transportError.Page, transportError.URL, transportError.StatusCode, transportError.BodyExcerpt)
	}
	return fmt.Sprintf(transportErrorStatusTemplateConstant, transportError.Page, transportError.URL, transportError.StatusCode)
}

// Unwrap exposes the underlying cause.
func (transportError TransportError) Unwrap() error {
	return transportError.Cause
}

// DecodeError reports a page that is not a JSON array or a record missing required fields.
// RecordIndex is negative for page-level failures.
type DecodeError struct {
	Page        int
	RecordIndex int
	Cause       error
}

// Error describes the decoding failure.
func (decodeError DecodeError) Error() string {
	if decodeError.RecordIndex < 0 {
		return fmt.Sprintf(decodeErrorPageTemplateConstant, decodeError.Page, decodeError.Cause)
	}
	return fmt.Sprintf(decodeErrorRecordTemplateConstant, decodeError.Page, decodeError.RecordIndex, decodeError.Cause)
}

// Unwrap exposes the underlying cause.
func (decodeError DecodeError) Unwrap() error {
	return decodeError.Cause
}
