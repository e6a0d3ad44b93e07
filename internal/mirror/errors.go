package mirror

import "fmt"

const (
	stageErrorTemplateConstant          = "%s stage failed: %v"
	partialFailureErrorTemplateConstant = "%d of %d migrations failed"
)

// Stage identifies a fatal phase of a migration run.
type Stage string

// Run stages that abort before any migration is dispatched.
const (
	StageCredentials Stage = "credentials"
	StageEnumeration Stage = "enumeration"
	StageRequests    Stage = "requests"
)

// StageError wraps a fatal failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Cause error
}

// Error describes the failure.
func (stageError StageError) Error() string {
	return fmt.Sprintf(stageErrorTemplateConstant, stageError.Stage, stageError.Cause)
}

// Unwrap exposes the underlying cause.
func (stageError StageError) Unwrap() error {
	return stageError.Cause
}

// PartialFailureError reports a completed run in which some migrations failed.
type PartialFailureError struct {
	Succeeded int
	Failed    int
}

// Error summarizes the failure counts.
func (partialFailureError PartialFailureError) Error() string {
	return fmt.Sprintf(partialFailureErrorTemplateConstant, partialFailureError.Failed, partialFailureError.Succeeded+partialFailureError.Failed)
}
