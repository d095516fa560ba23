package model

import (
	"errors"
	"fmt"
)

// ExitCode defines the CLI exit codes. Every error kind of the pipeline
// has its own code so scripts can tell a bad workspace from a rejected
// classification without parsing messages.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitWorkspaceError indicates the workspace is missing or unreadable,
	// or an output directory could not be prepared.
	ExitWorkspaceError ExitCode = 2

	// ExitClassificationError indicates the engine rejected the scheme or
	// the input raster.
	ExitClassificationError ExitCode = 3

	// ExitAttributeReadError indicates the classified raster's attribute
	// table was missing or malformed.
	ExitAttributeReadError ExitCode = 4

	// ExitExportIOError indicates the export file could not be opened or
	// written.
	ExitExportIOError ExitCode = 5

	// ExitBandCopyError indicates a band could not be materialized.
	ExitBandCopyError ExitCode = 6

	// ExitConfigError indicates the configuration file or flags are invalid.
	ExitConfigError ExitCode = 7

	// ExitEngineUnavailable indicates the selected raster engine could not
	// be initialised (unknown name, Docker not running, ...).
	ExitEngineUnavailable ExitCode = 8

	// ExitPartialFailure indicates a continue-on-error run finished but at
	// least one raster or band failed.
	ExitPartialFailure ExitCode = 9
)

// Error kinds. A *CLIError matches the kind of its exit code, so callers
// can write errors.Is(err, model.ErrWorkspace) regardless of how the
// error was wrapped.
var (
	ErrWorkspace         = errors.New("workspace error")
	ErrClassification    = errors.New("classification error")
	ErrAttributeRead     = errors.New("attribute read error")
	ErrExportIO          = errors.New("export I/O error")
	ErrBandCopy          = errors.New("band copy error")
	ErrConfig            = errors.New("configuration error")
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrPartialFailure    = errors.New("partial failure")
)

var kinds = map[ExitCode]error{
	ExitWorkspaceError:      ErrWorkspace,
	ExitClassificationError: ErrClassification,
	ExitAttributeReadError:  ErrAttributeRead,
	ExitExportIOError:       ErrExportIO,
	ExitBandCopyError:       ErrBandCopy,
	ExitConfigError:         ErrConfig,
	ExitEngineUnavailable:   ErrEngineUnavailable,
	ExitPartialFailure:      ErrPartialFailure,
}

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description. It names the
	// raster or band that failed when there is one.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error kind associated with e.Code.
func (e *CLIError) Is(target error) bool {
	kind := e.Code.Kind()
	return kind != nil && kind == target
}

// Kind returns the sentinel error for the code, or nil for codes without
// a dedicated kind (ExitSuccess, ExitGeneralError).
func (c ExitCode) Kind() error {
	return kinds[c]
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeOf returns the exit code carried by the first CLIError in err's
// chain, or ExitGeneralError when there is none.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}
