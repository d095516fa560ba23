// Package model defines the domain types and value objects for the
// rasterbatch CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (ClassStat, ClassStatRow, Band, RunResult, etc.) are
// transient: they live for a single classify or split invocation and are
// never persisted except through an export sink or the files an engine
// writes.
//
// The package also defines exit codes (ExitCode), the error kinds used
// across the pipeline (ErrWorkspace, ErrClassification, ...) and a custom
// error type (CLIError) that carries an exit code for proper OS process
// exit handling.
package model
