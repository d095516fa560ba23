// Package config loads and validates the run configuration of
// rasterbatch.
//
// A configuration file is optional. When present it is YAML (.yaml, .yml)
// or JSON with comments (.json, .jsonc); comments and trailing commas in
// JSON files are stripped with github.com/tidwall/jsonc before decoding.
// Unknown keys are rejected so typos do not silently fall back to
// defaults.
//
// Values are layered: Default() < configuration file < command-line flags
// that were explicitly set. The CLI applies the last layer. Relative
// paths in a file are resolved against the directory of that file.
//
// Every configuration problem is reported as a model.CLIError with
// ExitConfigError.
package config
