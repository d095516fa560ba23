// Package logging builds the structured zerolog logger used for
// diagnostics.
//
// Diagnostics always go to stderr so they never mix with the
// classification result stream on stdout. Two formats are available:
// "console" (human readable, the default) and "json" (one object per
// line). Packages derive a component logger with ComponentLogger so every
// event carries a component field.
package logging
