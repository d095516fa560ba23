package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// ValidationError is a single configuration problem.
type ValidationError struct {
	// Field is the configuration key, e.g. "export.format".
	Field string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Check returns every problem in c; an empty slice means c is valid.
func (c *Config) Check() []ValidationError {
	var problems []ValidationError
	add := func(field, format string, args ...any) {
		problems = append(problems, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Workspace) == "" {
		add("workspace", "must not be empty")
	}
	if strings.TrimSpace(c.Engine) == "" {
		add("engine", "must not be empty")
	}
	if c.Band < 1 {
		add("band", "must be 1 or greater, got %d", c.Band)
	}

	if strings.TrimSpace(c.Scheme) != "" && len(c.Classes) > 0 {
		add("scheme", "set either scheme or classes, not both")
	} else if _, err := c.ClassificationScheme(); err != nil {
		field := "scheme"
		if len(c.Classes) > 0 {
			field = "classes"
		}
		add(field, "%v", err)
	}

	if _, err := c.Policy(); err != nil {
		add("nodata_policy", "%v", err)
	}
	if _, err := c.ExportFormat(); err != nil {
		add("export.format", "%v", err)
	}
	if strings.EqualFold(c.Engine, "docker") && strings.TrimSpace(c.Docker.Image) == "" {
		add("docker.image", "must not be empty for the docker engine")
	}
	if err := c.Log.Validate(); err != nil {
		add("log", "%v", err)
	}
	return problems
}

// Validate returns nil when c is valid, or a CLIError with
// ExitConfigError listing every problem.
func (c *Config) Validate() error {
	problems := c.Check()
	if len(problems) == 0 {
		return nil
	}

	errs := make([]error, len(problems))
	for i := range problems {
		errs[i] = &problems[i]
	}
	return model.WrapCLIError(model.ExitConfigError, "invalid configuration", errors.Join(errs...))
}
