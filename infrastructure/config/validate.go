package config

import "fmt"

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const maxPort = 65535

// ValidateRequired fails when value is empty.
func ValidateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidatePort fails outside 1..65535.
func ValidatePort(field string, port int) error {
	if port < 1 || port > maxPort {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be between 1 and %d", maxPort)}
	}
	return nil
}

func ValidateLogLevel(field, level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error", "fatal":
		return nil
	}
	return &ValidationError{Field: field, Message: "must be one of debug, info, warn, error, fatal"}
}

func ValidateLogFormat(field, format string) error {
	if format == "json" || format == "console" {
		return nil
	}
	return &ValidationError{Field: field, Message: "must be json or console"}
}
