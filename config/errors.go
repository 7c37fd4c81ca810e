package config

import "fmt"

// ConfigurationError reports missing credentials, an invalid option value
// or an unusable connection string. Hint, when set, tells the user how to
// fix it.
type ConfigurationError struct {
	Field   string
	Message string
	Hint    string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "configuration error: " + msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
