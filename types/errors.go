package types

import "fmt"

// ConfigError reports an invalid grid layout or learning parameter
type ConfigError struct {
	Msg string
}

func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// StateError reports a command that is not legal in the current session state
type StateError struct {
	Msg string
}

func NewStateError(format string, args ...interface{}) *StateError {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

func (e *StateError) Error() string {
	return e.Msg
}

// InvalidActionError reports an unrecognized action token
type InvalidActionError struct {
	Action string
}

func NewInvalidActionError(action string) *InvalidActionError {
	return &InvalidActionError{Action: action}
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q, must be one of NORTH, SOUTH, EAST, WEST, PICK, DROP or auto", e.Action)
}
