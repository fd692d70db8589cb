package config

import "fmt"

// MissingFieldError reports a required configuration key that is absent.
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("config field %q is missing", e.Path)
}

// EmptyFieldError reports a configuration key that is present but has no
// value.
type EmptyFieldError struct {
	Path string
}

func (e *EmptyFieldError) Error() string {
	return fmt.Sprintf("config field %q is empty", e.Path)
}

// TypeMismatchError reports a configuration value of the wrong shape.
type TypeMismatchError struct {
	Path string
	Want string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("config field %q is not a %s", e.Path, e.Want)
}
