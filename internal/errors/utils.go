package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a SnazzyError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *SnazzyError {
	if err == nil {
		return nil
	}

	// Keep component and source from an inner SnazzyError so the outermost
	// error still says where things went wrong.
	var se *SnazzyError
	if errors.As(err, &se) {
		return &SnazzyError{
			Type:      errType,
			Code:      code,
			Message:   message,
			Cause:     err,
			Context:   se.Context,
			Component: se.Component,
			Source:    se.Source,
		}
	}

	return &SnazzyError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapBuild wraps an error as a build error with component context
func WrapBuild(err error, code, message, component string) *SnazzyError {
	se := Wrap(err, ErrorTypeBuild, code, message)
	if se != nil {
		se.Component = component
	}
	return se
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *SnazzyError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *SnazzyError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *SnazzyError {
	return Wrap(err, ErrorTypeInternal, code, message)
}
