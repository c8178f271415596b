package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a DevError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *DevError {
	if err == nil {
		return nil
	}

	var de *DevError
	if errors.As(err, &de) {
		return &DevError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       de,
			Context:     de.Context,
			Component:   de.Component,
			FilePath:    de.FilePath,
			Recoverable: de.Recoverable,
		}
	}

	return &DevError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
		Recoverable: errType == ErrorTypeValidation ||
			errType == ErrorTypeBuild ||
			errType == ErrorTypeNetwork ||
			errType == ErrorTypeDeploy,
	}
}

// WrapBuild wraps an error as a build error
func WrapBuild(err error, code, message string) *DevError {
	return Wrap(err, ErrorTypeBuild, code, message)
}

// WrapNetwork wraps an error as a network error
func WrapNetwork(err error, code, message string) *DevError {
	return Wrap(err, ErrorTypeNetwork, code, message)
}

// WrapDeploy wraps an error as a deploy error
func WrapDeploy(err error, code, message string) *DevError {
	return Wrap(err, ErrorTypeDeploy, code, message)
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *DevError {
	de := Wrap(err, ErrorTypeIO, code, message)
	if de != nil {
		de.Recoverable = false
	}
	return de
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *DevError {
	de := Wrap(err, ErrorTypeConfig, code, message)
	if de != nil {
		de.Recoverable = false
	}
	return de
}

// FormatError formats an error for user display
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var de *DevError
	if errors.As(err, &de) {
		return de.Error()
	}

	return err.Error()
}

// GetErrorContext extracts structured logging fields from a DevError
func GetErrorContext(err error) map[string]interface{} {
	var de *DevError
	if errors.As(err, &de) {
		context := make(map[string]interface{})
		for k, v := range de.Context {
			context[k] = v
		}
		if de.Component != "" {
			context["component"] = de.Component
		}
		if de.FilePath != "" {
			context["file"] = de.FilePath
		}
		context["type"] = string(de.Type)
		context["code"] = de.Code
		context["recoverable"] = de.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// ExtractCause extracts the root cause from a wrapped error
func ExtractCause(err error) error {
	for err != nil {
		var de *DevError
		if !errors.As(err, &de) {
			return err
		}
		if de.Cause == nil {
			return de
		}
		err = de.Cause
	}
	return nil
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	messages := make([]string, 0, len(nonNil))
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return &DevError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNil)),
		Cause:   errors.Join(nonNil...),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
			"errors":      messages,
		},
	}
}
