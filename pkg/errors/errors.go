package errors

import (
	"fmt"
	"os"

	"wayclipd/pkg/logger"
)

type ExitCode int

const (
	ExitCodeSuccess       ExitCode = 0
	ExitCodeGeneral       ExitCode = 1
	ExitCodeConfig        ExitCode = 2
	ExitCodeDatabase      ExitCode = 3
	ExitCodeClipboard     ExitCode = 4
	ExitCodeValidation    ExitCode = 5
	ExitCodeFileOperation ExitCode = 6
)

type Error struct {
	Code       ExitCode
	Message    string
	Underlying error
	Suggestion string
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func New(code ExitCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func NewWithError(code ExitCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Underlying: err}
}

func NewWithSuggestion(code ExitCode, message string, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion}
}

func NewWithAll(code ExitCode, message string, err error, suggestion string) *Error {
	return &Error{Code: code, Message: message, Underlying: err, Suggestion: suggestion}
}

func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if wrapped, ok := err.(*Error); ok {
		return &Error{
			Code:       wrapped.Code,
			Message:    message + ": " + wrapped.Message,
			Underlying: wrapped.Underlying,
			Suggestion: wrapped.Suggestion,
		}
	}
	return &Error{Code: ExitCodeGeneral, Message: message, Underlying: err}
}

func WrapWithCode(err error, code ExitCode, message string) *Error {
	if err == nil {
		return nil
	}
	var errMsg string
	if wrapped, ok := err.(*Error); ok {
		errMsg = wrapped.Message
		if wrapped.Underlying != nil {
			errMsg += ": " + wrapped.Underlying.Error()
		}
	} else {
		errMsg = err.Error()
	}
	return &Error{Code: code, Message: message + ": " + errMsg, Underlying: err}
}

func IsExitCode(err error, code ExitCode) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

// Fatal logs a startup error through the daemon's structured logger and
// exits the process with the error's exit code. There is no terminal to
// present a formatted message to, so this replaces the colorized handler
// the same type carries in CLI tools.
func Fatal(err error) {
	if err == nil {
		return
	}
	code := ExitCodeGeneral
	if e, ok := err.(*Error); ok {
		code = e.Code
		if e.Underlying != nil {
			logger.Error().Err(e.Underlying).Str("suggestion", e.Suggestion).Msg(e.Message)
		} else {
			logger.Error().Str("suggestion", e.Suggestion).Msg(e.Message)
		}
	} else {
		logger.Error().Msg(err.Error())
	}
	os.Exit(int(code))
}

func ConfigError(message string, err error) *Error {
	return &Error{Code: ExitCodeConfig, Message: message, Underlying: err}
}

func DatabaseError(message string, err error) *Error {
	return &Error{Code: ExitCodeDatabase, Message: message, Underlying: err}
}

func ClipboardError(message string, err error) *Error {
	return &Error{Code: ExitCodeClipboard, Message: message, Underlying: err}
}

func ValidationError(message string) *Error {
	return &Error{Code: ExitCodeValidation, Message: message}
}
