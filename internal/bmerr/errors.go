// Package bmerr attaches machine-readable codes to command-line errors and
// maps them to process exit codes.
package bmerr

import (
	"fmt"
	"strings"

	"github.com/hupe1980/biomatch"
	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"

	CodeEngineInputRejected   Code = "engine.input.rejected"
	CodeEngineStorageFailure  Code = "engine.storage.transient"
	CodeEngineIndexRepair     Code = "engine.index.repair"
	CodeEngineInternalFailure Code = "engine.internal.failure"
)

// Exit codes returned by the biomatch command.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitRejected = 2
	ExitRetry    = 3
	ExitRepair   = 4
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

// Classify wraps an engine error with the code matching the reaction the
// caller should take.
func Classify(err error, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	code := CodeEngineInternalFailure
	switch {
	case biomatch.IsRejected(err):
		code = CodeEngineInputRejected
	case biomatch.IsTransient(err):
		code = CodeEngineStorageFailure
	case biomatch.NeedsRepair(err):
		code = CodeEngineIndexRepair
	}
	return Wrap(err, code, msg, fields...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}
	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}
	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch CodeOf(err) {
	case CodeEngineInputRejected, CodeCLIInputInvalid:
		return ExitRejected
	case CodeEngineStorageFailure:
		return ExitRetry
	case CodeEngineIndexRepair:
		return ExitRepair
	}
	// Errors that never went through Classify.
	switch {
	case biomatch.IsRejected(err):
		return ExitRejected
	case biomatch.IsTransient(err):
		return ExitRetry
	case biomatch.NeedsRepair(err):
		return ExitRepair
	}
	return ExitFailure
}

func reason(code Code) string {
	parts := strings.Split(string(code), ".")
	return parts[len(parts)-1]
}

// IsInvalidInput reports whether err carries an input validation code.
func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_value" || r == "rejected"
}

func flatten(fields []Attr) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}
