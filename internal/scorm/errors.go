package scorm

import (
	"errors"
	"fmt"
)

// Stable error codes for the import and runtime taxonomy. Import-time
// codes abort the whole import; runtime codes are reported to the
// player but never end the learner session.
const (
	CodeUnsupportedSchema  = "unsupported_schema"
	CodeUnsupportedVersion = "unsupported_version"
	CodeManifestInvalid    = "manifest_invalid"
	CodeResourceNotFound   = "resource_not_found"
	CodeEntryPointNotFound = "entry_point_not_found"
	CodeNotLaunchable      = "not_launchable"
	CodeInvalidValue       = "invalid_value"
)

type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(code string, format string, args ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// IsCode reports whether err carries the given scorm error code.
func IsCode(err error, code string) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func UnsupportedSchema(schema string) *Error {
	return NewError(CodeUnsupportedSchema, "unsupported SCORM schema: %q", schema)
}

func UnsupportedVersion(version string) *Error {
	return NewError(CodeUnsupportedVersion, "unsupported SCORM version: %q", version)
}

func ManifestInvalid(format string, args ...interface{}) *Error {
	return NewError(CodeManifestInvalid, format, args...)
}

func ResourceNotFound(identifierRef string) *Error {
	return NewError(CodeResourceNotFound, "resource not found for identifier: %s", identifierRef)
}

func EntryPointNotFound(candidate string) *Error {
	if candidate == "" {
		return NewError(CodeEntryPointNotFound, "no launchable entry point found")
	}
	return NewError(CodeEntryPointNotFound, "entry point file not found: %s", candidate)
}

func NotLaunchable(title string) *Error {
	return NewError(CodeNotLaunchable, "SCO %q is not launchable and cannot be tracked", title)
}

func InvalidValue(element, value, reason string) *Error {
	return NewError(CodeInvalidValue, "invalid value %q for %s: %s", value, element, reason)
}
