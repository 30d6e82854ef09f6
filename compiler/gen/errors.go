package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrInvalidSchema      = errors.New("entgen: invalid schema")
	ErrMissingConfig      = errors.New("entgen: missing configuration")
	ErrGenerationFailed   = errors.New("entgen: code generation failed")
	ErrValidationFailed   = errors.New("entgen: validation failed")
	ErrUnsupportedDialect = errors.New("entgen: unsupported dialect")
)

// describe renders "entgen: <what>[ <where>][: msg][ (value: v)][: cause]".
func describe(what, where, msg string, value any, cause error) string {
	var b strings.Builder
	b.WriteString("entgen: ")
	b.WriteString(what)
	if where != "" {
		b.WriteString(" ")
		b.WriteString(where)
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if value != nil {
		fmt.Fprintf(&b, " (value: %v)", value)
	}
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

// location returns "in Type", "in Type.field" or "".
func location(typ, field string) string {
	switch {
	case typ == "" && field == "":
		return ""
	case field == "":
		return "in " + typ
	case typ == "":
		return "in field " + field
	default:
		return "in " + typ + "." + field
	}
}

// SchemaError reports a structural schema problem: a missing identifier,
// a reference to an unknown field or entity, a duplicate name.
type SchemaError struct {
	Type    string
	Field   string
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	return describe("schema error", location(e.Type, e.Field), e.Message, nil, e.Cause)
}

func (e *SchemaError) Unwrap() error        { return e.Cause }
func (e *SchemaError) Is(target error) bool { return target == ErrInvalidSchema }

// NewSchemaError returns a SchemaError on typeName, and on fieldName when
// it is not empty.
func NewSchemaError(typeName, fieldName, message string, cause error) *SchemaError {
	return &SchemaError{Type: typeName, Field: fieldName, Message: message, Cause: cause}
}

// ConfigError reports a rejected generator option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	return describe("config error", fmt.Sprintf("for %q", e.Option), e.Message, e.Value, nil)
}

func (e *ConfigError) Is(target error) bool { return target == ErrMissingConfig }

// NewConfigError returns a ConfigError. A nil value is left out of the
// message.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// GenerationError reports a failure while rendering or writing one
// artifact. Phase is the artifact kind.
type GenerationError struct {
	Phase   string
	File    string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	var where string
	if e.Phase != "" {
		where = "in phase " + e.Phase
	}
	if e.File != "" {
		where = strings.TrimSpace(where + " (file: " + e.File + ")")
	}
	return describe("generation error", where, e.Message, nil, e.Cause)
}

func (e *GenerationError) Unwrap() error        { return e.Cause }
func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{Phase: phase, File: file, Message: message, Cause: cause}
}

// ValidationError reports a malformed attribute value. The extractor
// collects them and returns them joined.
type ValidationError struct {
	Type    string
	Field   string
	Value   any
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return describe("validation error", location(e.Type, e.Field), e.Message, e.Value, e.Cause)
}

func (e *ValidationError) Unwrap() error        { return e.Cause }
func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

func NewValidationError(typeName, field string, value any, message string) *ValidationError {
	return &ValidationError{Type: typeName, Field: field, Value: value, Message: message}
}

// UnimplementedDialectError is returned for an entity whose dialect has no
// backend. It matches both ErrUnsupportedDialect and ErrGenerationFailed.
type UnimplementedDialectError struct {
	Type    string
	Dialect string
}

func (e *UnimplementedDialectError) Error() string {
	return fmt.Sprintf("entgen: dialect %q is not implemented (type %s)", e.Dialect, e.Type)
}

func (e *UnimplementedDialectError) Is(target error) bool {
	return target == ErrUnsupportedDialect || target == ErrGenerationFailed
}

func NewUnimplementedDialectError(typeName, dialect string) *UnimplementedDialectError {
	return &UnimplementedDialectError{Type: typeName, Dialect: dialect}
}

// as reports whether err, or any error it wraps or joins, is a T.
func as[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// IsSchemaError reports whether err holds a *SchemaError.
func IsSchemaError(err error) bool { return as[*SchemaError](err) }

// IsConfigError reports whether err holds a *ConfigError.
func IsConfigError(err error) bool { return as[*ConfigError](err) }

// IsGenerationError reports whether err holds a *GenerationError.
func IsGenerationError(err error) bool { return as[*GenerationError](err) }

// IsValidationError reports whether err holds a *ValidationError.
func IsValidationError(err error) bool { return as[*ValidationError](err) }

// IsUnimplementedDialect reports whether err holds an
// *UnimplementedDialectError.
func IsUnimplementedDialect(err error) bool { return as[*UnimplementedDialectError](err) }
