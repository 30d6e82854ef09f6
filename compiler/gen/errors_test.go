package gen

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"SchemaFull", NewSchemaError("Product", "sku", "unknown reference", cause), "entgen: schema error in Product.sku: unknown reference: boom"},
		{"SchemaTypeOnly", &SchemaError{Type: "Product"}, "entgen: schema error in Product"},
		{"SchemaFieldOnly", &SchemaError{Field: "sku", Message: "bad"}, "entgen: schema error in field sku: bad"},
		{"ConfigValue", NewConfigError("Workers", -1, "must not be negative"), `entgen: config error for "Workers": must not be negative (value: -1)`},
		{"ConfigNoValue", NewConfigError("Package", nil, "cannot be empty"), `entgen: config error for "Package": cannot be empty`},
		{"Generation", NewGenerationError("backend", "product_postgres.go", "write file", cause), "entgen: generation error in phase backend (file: product_postgres.go): write file: boom"},
		{"GenerationFileOnly", &GenerationError{File: "x.go"}, "entgen: generation error (file: x.go)"},
		{"GenerationBare", &GenerationError{}, "entgen: generation error"},
		{"Validation", NewValidationError("Product", "sku", "fuzzy", "unknown filter"), "entgen: validation error in Product.sku: unknown filter (value: fuzzy)"},
		{"Dialect", NewUnimplementedDialectError("Metric", "clickhouse"), `entgen: dialect "clickhouse" is not implemented (type Metric)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorSentinels(t *testing.T) {
	cause := errors.New("root")
	tests := []struct {
		name     string
		err      error
		sentinel error
		unwraps  bool
	}{
		{"Schema", NewSchemaError("Product", "", "", cause), ErrInvalidSchema, true},
		{"Config", NewConfigError("Target", nil, "missing"), ErrMissingConfig, false},
		{"Generation", NewGenerationError("dto", "", "", cause), ErrGenerationFailed, true},
		{"Validation", &ValidationError{Cause: cause}, ErrValidationFailed, true},
		{"Dialect", NewUnimplementedDialectError("Metric", "clickhouse"), ErrUnsupportedDialect, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.sentinel)
			assert.ErrorIs(t, errors.Join(errors.New("other"), tt.err), tt.sentinel)
			assert.Equal(t, tt.unwraps, errors.Is(tt.err, cause))
		})
	}
	assert.ErrorIs(t, NewUnimplementedDialectError("Metric", "clickhouse"), ErrGenerationFailed)
	assert.NotErrorIs(t, NewSchemaError("Product", "", "", nil), ErrValidationFailed)
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name                         string
		err                          error
		schema, config, gen, invalid bool
		dialect                      bool
	}{
		{name: "Schema", err: NewSchemaError("Product", "", "", nil), schema: true},
		{name: "Config", err: NewConfigError("Package", nil, ""), config: true},
		{name: "Generation", err: NewGenerationError("dto", "", "", nil), gen: true},
		{name: "Validation", err: NewValidationError("Product", "sku", nil, ""), invalid: true},
		{
			name:    "DialectInsideGeneration",
			err:     NewGenerationError("backend", "", "", NewUnimplementedDialectError("Metric", "clickhouse")),
			gen:     true,
			dialect: true,
		},
		{
			name:    "Joined",
			err:     errors.Join(NewSchemaError("Product", "", "", nil), NewValidationError("Product", "", nil, "")),
			schema:  true,
			invalid: true,
		},
		{name: "Other", err: errors.New("other")},
		{name: "Nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.schema, IsSchemaError(tt.err))
			assert.Equal(t, tt.config, IsConfigError(tt.err))
			assert.Equal(t, tt.gen, IsGenerationError(tt.err))
			assert.Equal(t, tt.invalid, IsValidationError(tt.err))
			assert.Equal(t, tt.dialect, IsUnimplementedDialect(tt.err))
		})
	}
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("load: %w", errors.Join(
		NewSchemaError("Product", "sku", "invalid", nil),
		NewValidationError("Product", "quantity", -1, "invalid"),
	))

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "Product", schemaErr.Type)
	assert.Equal(t, "sku", schemaErr.Field)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "quantity", valErr.Field)
	assert.Equal(t, -1, valErr.Value)
}
