package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
}

func TestValidationResult_AddError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("nodes[0].kind", ErrCodeMalformedDiagram, "unknown kind")

	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "nodes[0].kind", r.Errors[0].Path)
	assert.Equal(t, ErrCodeMalformedDiagram, r.Errors[0].Code)
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
}

func TestValidationResult_AddWarning(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("edges[1]", ErrCodeDanglingEdge, "edge dropped")

	assert.True(t, r.Valid(), "warnings alone should not make result invalid")
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
}

func TestValidationResult_Merge(t *testing.T) {
	r1 := &ValidationResult{}
	r1.AddError("/", ErrCodeValidation, "err1")
	r1.AddWarning("/", ErrCodeValidation, "warn1")

	r2 := &ValidationResult{}
	r2.AddError("nodes", ErrCodeMalformedDiagram, "err2")
	r2.AddWarning("edges[0]", ErrCodeDanglingEdge, "warn2")

	r1.Merge(r2)
	r1.Merge(nil)

	assert.Len(t, r1.Errors, 2)
	assert.Len(t, r1.Warnings, 2)
}

func TestValidationResult_ToError_Valid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/", ErrCodeDanglingEdge, "just a warning")
	assert.Nil(t, r.ToError())
}

func TestValidationResult_ToError_UsesFirstCode(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("nodes", ErrCodeMalformedDiagram, "no start node")
	r.AddError("nodes", ErrCodeValidation, "other")
	r.AddWarning("/", ErrCodeDanglingEdge, "warn1")

	err := r.ToError()
	require.Error(t, err)

	var rbErr *ReqbotError
	require.True(t, errors.As(err, &rbErr))
	assert.Equal(t, ErrCodeMalformedDiagram, rbErr.Code)
	assert.Equal(t, "no start node (and 1 more)", rbErr.Message)
	assert.Equal(t, "nodes", rbErr.Details["path"])
	assert.Len(t, rbErr.Details["errors"], 2)
	assert.Len(t, rbErr.Details["warnings"], 1)
}

func TestValidationResult_HasCode(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("edges[2]", ErrCodeDanglingEdge, "edge dropped")

	assert.True(t, r.HasCode(ErrCodeDanglingEdge))
	assert.False(t, r.HasCode(ErrCodeMalformedDiagram))
	assert.Equal(t, "warning DANGLING_EDGE at edges[2]: edge dropped", r.Warnings[0].String())
	assert.Equal(t, "error NOT_FOUND: gone",
		ValidationIssue{Code: ErrCodeNotFound, Message: "gone", Severity: SeverityError}.String())
}

func TestErrorCode_Wrapped(t *testing.T) {
	base := NewError(ErrCodeStorage, "disk full").WithSection("summary")
	wrapped := fmt.Errorf("save: %w", base)

	assert.Equal(t, ErrCodeStorage, ErrorCode(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeStorage))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeStorage))
	assert.Equal(t, "[STORAGE_ERROR] section summary: disk full", base.Error())
}

func TestReqbotError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewErrorf(ErrCodeGeneration, "oracle call for %s failed", "chat_reply").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[GENERATION_ERROR] oracle call for chat_reply failed", err.Error())
}
