package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeNoLigands, "no ligand atoms found")

	assert.Equal(t, CodeNoLigands, err.Code)
	assert.Equal(t, "no ligand atoms found", err.Message)
	assert.Empty(t, err.Detail)
	assert.Nil(t, err.Cause)
	assert.NotEmpty(t, err.Stack, "New should capture a stack trace")
}

func TestNewf(t *testing.T) {
	err := Newf(CodeInvalidCutoff, "cutoff %.1f out of range", -1.5)
	assert.Equal(t, "cutoff -1.5 out of range", err.Message)
}

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without detail",
			err:  &AppError{Code: CodeNoBindingSites, Message: "no binding sites found"},
			want: "[ENGINE_002] no binding sites found",
		},
		{
			name: "with detail",
			err:  &AppError{Code: CodeJobNotFound, Message: "job not found", Detail: "id=abc"},
			want: "[JOB_001] job not found: id=abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeDatabaseError, "failed to store analysis job")

	require.NotNil(t, err)
	assert.Equal(t, CodeDatabaseError, err.Code)
	assert.True(t, errors.Is(err, cause), "wrapped cause must be reachable via errors.Is")
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestWrap_UnknownCodePreservesOriginal(t *testing.T) {
	inner := New(CodeNoLigands, "no ligands")
	outer := Wrap(inner, CodeUnknown, "analysis failed")

	assert.Equal(t, CodeNoLigands, outer.Code)
}

func TestWithDetail(t *testing.T) {
	base := New(CodeNotFound, "object not found")
	detailed := base.WithDetail("key=structures/1abc.pdb")

	assert.Empty(t, base.Detail, "WithDetail must not mutate the receiver")
	assert.Equal(t, "key=structures/1abc.pdb", detailed.Detail)

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNoBindingSites, "none"))

	assert.True(t, IsCode(err, CodeNoBindingSites))
	assert.False(t, IsCode(err, CodeNoLigands))
	assert.False(t, IsCode(nil, CodeNoLigands))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(CodeJobNotFound, "job missing")))
	assert.True(t, IsNotFound(NotFound("generic")))
	assert.False(t, IsNotFound(New(CodeInternal, "boom")))
	assert.False(t, IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(fmt.Errorf("plain")))
	assert.Equal(t, CodeStageFailed, GetCode(New(CodeStageFailed, "stage panicked")))
}

func TestGetStack(t *testing.T) {
	assert.Empty(t, GetStack(fmt.Errorf("plain")))
	assert.NotEmpty(t, GetStack(New(CodeInternal, "boom")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeOK, http.StatusOK},
		{CodeNoLigands, http.StatusBadRequest},
		{CodeNoBindingSites, http.StatusBadRequest},
		{CodeStructureMalformed, http.StatusBadRequest},
		{CodeJobNotFound, http.StatusNotFound},
		{CodeJobInvalidState, http.StatusConflict},
		{CodeNotImplemented, http.StatusNotImplemented},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("BOGUS"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPStatus(), "code %s", tt.code)
	}
}
