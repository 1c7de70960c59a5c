package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"not found", NotFound("document", "doc-1"), CodeNotFound},
		{"conflict", Conflict("already submitted"), CodeConflict},
		{"unauthorized", Unauthorized("wrong actor"), CodeUnauthorized},
		{"invalid input", InvalidInput("reason", "required"), CodeInvalidInput},
		{"plain error", errors.New("boom"), CodeInternal},
		{"wrapped coded error", fmt.Errorf("outer: %w", Conflict("inner")), CodeConflict},
		{"wrap keeps code", Wrap(errors.New("pq: timeout"), CodeInternal, "query failed"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("document", "doc-1")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("state moved on")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Unauthorized("not the current approver")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("name", "too short")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, `document "doc-1" not found`, MessageOf(NotFound("document", "doc-1")))
	assert.Equal(t, "reason: required", MessageOf(InvalidInput("reason", "required")))
	assert.Equal(t, "boom", MessageOf(errors.New("boom")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "publish failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "publish failed")
	assert.Contains(t, err.Error(), "connection reset")
}
