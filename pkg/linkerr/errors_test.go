package linkerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
)

func TestKindPredicates(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotFound("MergeSubjects", "subject", "s1"))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrValidation))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := Validation("LinkRecords", "reason is required")
	assert.Equal(t, "LinkRecords: reason is required", err.Error())

	cause := errors.New("connection reset")
	failure := MutationFailure("MergeSubjects", cause)
	assert.Contains(t, failure.Error(), "connection reset")
	assert.True(t, errors.Is(failure, cause))
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "validation", err: Validation("op", "bad"), code: http.StatusBadRequest},
		{name: "not found", err: NotFound("op", "record", "r1"), code: http.StatusNotFound},
		{name: "conflict", err: Conflict("op", "already merged"), code: http.StatusConflict},
		{name: "mutation failure", err: MutationFailure("op", errors.New("x")), code: http.StatusInternalServerError},
		{name: "unclassified", err: errors.New("boom"), code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := ToHTTPError(tt.err)
			assert.True(t, httperror.IsHTTPError(httpErr))
			assert.Equal(t, tt.code, httperror.GetStatusCode(httpErr))
		})
	}

	assert.NoError(t, ToHTTPError(nil))
}
