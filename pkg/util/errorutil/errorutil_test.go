package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})

	t.Run("wrapped domain error is unwrapped", func(t *testing.T) {
		err := fmt.Errorf("accept: %w", NewInvalidTransition("proposal is not pending"))
		de := ToDomainError(err)
		require.NotNil(t, de)
		assert.Equal(t, CodeInvalidTransition, de.Code)
		assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
		assert.Equal(t, "proposal is not pending", de.Message)
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		cause := errors.New("connection reset")
		de := ToDomainError(cause)
		require.NotNil(t, de)
		assert.Equal(t, CodeInternal, de.Code)
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
		assert.ErrorIs(t, de, cause)
	})
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewNotFound("proposal"), CodeNotFound))
	assert.False(t, HasCode(NewNotFound("proposal"), CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}

func TestConstructorsStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{NewValidationError("bad", nil), http.StatusBadRequest},
		{NewNotFound("proposal"), http.StatusNotFound},
		{NewUnauthorized("no"), http.StatusUnauthorized},
		{NewForbidden("no"), http.StatusForbidden},
		{NewConflict("dup", nil), http.StatusConflict},
		{NewRegistrationClosed("closed"), http.StatusForbidden},
		{NewInternalError(nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, ToDomainError(tc.err).HTTPStatus, tc.err.Error())
	}
}
