package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := NotFound("order %s not found", "O1")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))

	wrapped := fmt.Errorf("load: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUpstream, cause, "gateway unavailable")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "gateway unavailable", PublicMessage(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{InvalidInput("x"), http.StatusBadRequest},
		{New(KindInvalidAmount, "x"), http.StatusBadRequest},
		{New(KindInvalidSignature, "x"), http.StatusBadRequest},
		{New(KindConfiguration, "x"), http.StatusInternalServerError},
		{New(KindUpstream, "x"), http.StatusInternalServerError},
		{Conflict("x"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestSentinels_MatchTheirKind(t *testing.T) {
	assert.ErrorIs(t, New(KindInvalidSignature, "payment verification failed"), ErrInvalidSignature)
	assert.ErrorIs(t, New(KindUpstream, "gateway down"), ErrUpstream)
	assert.NotErrorIs(t, New(KindInvalidSignature, "x"), ErrInvalidInput)
}

func TestPublicMessage_HidesUnclassified(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(errors.New("dial tcp 10.0.0.1: timeout")))
}
