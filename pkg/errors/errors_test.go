package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopiesMatchByCode(t *testing.T) {
	err := ErrBrandNotFound.WithDetail("brand-1")
	assert.ErrorIs(t, err, ErrBrandNotFound)
	assert.NotErrorIs(t, err, ErrCardNotFound)
	assert.Empty(t, ErrBrandNotFound.Detail)

	wrapped := fmt.Errorf("load context: %w", err)
	assert.ErrorIs(t, wrapped, ErrBrandNotFound)
	assert.Equal(t, "brand-1", AsAppError(wrapped).Detail)
}

func TestWithErrorKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ErrInternalError.WithError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, ErrInternalError.Err)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[*AppError]int{
		ErrInvalidParam:          http.StatusBadRequest,
		ErrInfluencerNotFound:    http.StatusNotFound,
		ErrNoInfluencers:         http.StatusUnprocessableEntity,
		ErrInsufficientAnalysis:  http.StatusUnprocessableEntity,
		ErrServiceUnavailable:    http.StatusServiceUnavailable,
		ErrImageGenerationFailed: http.StatusBadGateway,
		ErrTooManyRequests:       http.StatusTooManyRequests,
		ErrInternalError:         http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.HTTPStatus, err.Message)
	}
}

func TestAsAppErrorWrapsPlainErrors(t *testing.T) {
	err := AsAppError(stderrors.New("boom"))
	assert.Equal(t, CodeUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.False(t, IsAppError(stderrors.New("boom")))
}
