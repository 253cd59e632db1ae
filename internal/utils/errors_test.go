package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := NewStockError("only %d left", 2)
	wrapped := fmt.Errorf("placing order: %w", base)

	assert.Equal(t, KindStock, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindStock))
	assert.False(t, IsKind(nil, KindStock))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestExternalServiceErrorUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	err := NewExternalServiceError("payment processor", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "payment processor request failed: timeout", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindValidation.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, KindAlreadyDelivered.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusConflict, KindStock.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindForbidden.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, KindExternalService.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
}
