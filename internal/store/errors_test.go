package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scanlytics/scanlytics-server/internal/store"
)

func TestError_ErrorWithCause(t *testing.T) {
	err := store.ErrNotFound.WithCause(errors.New("no rows"))

	assert.Equal(t, "resource not found: no rows", err.Error())
	assert.Equal(t, http.StatusNotFound, err.HTTPCode())
}

func TestError_WithMessageKeepsCode(t *testing.T) {
	err := store.ErrAlreadyExists.WithMessage("short url taken")

	assert.Equal(t, http.StatusConflict, err.Code)
	assert.Equal(t, "short url taken", err.Message)
	assert.True(t, errors.Is(err, store.ErrAlreadyExists))
	assert.False(t, errors.Is(err, store.ErrNotFound))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, store.IsNotFound(store.ErrNotFound))
	assert.True(t, store.IsNotFound(fmt.Errorf("get qr code: %w", store.ErrNotFound.WithMessage("gone"))))
	assert.False(t, store.IsNotFound(store.ErrInvalidInput))
	assert.False(t, store.IsNotFound(errors.New("boom")))
	assert.False(t, store.IsNotFound(nil))
}
