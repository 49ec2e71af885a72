package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, GetStatusCode(NotFound("alert rule", "r1")))
	assert.Equal(t, http.StatusBadRequest, GetStatusCode(fmt.Errorf("handler: %w", BadRequest("bad metric"))))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(stderrors.New("plain")))
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrInternalServer, cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, IsAppError(err))
	assert.Equal(t, "disk full", err.Details)
	assert.Contains(t, err.Error(), "details=disk full")
}
