package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsExistingAppError(t *testing.T) {
	notFound := ErrNotFound.WithMessage("post %d not found", 7)
	wrapped := Wrap(fmt.Errorf("lookup: %w", notFound), ErrInternal)

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(wrapped))
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrForbidden.WithMessage("only the author can edit this post").WithDetail("post_id", 3))
	assert.Equal(t, "FORBIDDEN", resp.ErrorCode)
	assert.Equal(t, "only the author can edit this post", resp.Error)
	assert.Equal(t, map[string]interface{}{"post_id": 3}, resp.Details)

	plain := ToErrorResponse(stderrors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", plain.ErrorCode)
	assert.Nil(t, plain.Details)
}

func TestRetryClassification(t *testing.T) {
	assert.True(t, ErrValidation.IsFatal())
	assert.False(t, ErrValidation.IsRetryable())
	assert.True(t, ErrServiceUnavailable.IsRetryable())
	assert.True(t, ErrValidation.AsRetryable().IsRetryable())
	assert.True(t, stderrors.Is(ErrNotFound.WithCause(stderrors.New("x")), ErrNotFound))
}

func TestRecoverPanic(t *testing.T) {
	assert.Nil(t, RecoverPanic(nil))

	err := RecoverPanic("handler exploded")
	var appErr *Error
	assert.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.True(t, appErr.IsFatal())
	assert.Contains(t, err.Error(), "handler exploded")
}
