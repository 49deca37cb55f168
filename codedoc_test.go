package codedoc_test

import (
	"errors"
	"testing"

	"github.com/fwojciec/codedoc"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := codedoc.Errorf(codedoc.ENOTFOUND, "unit %q not found", "test")

	assert.Equal(t, codedoc.ENOTFOUND, codedoc.ErrorCode(err))
	assert.Equal(t, "unit \"test\" not found", codedoc.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, codedoc.ErrorCode(nil))
}

func TestErrorCode_NonApplicationError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, codedoc.EINTERNAL, codedoc.ErrorCode(errors.New("boom")))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, codedoc.ErrorMessage(nil))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, codedoc.IsRetryable(codedoc.Errorf(codedoc.ETIMEOUT, "deadline exceeded")))
	assert.True(t, codedoc.IsRetryable(codedoc.Errorf(codedoc.EUNAVAILABLE, "connection refused")))
	assert.False(t, codedoc.IsRetryable(codedoc.Errorf(codedoc.EINVALID, "rejected input")))
	assert.False(t, codedoc.IsRetryable(errors.New("boom")))
}
