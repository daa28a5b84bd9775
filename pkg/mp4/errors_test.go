package mp4

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIoErrNilCauseReturnsNil(t *testing.T) {
	assert.NoError(t, ioErr(nil, "writing %s", "something"))
}

func TestIoErrWrapsNonNilCause(t *testing.T) {
	cause := errors.New("boom")
	err := ioErr(cause, "writing %s", "something")
	assert.Error(t, err)
	assert.True(t, Is(err, KindIO))
}

func TestNewErrAndWrapErr(t *testing.T) {
	e := newErr(KindParsing, "bad length %d", 3)
	assert.Equal(t, "bad length 3", e.Message)
	assert.Nil(t, e.Cause)

	cause := errors.New("inner")
	w := wrapErr(KindParsing, cause, "wrapping")
	assert.Equal(t, cause, w.Cause)
	assert.ErrorIs(t, w, cause)
}
