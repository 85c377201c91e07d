package bookcoder_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kennbr34/bookcoder"
)

func TestCoderErrorWithMessage(t *testing.T) {
	newErr := bookcoder.ErrOffsetRange.WithMessage("asdfqwerty")
	assert.Equal(
		t,
		"offset beyond end of book file: asdfqwerty",
		newErr.Error(),
		"error message is wrong")
	assert.ErrorIs(t, newErr, bookcoder.ErrOffsetRange)
}

func TestCoderErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := bookcoder.ErrNotSeekable.Wrap(originalErr)
	expectedMessage := "book file is not seekable: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, bookcoder.ErrNotSeekable, "sentinel not set as parent")
}
