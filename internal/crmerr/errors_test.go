package crmerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("update rep: %w", NotFound("representative", uuid.New()))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrDuplicateName))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDuplicatePhoneCarriesFormattedPhone(t *testing.T) {
	err := DuplicatePhone("010-1234-5678")
	assert.Contains(t, err.Error(), "010-1234-5678")
	assert.True(t, errors.Is(err, ErrDuplicatePhone))
}

func TestStorageUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("insert site", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.Equal(t, KindStorage, KindOf(errors.New("plain")))
}
