package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorPredicates(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("upsert products: %w", NewInternalError("write failed", cause))

	assert.False(t, IsNotFound(err))
	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "INTERNAL: write failed")

	assert.True(t, IsNotFound(NewNotFoundError("site 9", nil)))
	assert.True(t, IsInvalidInput(NewValidationError("bad type", nil)))
	assert.True(t, IsUnauthorized(NewUnauthorizedError("bad key", nil)))
}

func TestGuardErrors(t *testing.T) {
	err := fmt.Errorf("start: %w", NewSyncInProgressError(7))
	assert.True(t, IsSyncInProgress(err))
	assert.False(t, IsBatchInProgress(err))
	assert.Equal(t, "start: sync already in progress (site 7)", err.Error())

	assert.True(t, IsBatchInProgress(NewBatchInProgressError(3)))
}
