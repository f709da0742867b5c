package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	f := NewFailure(CategoryQuery, cause)

	assert.Equal(t, "[Query] connection refused", f.Error())
	assert.True(t, errors.Is(f, cause))

	var failure *Failure
	require.True(t, errors.As(error(f), &failure))
	assert.Equal(t, CategoryQuery, failure.Category)
}

func TestCategoryHalts(t *testing.T) {
	all := []Category{CategoryQuery, CategorySubmission, CategoryPersistence, CategoryLease}

	// Unattended runs stop on everything.
	for _, c := range all {
		assert.True(t, c.Halts(ModeScheduled), c.String())
	}

	// An operator rides out failed chunks but not a broken read or lease.
	assert.False(t, CategorySubmission.Halts(ModeManual))
	assert.False(t, CategoryPersistence.Halts(ModeManual))
	assert.True(t, CategoryQuery.Halts(ModeManual))
	assert.True(t, CategoryLease.Halts(ModeManual))
}
