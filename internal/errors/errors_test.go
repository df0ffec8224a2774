package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderWrapsError(t *testing.T) {
	base := stderrors.New("mapping failed")

	err := New(base).
		Component("shmem").
		Category(CategorySharedMemory).
		Context("region", "masterme-test").
		Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, "shmem", ee.GetComponent())
	assert.Equal(t, string(CategorySharedMemory), ee.GetCategory())
	assert.Equal(t, "masterme-test", ee.Context["region"])
	assert.True(t, Is(err, base))
}

func TestCategoryMatching(t *testing.T) {
	err := Newf("window size %d below floor", 0).
		Category(CategoryValidation).
		Build()

	target := &EnhancedError{Category: CategoryValidation}
	assert.True(t, Is(err, target))

	other := &EnhancedError{Category: CategorySharedMemory}
	assert.False(t, Is(err, other))
}

func TestUnknownComponent(t *testing.T) {
	err := Newf("boom").Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
}

func TestReporterReceivesBuiltErrors(t *testing.T) {
	var got []*EnhancedError
	SetReporter(func(ee *EnhancedError) { got = append(got, ee) })
	defer SetReporter(nil)

	_ = Newf("one").Component("engine").Build()
	_ = Newf("two").Component("shmem").Build()

	require.Len(t, got, 2)
	assert.Equal(t, "engine", got[0].GetComponent())
	assert.Equal(t, "shmem", got[1].GetComponent())
}
