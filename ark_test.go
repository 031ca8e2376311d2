package ark

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachineID_RequiresInitialize(t *testing.T) {
	Teardown()
	_, err := MachineID()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestIndex_RequiresInitialize(t *testing.T) {
	Teardown()
	_, err := Index(t.TempDir())
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitialize_TwiceWithoutTeardownFails(t *testing.T) {
	Teardown()
	home := t.TempDir()
	require.NoError(t, Initialize(home))
	defer Teardown()

	err := Initialize(home)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestMachineID_StableAcrossCalls(t *testing.T) {
	Teardown()
	require.NoError(t, Initialize(t.TempDir()))
	defer Teardown()

	first, err := MachineID()
	require.NoError(t, err)

	second, err := MachineID()
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestIndex_SameRootReturnsSameHandle(t *testing.T) {
	Teardown()
	require.NoError(t, Initialize(t.TempDir()))
	defer Teardown()

	root := t.TempDir()

	a, err := Index(root)
	require.NoError(t, err)

	b, err := Index(root)
	require.NoError(t, err)

	require.Same(t, a, b)
}
