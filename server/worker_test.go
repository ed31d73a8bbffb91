package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaprak-lang/yaprak/vm"
)

func TestWorkerDo(t *testing.T) {
	reg := vm.NewRegistry()
	w := NewWorker(reg)
	defer w.Stop()
	assert.Same(t, reg, w.Registry())

	res, err := w.Do(func(r *vm.Registry) any { return len(r.Modules()) })
	require.NoError(t, err)
	assert.Equal(t, 5, res)
}

func TestWorkerRecoversPanic(t *testing.T) {
	w := NewWorker(vm.NewRegistry())
	defer w.Stop()

	_, err := w.Do(func(*vm.Registry) any { panic("bozuk") })
	require.Error(t, err)
	assert.Equal(t, "bozuk", err.Error())

	// The worker keeps serving after a panic.
	res, err := w.Do(func(*vm.Registry) any { return "tamam" })
	require.NoError(t, err)
	assert.Equal(t, "tamam", res)
}

func TestWorkerStopped(t *testing.T) {
	w := NewWorker(vm.NewRegistry())
	w.Stop()
	_, err := w.Do(func(*vm.Registry) any { return nil })
	assert.ErrorIs(t, err, errStopped)
}
