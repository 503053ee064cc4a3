package flowcontrol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWithinCredit(t *testing.T) {
	w := New(1024)
	require.NoError(t, w.Acquire(512))
	assert.Equal(t, int64(512), w.BytesAvailable())
}

func TestFlowControlScenario(t *testing.T) {
	w := New(1024)
	require.NoError(t, w.Acquire(512))
	require.NoError(t, w.Acquire(512))
	assert.Equal(t, int64(0), w.BytesAvailable())

	var wg sync.WaitGroup
	wg.Add(1)
	unblocked := make(chan struct{})
	go func() {
		defer wg.Done()
		require.NoError(t, w.Acquire(512))
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("acquire should have blocked with no credit")
	case <-time.After(50 * time.Millisecond):
	}

	w.OnFlowControlMessage(512, 1024)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("acquire should have unblocked after acknowledgment")
	}
	wg.Wait()
}

func TestWindowUpdateGrantsIncrementalCredit(t *testing.T) {
	w := New(100)
	require.NoError(t, w.Acquire(100))
	assert.Equal(t, int64(0), w.BytesAvailable())
	w.OnWindowUpdate(50)
	assert.Equal(t, int64(50), w.BytesAvailable())
}

func TestAcquireContextDeadlineExceeded(t *testing.T) {
	w := New(10)
	require.NoError(t, w.Acquire(10))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := w.AcquireContext(ctx, 5)
	require.Error(t, err)
	var violation *ViolationError
	assert.ErrorAs(t, err, &violation)
}

func TestSetErrorUnblocksWaiters(t *testing.T) {
	w := New(0)
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Acquire(1)
	}()
	time.Sleep(20 * time.Millisecond)
	w.SetError(assert.AnError)

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire should have unblocked on SetError")
	}
}

func TestAcquireZeroIsNoop(t *testing.T) {
	w := New(0)
	require.NoError(t, w.Acquire(0))
}
