package local

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type blockingRunner struct {
	mu      sync.Mutex
	ran     []string
	release chan struct{}
	started chan string
}

func (r *blockingRunner) Run(ctx context.Context, reportID string) error {
	r.started <- reportID
	<-r.release
	r.mu.Lock()
	r.ran = append(r.ran, reportID)
	r.mu.Unlock()
	return nil
}

func TestDispatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &blockingRunner{release: make(chan struct{}), started: make(chan string, 2)}
	d := NewDispatcher(runner)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, "a"))
	require.NoError(t, d.Dispatch(ctx, "b"))
	// cancelling the request context does not stop the job
	cancel()

	started := map[string]bool{<-runner.started: true, <-runner.started: true}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, started)

	close(runner.release)
	require.NoError(t, d.Close())
	assert.ElementsMatch(t, []string{"a", "b"}, runner.ran)

	assert.ErrorIs(t, d.Dispatch(context.Background(), "c"), ErrDispatcherClosed)
}

func TestDispatcherWithoutRunner(t *testing.T) {
	d := NewDispatcher(nil)
	assert.Error(t, d.Dispatch(context.Background(), "a"))
	assert.NoError(t, d.Close())
}
