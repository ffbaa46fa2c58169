package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toylytics/internal/pkg/async"
)

func TestPoolExecute(t *testing.T) {
	tasks := []async.Task{
		{Name: "a", Execute: func() (interface{}, error) { return 1, nil }},
		{Name: "b", Execute: func() (interface{}, error) { return "two", nil }},
		{Name: "c", Execute: func() (interface{}, error) { return nil, errors.New("boom") }},
	}

	results := async.NewPool(2).Execute(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.Equal(t, 1, results["a"].Data)
	assert.NoError(t, results["a"].Err)
	assert.Equal(t, "two", results["b"].Data)
	assert.EqualError(t, results["c"].Err, "boom")
}

// A failed task never hides the others' results.
func TestPoolIsolatesFailures(t *testing.T) {
	tasks := []async.Task{
		{Name: "fails", Execute: func() (interface{}, error) { return nil, errors.New("broken query") }},
		{Name: "works", Execute: func() (interface{}, error) { return 42, nil }},
	}

	results := async.NewPool(1).Execute(context.Background(), tasks)

	assert.Error(t, results["fails"].Err)
	assert.Equal(t, 42, results["works"].Data)
}

func TestPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []async.Task{
		{Name: "slow", Execute: func() (interface{}, error) {
			time.Sleep(time.Second)
			return nil, nil
		}},
	}

	done := make(chan map[string]async.Result, 1)
	go func() {
		done <- async.NewPool(1).Execute(ctx, tasks)
	}()

	select {
	case results := <-done:
		// with a pre-cancelled context, the task may or may not have run
		assert.LessOrEqual(t, len(results), 1)
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after context cancellation")
	}
}

func TestPoolClampsWorkerCount(t *testing.T) {
	tasks := []async.Task{
		{Name: "only", Execute: func() (interface{}, error) { return "ok", nil }},
	}

	results := async.NewPool(0).Execute(context.Background(), tasks)
	assert.Equal(t, "ok", results["only"].Data)
}
