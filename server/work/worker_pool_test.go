package work

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRegisterHandler(t *testing.T) {
	workerPool := NewWorkerPool(1)
	noop := func(map[string]interface{}) error { return nil }

	assert.Nil(t, workerPool.RegisterHandler("noop", noop))
	assert.ErrorIs(t, workerPool.RegisterHandler("noop", noop), ErrDuplicateHandler)
}

func TestEnqueue(t *testing.T) {
	workerPool := NewWorkerPool(1)
	require.Nil(t, workerPool.RegisterHandler("noop", func(map[string]interface{}) error { return nil }))

	err := workerPool.Enqueue(JobParams{Name: "", Handler: "noop"})
	assert.NotNil(t, err, "Should require a job name")

	err = workerPool.Enqueue(JobParams{Name: "suits", Handler: "donna"})
	assert.ErrorIs(t, err, ErrUnknownHandler)

	err = workerPool.Enqueue(JobParams{Name: "suits", Handler: "noop"})
	assert.Nil(t, err)

	err = workerPool.Enqueue(JobParams{Name: "suits", Handler: "noop"})
	assert.ErrorIs(t, err, ErrDuplicateJob, "A job with the same name is still pending")
}

func TestFailingJobIsRetriedUntilMaxFails(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var attempts int32
	workerPool := NewWorkerPool(1)
	require.Nil(t, workerPool.RegisterHandler("flaky", func(map[string]interface{}) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("always fails")
	}))

	workerPool.Start()
	require.Nil(t, workerPool.Enqueue(JobParams{Name: "flaky", Handler: "flaky"}))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) == MAX_FAILS
	}, 2*time.Second, 10*time.Millisecond)

	// Once dead, the job name is free again
	assert.Eventually(t, func() bool {
		return workerPool.Enqueue(JobParams{Name: "flaky", Handler: "flaky"}) == nil
	}, 2*time.Second, 10*time.Millisecond)

	workerPool.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	workerPool := NewWorkerPool(3)
	workerPool.Start()
	workerPool.Start()
	workerPool.Stop()
	workerPool.Stop()
}
