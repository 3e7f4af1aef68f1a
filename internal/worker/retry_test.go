package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, RetryBackoff(0))
	assert.Equal(t, 30*time.Second, RetryBackoff(1))
	assert.Equal(t, time.Minute, RetryBackoff(2))
	assert.Equal(t, 2*time.Minute, RetryBackoff(3))
	assert.Equal(t, 4*time.Minute, RetryBackoff(4))
}

func TestQueueForEveryJobType(t *testing.T) {
	for _, jt := range []string{JobReceipt, JobLowStock, JobEmail} {
		assert.NotEmpty(t, queueByType[jt], jt)
	}
	assert.True(t, retryable[JobEmail])
	assert.False(t, retryable[JobReceipt])
}
