package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesBucket(t *testing.T) {
	l := NewKeyLimiter().AddBuckets(BucketRule{Key: "/import", FillInterval: time.Hour, Capacity: 2, Quantum: 2})

	assert.True(t, Allow(l, "/import"))
	assert.True(t, Allow(l, "/import"))
	assert.False(t, Allow(l, "/import"))
	assert.True(t, Allow(l, "/other"))
}

func TestNewConnBucket(t *testing.T) {
	assert.Nil(t, NewConnBucket(0, 10))

	b := NewConnBucket(5, 0)
	if assert.NotNil(t, b) {
		assert.Equal(t, int64(5), b.Capacity())
	}
}
