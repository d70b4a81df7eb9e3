package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"30m", 30 * time.Minute},
		{"15", 15 * time.Second},
		{" 1h ", time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDuration("xd")
	assert.Error(t, err)
	assert.Equal(t, time.Minute, MustParseDuration("bogus", time.Minute))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, Unique([]int64{3, 1, 3, 2, 1}))
	assert.True(t, InSlice([]string{"a", "b"}, "b"))
}

func TestSafeKey(t *testing.T) {
	assert.Equal(t, "library-1", SafeKey("library-1"))
	assert.Equal(t, "a_b_c", SafeKey("a/b c"))
}
