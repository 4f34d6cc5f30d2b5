package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huber0203/shioaji-gateway/internal/broker"
)

func TestCheckTraffic(t *testing.T) {
	g := New(0.8, DefaultMemoryLimit)

	tests := []struct {
		name  string
		usage broker.Usage
		want  error
	}{
		{
			name:  "well under limit",
			usage: broker.Usage{Bytes: 100, LimitBytes: 1000},
			want:  nil,
		},
		{
			name:  "exactly at threshold passes",
			usage: broker.Usage{Bytes: 800, LimitBytes: 1000},
			want:  nil,
		},
		{
			name:  "just over threshold rejects",
			usage: broker.Usage{Bytes: 810, LimitBytes: 1000},
			want:  ErrTrafficLimit,
		},
		{
			name:  "zero limit never rejects",
			usage: broker.Usage{Bytes: 810, LimitBytes: 0},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckTraffic(tt.usage)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCheckMemory(t *testing.T) {
	limit := uint64(12 << 30)

	g := New(0.8, limit, WithMemoryReader(func() (uint64, error) {
		return limit + 1, nil
	}))
	assert.ErrorIs(t, g.CheckMemory(), ErrMemoryLimit)

	g = New(0.8, limit, WithMemoryReader(func() (uint64, error) {
		return limit - 1, nil
	}))
	assert.NoError(t, g.CheckMemory())
}

func TestCheckMemoryReadFailure(t *testing.T) {
	g := New(0.8, 12<<30, WithMemoryReader(func() (uint64, error) {
		return 0, errors.New("proc unavailable")
	}))
	// A failed read is not a trip.
	assert.NoError(t, g.CheckMemory())
}

func TestDefaults(t *testing.T) {
	g := New(0, 0)
	require.Equal(t, DefaultTrafficRatio, g.trafficRatio)
	require.Equal(t, uint64(DefaultMemoryLimit), g.memoryLimit)
}
