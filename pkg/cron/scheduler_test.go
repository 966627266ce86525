package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunNow(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler("@every 1h", func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		runs.Add(1)
	}, nil)

	s.RunNow()
	s.RunNow()
	assert.Equal(t, int32(2), runs.Load())
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32

	s := NewScheduler("@every 1h", func(ctx context.Context) {
		if runs.Add(1) == 1 {
			close(started)
			<-release
		}
	}, nil)

	done := make(chan struct{})
	go func() {
		s.RunNow()
		close(done)
	}()

	<-started
	s.RunNow()
	close(release)
	<-done

	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_Start(t *testing.T) {
	t.Run("ticks", func(t *testing.T) {
		var runs atomic.Int32
		s := NewScheduler("@every 1s", func(context.Context) { runs.Add(1) }, nil).WithTimeout(time.Second)
		require.NoError(t, s.Start())
		defer s.Stop()

		assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		s := NewScheduler("not a schedule", func(context.Context) {}, nil)
		assert.Error(t, s.Start())
	})
}
