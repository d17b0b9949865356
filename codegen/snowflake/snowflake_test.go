package snowflake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/domain/lifecycle"
	"crudkit/errors"
)

var _ lifecycle.IIDGenerator[int64] = (*Generator)(nil)

// TestNewGenerator 测试生成器创建
func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name         string
		datacenterID int64
		workerID     int64
		expectError  bool
	}{
		{name: "有效的datacenterID和workerID", datacenterID: 1, workerID: 1},
		{name: "datacenterID超出范围-负数", datacenterID: -1, workerID: 1, expectError: true},
		{name: "datacenterID超出范围-超过最大值", datacenterID: 32, workerID: 1, expectError: true},
		{name: "workerID超出范围-负数", datacenterID: 1, workerID: -1, expectError: true},
		{name: "workerID超出范围-超过最大值", datacenterID: 1, workerID: 32, expectError: true},
		{name: "边界值-最大datacenterID和workerID", datacenterID: 31, workerID: 31},
		{name: "边界值-最小datacenterID和workerID", datacenterID: 0, workerID: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewGenerator(tt.datacenterID, tt.workerID)
			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetErrorCode(err))
				assert.Nil(t, gen)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, gen)
		})
	}
}

func fixedClock(t time.Time) (func() time.Time, func(time.Duration)) {
	var mu sync.Mutex
	now := t
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		}
}

func TestNextID_SequenceWithinMillisecond(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now, _ := fixedClock(at)
	gen, err := NewGenerator(3, 7, WithTimeSource(now))
	require.NoError(t, err)

	first, err := gen.NextID()
	require.NoError(t, err)
	second, err := gen.NextID()
	require.NoError(t, err)
	assert.Greater(t, second, first)

	p1, p2 := Parse(first), Parse(second)
	assert.Equal(t, at, p1.Timestamp)
	assert.Equal(t, int64(3), p1.DatacenterID)
	assert.Equal(t, int64(7), p1.WorkerID)
	assert.Equal(t, int64(0), p1.Sequence)
	assert.Equal(t, int64(1), p2.Sequence)
}

func TestNextID_ResetsSequenceOnNewMillisecond(t *testing.T) {
	now, advance := fixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	gen, err := NewGenerator(1, 1, WithTimeSource(now))
	require.NoError(t, err)

	_, _ = gen.NextID()
	_, _ = gen.NextID()
	advance(time.Millisecond)
	id, err := gen.NextID()
	require.NoError(t, err)
	assert.Equal(t, int64(0), Parse(id).Sequence)
}

func TestNextID_ClockMovedBackwards(t *testing.T) {
	now, advance := fixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	gen, err := NewGenerator(1, 1, WithTimeSource(now))
	require.NoError(t, err)

	_, err = gen.NextID()
	require.NoError(t, err)
	advance(-time.Second)
	_, err = gen.NextID()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clock moved backwards")
}

func TestNextID_BeforeEpoch(t *testing.T) {
	gen, err := NewGenerator(1, 1, WithTimeSource(func() time.Time {
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	_, err = gen.NextID()
	assert.Error(t, err)
}

// TestNextID_Concurrent 并发生成的ID不重复
func TestNextID_Concurrent(t *testing.T) {
	gen, err := NewGenerator(1, 1)
	require.NoError(t, err)

	const goroutines, perGoroutine = 8, 500
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{}, goroutines*perGoroutine)
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id, err := gen.NextID()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ids, goroutines*perGoroutine)
}
