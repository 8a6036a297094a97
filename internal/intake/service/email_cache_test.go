package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"applicant-intake/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailCache_ReadFailureFallsBackToFetch(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewEmailCache(client, "intake", time.Minute, logger.NewTestLogger(t))

	mock.ExpectGet("intake:booking-email:BK-1").SetErr(errors.New("connection reset"))
	mock.ExpectSet("intake:booking-email:BK-1", "asha@example.com", time.Minute).SetErr(errors.New("connection reset"))

	got, err := cache.Get(context.Background(), "BK-1", func(context.Context) (string, error) {
		return "asha@example.com", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailCache_FetchErrorNotCached(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewEmailCache(client, "intake", time.Minute, logger.NewTestLogger(t))

	mock.ExpectGet("intake:booking-email:BK-1").RedisNil()

	_, err := cache.Get(context.Background(), "BK-1", func(context.Context) (string, error) {
		return "", errors.New("records down")
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailCache_ConcurrentMissesShareOneFetch(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewEmailCache(client, "intake", time.Minute, logger.NewNoOpLogger())
	release := make(chan struct{})
	var fetches int32
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return "asha@example.com", nil
	}

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.Get(context.Background(), "BK-1", fetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "asha@example.com", r)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&fetches), int32(callers))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fetches), int32(1))

	ttl := mr.TTL("intake:booking-email:BK-1")
	assert.Equal(t, time.Minute, ttl)
	require.NoError(t, cache.Forget(context.Background(), "BK-1"))
	assert.False(t, mr.Exists("intake:booking-email:BK-1"))
}
