package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, jobs ...Job) (*Scheduler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(log, client, time.UTC, jobs...), mr
}

func TestRunOnce_ReleasesLock(t *testing.T) {
	var runs int32
	job := Job{Name: "sweep", Spec: "@every 1m", Run: func(ctx context.Context) (int, error) {
		atomic.AddInt32(&runs, 1)
		return 3, nil
	}}
	s, mr := newTestScheduler(t, job)

	s.runOnce(context.Background(), job)
	s.runOnce(context.Background(), job)

	assert.EqualValues(t, 2, atomic.LoadInt32(&runs))
	assert.False(t, mr.Exists("scheduler:lock:sweep"))
}

func TestRunOnce_SkipsWhileAnotherInstanceHoldsLock(t *testing.T) {
	var runs int32
	job := Job{Name: "sweep", Spec: "@every 1m", Run: func(ctx context.Context) (int, error) {
		atomic.AddInt32(&runs, 1)
		return 0, nil
	}}
	s, mr := newTestScheduler(t, job)

	require.NoError(t, mr.Set("scheduler:lock:sweep", "other-instance"))

	s.runOnce(context.Background(), job)
	assert.Zero(t, atomic.LoadInt32(&runs))

	// The foreign lock is left alone.
	got, err := mr.Get("scheduler:lock:sweep")
	require.NoError(t, err)
	assert.Equal(t, "other-instance", got)
}

func TestRunOnce_FailedJobStillReleasesLock(t *testing.T) {
	job := Job{Name: "broken", Spec: "@every 1m", Run: func(ctx context.Context) (int, error) {
		return 0, errors.New("database down")
	}}
	s, mr := newTestScheduler(t, job)

	s.runOnce(context.Background(), job)
	assert.False(t, mr.Exists("scheduler:lock:broken"))
}

func TestRunOnce_WithoutRedis(t *testing.T) {
	var runs int32
	job := Job{Name: "local", Spec: "@every 1m", Run: func(ctx context.Context) (int, error) {
		atomic.AddInt32(&runs, 1)
		return 1, nil
	}}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := New(log, nil, nil, job)

	s.runOnce(context.Background(), job)
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	s, _ := newTestScheduler(t, Job{Name: "bad", Spec: "every now and then", Run: func(ctx context.Context) (int, error) {
		return 0, nil
	}})

	err := s.Start(context.Background())
	assert.Error(t, err)
	s.Stop()
}

func TestStart_RunsJobsUntilStopped(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, _ := newTestScheduler(t, Job{Name: "tick", Spec: "@every 1s", Run: func(ctx context.Context) (int, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return 1, nil
	}})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
