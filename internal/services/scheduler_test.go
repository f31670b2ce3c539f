package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.Equal(t, time.Hour, config.Interval)
	assert.True(t, config.RunOnStart)
}

func TestScheduler_IsRunning(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), nil)

	assert.False(t, s.IsRunning(), "scheduler should not be running initially")
}

func TestScheduler_StartTwice(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Interval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx), "starting a running scheduler must fail")
	assert.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning(), "scheduler should not be running after Stop")
}

func TestScheduler_StopNotRunning(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), nil)

	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_RunsJobsAndSurvivesFailures(t *testing.T) {
	var ok, failed atomic.Int32
	done := make(chan struct{}, 1)
	s := NewScheduler(SchedulerConfig{Interval: time.Hour, RunOnStart: true}, nil,
		Job{Name: "fails", Run: func(context.Context) error {
			failed.Add(1)
			return errors.New("boom")
		}},
		Job{Name: "works", Run: func(context.Context) error {
			ok.Add(1)
			done <- struct{}{}
			return nil
		}},
	)

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not run on start")
	}
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, int32(1), failed.Load())
	assert.Equal(t, int32(1), ok.Load())
}

func TestSchedulerConfig_ZeroInterval(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, nil)

	assert.Equal(t, time.Hour, s.config.Interval)
}
