package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	mu   sync.Mutex
	days []time.Time
	err  error
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = append(f.days, day)
	return f.err
}

func TestNewService_DefaultInterval(t *testing.T) {
	svc := NewService(&fakeSnapshotter{}, 0)
	assert.Equal(t, 24*time.Hour, svc.interval)
}

func TestService_RunNow(t *testing.T) {
	fake := &fakeSnapshotter{}
	svc := NewService(fake, time.Hour)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC) }

	require.NoError(t, svc.RunNow())
	require.Len(t, fake.days, 1)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), fake.days[0])
}

func TestService_RunNow_Error(t *testing.T) {
	fake := &fakeSnapshotter{err: errors.New("db down")}
	svc := NewService(fake, time.Hour)

	assert.Error(t, svc.RunNow())
}

func TestService_StartStop(t *testing.T) {
	svc := NewService(&fakeSnapshotter{}, time.Hour)

	svc.Start()
	svc.Stop()

	// 停止后 stopChan 已关闭
	select {
	case <-svc.stopChan:
	default:
		t.Fatal("stopChan should be closed")
	}
}
