package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeFinder struct {
	orphans []string
	err     error
	calls   int
}

func (f *fakeFinder) Orphans(context.Context) ([]string, error) {
	f.calls++
	return f.orphans, f.err
}

func TestSweepReportsOrphans(t *testing.T) {
	f := &fakeFinder{orphans: []string{"12-345/plaintiff/brief.pdf"}}
	s := NewScheduler(f, "@every 1h")

	got := s.Sweep(context.Background())

	assert.Equal(t, []string{"12-345/plaintiff/brief.pdf"}, got)
	assert.Equal(t, 1, f.calls)
}

func TestSweepError(t *testing.T) {
	f := &fakeFinder{err: errors.New("boom")}
	s := NewScheduler(f, "@every 1h")

	assert.Nil(t, s.Sweep(context.Background()))
}

func TestStartDisabled(t *testing.T) {
	s := NewScheduler(&fakeFinder{}, "")
	assert.NoError(t, s.Start())
	assert.Empty(t, s.cron.Entries())
}

func TestStartBadSchedule(t *testing.T) {
	s := NewScheduler(&fakeFinder{}, "not a schedule")
	assert.Error(t, s.Start())
}

func TestStartRegistersSweep(t *testing.T) {
	s := NewScheduler(&fakeFinder{}, "@every 1h")
	assert.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 1)
}
