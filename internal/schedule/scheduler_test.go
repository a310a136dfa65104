package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	return nil
}

func TestCronScheduler_AddJob(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{}
	require.Error(t, s.AddJob(job, "not a spec"))
	require.NoError(t, s.AddJob(job, "0 * * * *"))
	require.Error(t, s.AddJob(job, "5 * * * *"))

	_, ok := s.Next("missing")
	require.False(t, ok)

	s.Start(context.Background())
	defer s.Stop()
	next, ok := s.Next("counting")
	require.True(t, ok)
	require.Zero(t, next.Minute())
}

func TestCronScheduler_WrapRunsSequentialCalls(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{}
	run := s.wrap(job, "@every 1m")
	run()
	run()
	require.Equal(t, 2, job.runs)
}
