package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

func fastConfig() Config {
	return Config{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func newTestExecutor(config Config) (*Executor, tally.TestScope) {
	stats := tally.NewTestScope("", nil)
	return NewExecutor(config, stats, clock.New()), stats
}

func TestConfigDefaults(t *testing.T) {
	require := require.New(t)

	c := Config{}.ApplyDefaults()
	require.Equal(5, c.MaxRetries)
	require.Equal(time.Second, c.InitialDelay)
	require.Equal(30*time.Second, c.MaxDelay)
	require.Equal(2.0, c.Multiplier)
	require.Equal(0.1, c.randomizationFactor())
}

func TestConfigDuration(t *testing.T) {
	c := Config{InitialDelay: time.Minute, MaxDelay: 30 * time.Minute, Multiplier: 2}
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, time.Minute},
		{0, time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{4, 16 * time.Minute},
		{5, 30 * time.Minute},
		{200, 30 * time.Minute},
	}
	for _, test := range tests {
		require.Equal(t, test.expected, c.Duration(test.attempt), "attempt %d", test.attempt)
	}
}

func TestRunSucceedsAfterTransientFailures(t *testing.T) {
	require := require.New(t)

	e, stats := newTestExecutor(fastConfig())

	var calls int
	out := Run(context.Background(), e, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.True(out.Success())
	require.Equal("ok", out.Value)
	require.Equal(3, out.Attempts)
	require.Equal(int64(2), stats.Snapshot().Counters()["backoff.retries+"].Value())
}

func TestRunExhaustsRetries(t *testing.T) {
	require := require.New(t)

	e, _ := newTestExecutor(fastConfig())

	var calls int
	out := e.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("always")
	}, WithMaxRetries(2))
	require.False(out.Success())
	require.EqualError(out.Err, "always")
	require.Equal(3, out.Attempts)
	require.Equal(3, calls)
}

func TestRunZeroRetriesAttemptsOnce(t *testing.T) {
	require := require.New(t)

	e, _ := newTestExecutor(fastConfig())

	out := e.Do(context.Background(), func(context.Context) error {
		return errors.New("fail")
	}, WithMaxRetries(0))
	require.Equal(1, out.Attempts)
}

func TestRunStopsOnNonRetryable(t *testing.T) {
	require := require.New(t)

	e, _ := newTestExecutor(fastConfig())

	out := e.Do(context.Background(), func(context.Context) error {
		return Permanent(errors.New("bad input"))
	})
	require.Equal(1, out.Attempts)
	require.True(IsPermanent(out.Err))
	require.EqualError(out.Err, "bad input")
}

func TestRunCustomRetryable(t *testing.T) {
	require := require.New(t)

	e, _ := newTestExecutor(fastConfig())
	errSkip := errors.New("skip")

	out := e.Do(context.Background(), func(context.Context) error {
		return errSkip
	}, WithRetryable(func(err error) bool { return err != errSkip }))
	require.Equal(1, out.Attempts)
}

func TestRunDelaysWithoutJitter(t *testing.T) {
	require := require.New(t)

	e, _ := newTestExecutor(Config{
		MaxRetries:   4,
		InitialDelay: 2 * time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		NoJitter:     true,
	})

	var delays []time.Duration
	var attempts []int
	out := e.Do(context.Background(), func(context.Context) error {
		return errors.New("fail")
	}, WithOnRetry(func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
		delays = append(delays, delay)
	}))
	require.Equal(5, out.Attempts)
	require.Equal([]int{1, 2, 3, 4}, attempts)
	require.Equal([]time.Duration{
		2 * time.Millisecond,
		4 * time.Millisecond,
		5 * time.Millisecond,
		5 * time.Millisecond,
	}, delays)
	require.True(out.Elapsed >= 16*time.Millisecond)
}

func TestRunDelaysWithJitterStayInBounds(t *testing.T) {
	require := require.New(t)

	e, _ := newTestExecutor(Config{
		MaxRetries:   3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
	})

	var delays []time.Duration
	e.Do(context.Background(), func(context.Context) error {
		return errors.New("fail")
	}, WithOnRetry(func(_ int, _ error, delay time.Duration) {
		delays = append(delays, delay)
	}))
	require.Len(delays, 3)
	for i, d := range delays {
		base := float64(10*time.Millisecond) * float64(int(1)<<uint(i))
		require.InDelta(base, float64(d), base*0.1+1)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	require := require.New(t)

	e, _ := newTestExecutor(fastConfig())

	var calls int
	out := Run(context.Background(), e, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return 7, nil
	})
	require.True(out.Success())
	require.Equal(7, out.Value)
	require.Equal(2, out.Attempts)
}

func TestRunAbortsSleepOnContextCancel(t *testing.T) {
	require := require.New(t)

	e, _ := newTestExecutor(Config{
		MaxRetries:   5,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errFail := errors.New("fail")

	done := make(chan Outcome[struct{}])
	go func() {
		done <- e.Do(ctx, func(context.Context) error { return errFail })
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case out := <-done:
		require.Equal(1, out.Attempts)
		require.True(errors.Is(out.Err, errFail))
	case <-time.After(5 * time.Second):
		require.FailNow("run did not return after cancel")
	}
}

func TestDefaultRetryable(t *testing.T) {
	require := require.New(t)

	require.True(DefaultRetryable(errors.New("x")))
	require.False(DefaultRetryable(Permanent(errors.New("x"))))
	require.False(DefaultRetryable(context.Canceled))
	require.True(DefaultRetryable(context.DeadlineExceeded))
	require.Nil(Permanent(nil))
}
